package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/events"
)

type jobStatus string

const (
	statusOpened   jobStatus = "NUEVO"
	statusReopened jobStatus = "REABIERTO"
	statusUpdated  jobStatus = "ACTUALIZADO"
	statusClosed   jobStatus = "CERRADO"
)

const notificationDedupeWindow = 24 * time.Hour

var statusEmojis = map[jobStatus]string{
	statusOpened:   "🟢",
	statusReopened: "🔄",
	statusUpdated:  "📝",
	statusClosed:   "🔴",
}

func formatJobMessage(job entities.JobRecord, status jobStatus) string {

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *%s*%s — %s\n", statusEmojis[status], status,
		scoreEmoji(job.PilotScore), truncate(job.Title, 100)))
	b.WriteString(fmt.Sprintf("🏢 Empresa: %s\n", companyOrSource(job.Company, job.Source)))
	b.WriteString(fmt.Sprintf("📍 Ubicación: %s\n", locationOrDefault(job.Location)))

	if strings.HasPrefix(job.Url, "http") {
		b.WriteString(fmt.Sprintf("🔗 [Ver oferta](%s)", job.Url))
	} else if job.Url != "" {
		b.WriteString(fmt.Sprintf("🔗 Enlace: %s", job.Url))
	}

	return b.String()
}

func formatClosedMessage(job entities.ClosedJob) string {
	return formatJobMessage(closedRecord(job), statusClosed)
}

// closedRecord lifts the historical stub back into record shape for
// formatting and dedupe hashing.
func closedRecord(job entities.ClosedJob) entities.JobRecord {
	return entities.JobRecord{
		Source:   job.Source,
		Company:  job.Company,
		Title:    job.Title,
		Location: job.Location,
		Url:      job.Url,
	}
}

func formatSummaryMessage(event events.CycleCompleted) string {

	var b strings.Builder
	b.WriteString("📊 *Resumen de Cambios en Empleos Piloto*\n\n")
	b.WriteString(fmt.Sprintf("🟢 Nuevos empleos: %d\n", event.Stats.JobsOpened))
	b.WriteString(fmt.Sprintf("📈 Total empleos abiertos: %d\n", event.CurrentlyOpen))
	b.WriteString(fmt.Sprintf("📚 Total empleos en base de datos: %d\n", event.TotalTracked))

	if event.Stats.JobsClosed > 0 {
		b.WriteString(fmt.Sprintf("🔴 Empleos cerrados: %d\n", event.Stats.JobsClosed))
	}

	if event.Stats.FailedSources > 0 {
		b.WriteString(fmt.Sprintf("⚠️ Fuentes fallidas: %d de %d\n",
			event.Stats.FailedSources, event.Stats.TotalSources))
	}

	b.WriteString(fmt.Sprintf("\n⏰ %s UTC", time.Now().UTC().Format("02/01/2006 15:04")))
	return b.String()
}

func scoreEmoji(score int) string {
	switch {
	case score >= 8:
		return " ✈️✈️✈️"
	case score >= 5:
		return " ✈️✈️"
	case score >= 1:
		return " ✈️"
	default:
		return ""
	}
}

func companyOrSource(company, source string) string {
	if company != "" {
		return truncate(company, 50)
	}
	return source
}

func locationOrDefault(location string) string {
	if location == "" {
		return "Ubicación no especificada"
	}
	return truncate(location, 50)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
