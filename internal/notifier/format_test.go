package notifier

import (
	"testing"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/events"
	"github.com/stretchr/testify/assert"
)

func Test_FormatJobMessage_ContainsJobDetails(t *testing.T) {

	message := formatJobMessage(entities.JobRecord{
		Title:      "First Officer A320",
		Company:    "Wizz Air",
		Location:   "Budapest",
		Url:        "https://boards.greenhouse.io/wizzair/jobs/42",
		PilotScore: 8,
	}, statusOpened)

	assert.Contains(t, message, "NUEVO")
	assert.Contains(t, message, "First Officer A320")
	assert.Contains(t, message, "Wizz Air")
	assert.Contains(t, message, "Budapest")
	assert.Contains(t, message, "[Ver oferta](https://boards.greenhouse.io/wizzair/jobs/42)")
	assert.Contains(t, message, "✈️✈️✈️")
}

func Test_FormatJobMessage_FallsBackToSourceAndDefaults(t *testing.T) {

	message := formatJobMessage(entities.JobRecord{
		Source: "lever:bintercanarias",
		Title:  "Captain ATR72",
	}, statusReopened)

	assert.Contains(t, message, "REABIERTO")
	assert.Contains(t, message, "lever:bintercanarias")
	assert.Contains(t, message, "Ubicación no especificada")
	assert.NotContains(t, message, "✈️")
}

func Test_FormatClosedMessage_UsesHistoricalStub(t *testing.T) {

	message := formatClosedMessage(entities.ClosedJob{
		Source:     "gh",
		ExternalID: "42",
		Company:    "Wizz Air",
		Title:      "FO A320",
	})

	assert.Contains(t, message, "CERRADO")
	assert.Contains(t, message, "FO A320")
}

func Test_FormatSummaryMessage_AlwaysReportsCounts(t *testing.T) {

	message := formatSummaryMessage(events.CycleCompleted{
		Stats:         entities.RunStats{JobsOpened: 0, JobsClosed: 0},
		CurrentlyOpen: 12,
		TotalTracked:  300,
	})

	assert.Contains(t, message, "Nuevos empleos: 0")
	assert.Contains(t, message, "Total empleos abiertos: 12")
	assert.Contains(t, message, "base de datos: 300")
	assert.NotContains(t, message, "Empleos cerrados")

	withClosures := formatSummaryMessage(events.CycleCompleted{
		Stats: entities.RunStats{JobsClosed: 3, FailedSources: 1, TotalSources: 4},
	})
	assert.Contains(t, withClosures, "Empleos cerrados: 3")
	assert.Contains(t, withClosures, "Fuentes fallidas: 1 de 4")
}
