package extractors

import (
	"context"
	"strconv"

	"github.com/avwatch/pilot-tracker/internal/clients/greenhouse"
	"github.com/avwatch/pilot-tracker/internal/entities"
)

type GreenhouseExtractor struct {
	client  *greenhouse.Client
	slug    string
	company string
}

func NewGreenhouseExtractor(client *greenhouse.Client, slug string, company string) *GreenhouseExtractor {
	if company == "" {
		company = slug
	}
	return &GreenhouseExtractor{client: client, slug: slug, company: company}
}

func (e *GreenhouseExtractor) Source() string {
	return sourceName("greenhouse", e.slug)
}

func (e *GreenhouseExtractor) Company() string {
	return e.company
}

func (e *GreenhouseExtractor) Fetch(ctx context.Context) ([]entities.JobRecord, error) {

	jobs, err := e.client.ListJobs(ctx, e.slug)
	if err != nil {
		return nil, err
	}

	records := make([]entities.JobRecord, 0, len(jobs))
	for _, job := range jobs {

		department := ""
		if len(job.Departments) > 0 {
			department = job.Departments[0].Name
		}

		updatedAt := job.UpdatedAt
		record := entities.JobRecord{
			Source:      e.Source(),
			ExternalID:  strconv.FormatInt(job.ID, 10),
			Company:     e.company,
			Title:       job.Title,
			Location:    job.Location.Name,
			Url:         job.AbsoluteURL,
			Department:  department,
			Description: job.Content,
		}
		if !updatedAt.IsZero() {
			record.UpdatedAt = &updatedAt
			// Greenhouse doesn't expose a posting date; updated_at is the
			// closest thing available.
			record.PostedAt = &updatedAt
		}
		records = append(records, record)
	}

	return records, nil
}
