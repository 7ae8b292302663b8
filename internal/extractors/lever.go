package extractors

import (
	"context"
	"strings"
	"time"

	"github.com/avwatch/pilot-tracker/internal/clients/lever"
	"github.com/avwatch/pilot-tracker/internal/entities"
)

type LeverExtractor struct {
	client  *lever.Client
	slug    string
	company string
}

func NewLeverExtractor(client *lever.Client, slug string, company string) *LeverExtractor {
	if company == "" {
		company = slug
	}
	return &LeverExtractor{client: client, slug: slug, company: company}
}

func (e *LeverExtractor) Source() string {
	return sourceName("lever", e.slug)
}

func (e *LeverExtractor) Company() string {
	return e.company
}

func (e *LeverExtractor) Fetch(ctx context.Context) ([]entities.JobRecord, error) {

	postings, err := e.client.ListPostings(ctx, e.slug)
	if err != nil {
		return nil, err
	}

	records := make([]entities.JobRecord, 0, len(postings))
	for _, posting := range postings {

		url := posting.HostedURL
		if url == "" {
			url = posting.ApplyURL
		}

		record := entities.JobRecord{
			Source:      e.Source(),
			ExternalID:  posting.ID,
			Company:     e.company,
			Title:       posting.Text,
			Location:    posting.Categories.Location,
			Url:         url,
			Department:  posting.Categories.Team,
			Description: posting.DescriptionPlain,
		}

		if posting.CreatedAt > 0 {
			postedAt := time.UnixMilli(posting.CreatedAt).UTC()
			record.PostedAt = &postedAt
		}

		if posting.WorkplaceType != "" {
			remote := strings.ToLower(posting.WorkplaceType) == "remote" ||
				strings.ToLower(posting.WorkplaceType) == "hybrid"
			record.Remote = &remote
		}

		records = append(records, record)
	}

	return records, nil
}
