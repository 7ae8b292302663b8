package tests

import (
	"context"

	"github.com/avwatch/pilot-tracker/internal/entities"
)

type mockExtractor struct {
	source  string
	company string
	records []entities.JobRecord
	err     error
}

func (m *mockExtractor) Source() string {
	return m.source
}

func (m *mockExtractor) Company() string {
	return m.company
}

func (m *mockExtractor) Fetch(_ context.Context) ([]entities.JobRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}
