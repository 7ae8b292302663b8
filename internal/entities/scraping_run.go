package entities

import "time"

// RunStats aggregates the outcome of one scraping cycle.
type RunStats struct {
	TotalSources      int
	SuccessfulSources int
	FailedSources     int
	JobsFound         int
	JobsOpened        int
	JobsClosed        int
	JobsUpdated       int
	SkippedRecords    int
	Errors            map[string]string
}

// ScrapingRun is the append-only audit row for one cycle.
type ScrapingRun struct {
	ID                int `gorm:"primaryKey"`
	StartedAt         time.Time
	FinishedAt        *time.Time
	TotalSources      int
	SuccessfulSources int
	FailedSources     int
	JobsFound         int
	JobsOpened        int
	JobsClosed        int
	JobsUpdated       int
	SkippedRecords    int
	ErrorsSummary     string
}
