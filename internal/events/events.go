package events

import "github.com/avwatch/pilot-tracker/internal/entities"

var (
	JobOpenedTopic      = "JobOpenedEvent"
	JobUpdatedTopic     = "JobUpdatedEvent"
	JobClosedTopic      = "JobClosedEvent"
	CycleCompletedTopic = "CycleCompletedEvent"
)

type JobOpened struct {
	Job         entities.JobRecord
	Reopened    bool
	ReopenCount int
}

type JobUpdated struct {
	Job entities.JobRecord
}

type JobClosed struct {
	Job entities.ClosedJob
}

// CycleCompleted is published once per scraping cycle, after reconciliation,
// so the notifier can always send a summary even when nothing changed.
type CycleCompleted struct {
	Stats         entities.RunStats
	CurrentlyOpen int64
	TotalTracked  int64
}
