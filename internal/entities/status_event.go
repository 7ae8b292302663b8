package entities

import "time"

type StatusChange string

const (
	StatusOpened   StatusChange = "opened"
	StatusReopened StatusChange = "reopened"
	StatusClosed   StatusChange = "closed"
)

// JobStatusEvent is an append-only history row; it is never mutated and only
// removed by retention cleanup together with its job.
type JobStatusEvent struct {
	ID        int `gorm:"primaryKey"`
	JobID     int `gorm:"index"`
	Change    StatusChange
	ChangedAt time.Time
}
