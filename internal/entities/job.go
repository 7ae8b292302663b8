package entities

import "time"

// JobRecord is the normalized shape every extractor produces for one posting.
// Only Source is mandatory; ExternalID is derived by the reconciler when the
// origin system does not provide one.
type JobRecord struct {
	Source      string `validate:"required"`
	ExternalID  string
	Company     string
	Title       string
	Location    string
	Url         string
	Department  string
	Description string
	Remote      *bool
	PostedAt    *time.Time
	UpdatedAt   *time.Time
	PilotScore  int `validate:"gte=0,lte=10"`
}

// JobKey identifies a job across scraping cycles.
type JobKey struct {
	Source     string
	ExternalID string
}

func (r JobRecord) Key() JobKey {
	return JobKey{Source: r.Source, ExternalID: r.ExternalID}
}

// Job is the persisted lifecycle entity, unique per (source, external_id).
type Job struct {
	ID          int    `gorm:"primaryKey"`
	Source      string `gorm:"uniqueIndex:idx_jobs_source_external_id;index:idx_jobs_source_open"`
	ExternalID  string `gorm:"uniqueIndex:idx_jobs_source_external_id"`
	Company     string
	Title       string
	Location    string
	Url         string
	Department  string
	Description string
	Remote      *bool
	PostedAt    *time.Time
	UpdatedAt   *time.Time
	PilotScore  int
	FirstSeen   time.Time
	LastSeen    time.Time
	IsOpen      bool `gorm:"index:idx_jobs_source_open"`
	ClosedAt    *time.Time
	ContentHash string
	TimesSeen   int
	ReopenCount int
}

func (j Job) Key() JobKey {
	return JobKey{Source: j.Source, ExternalID: j.ExternalID}
}

// NewJob creates a freshly observed open job from a record.
func NewJob(record JobRecord, contentHash string, seenAt time.Time) *Job {
	return &Job{
		Source:      record.Source,
		ExternalID:  record.ExternalID,
		Company:     record.Company,
		Title:       record.Title,
		Location:    record.Location,
		Url:         record.Url,
		Department:  record.Department,
		Description: record.Description,
		Remote:      record.Remote,
		PostedAt:    record.PostedAt,
		UpdatedAt:   record.UpdatedAt,
		PilotScore:  record.PilotScore,
		FirstSeen:   seenAt,
		LastSeen:    seenAt,
		IsOpen:      true,
		ContentHash: contentHash,
		TimesSeen:   1,
	}
}

// Refresh overwrites descriptive fields on re-observation of an open job.
// The content hash is persisted even when unchanged so drift never accumulates.
func (j *Job) Refresh(record JobRecord, contentHash string, seenAt time.Time) {
	j.Company = record.Company
	j.Title = record.Title
	j.Location = record.Location
	j.Url = record.Url
	j.Department = record.Department
	j.Description = record.Description
	j.Remote = record.Remote
	j.PostedAt = record.PostedAt
	j.UpdatedAt = record.UpdatedAt
	j.PilotScore = record.PilotScore
	j.ContentHash = contentHash
	j.LastSeen = seenAt
	j.TimesSeen++
}

// Reopen transitions a closed job back to open when it reappears in a batch.
func (j *Job) Reopen(record JobRecord, contentHash string, seenAt time.Time) {
	j.Refresh(record, contentHash, seenAt)
	j.IsOpen = true
	j.ClosedAt = nil
	j.ReopenCount++
}

// Close marks a job as no longer observed.
func (j *Job) Close(at time.Time) {
	j.IsOpen = false
	j.ClosedAt = &at
}

// Record converts the persisted entity back to its transient shape.
func (j Job) Record() JobRecord {
	return JobRecord{
		Source:      j.Source,
		ExternalID:  j.ExternalID,
		Company:     j.Company,
		Title:       j.Title,
		Location:    j.Location,
		Url:         j.Url,
		Department:  j.Department,
		Description: j.Description,
		Remote:      j.Remote,
		PostedAt:    j.PostedAt,
		UpdatedAt:   j.UpdatedAt,
		PilotScore:  j.PilotScore,
	}
}

// OpenedJob is an element of the reconciliation delta: a job that entered the
// open state this cycle, either for the first time or as a reopen.
type OpenedJob struct {
	Record      JobRecord
	Reopened    bool
	ReopenCount int
}

// ClosedJob is the historical stub reported for a job that left the open
// state this cycle.
type ClosedJob struct {
	Source     string
	ExternalID string
	Company    string
	Title      string
	Location   string
	Url        string
}

func (j Job) ClosedStub() ClosedJob {
	return ClosedJob{
		Source:     j.Source,
		ExternalID: j.ExternalID,
		Company:    j.Company,
		Title:      j.Title,
		Location:   j.Location,
		Url:        j.Url,
	}
}
