package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type retentionRepository interface {
	RemoveClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type runCleanupRepository interface {
	RemoveStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionCleaner deletes long-closed jobs and old run records on a fixed
// daily schedule. Reconciliation never deletes anything itself.
type RetentionCleaner struct {
	jobs            retentionRepository
	runs            runCleanupRepository
	cron            *cron.Cron
	retentionInDays int
}

func NewRetentionCleaner(jobs retentionRepository, runs runCleanupRepository,
	retentionInDays int) (*RetentionCleaner, error) {

	if retentionInDays <= 0 {
		return nil, errors.New("retention in days must be greater than zero")
	}

	rc := &RetentionCleaner{
		jobs:            jobs,
		runs:            runs,
		cron:            cron.New(),
		retentionInDays: retentionInDays,
	}

	_, err := rc.cron.AddFunc("0 3 * * *", rc.cleanOldData)
	if err != nil {
		return nil, err
	}

	rc.cron.Start()
	log.Infof("retention cleaner started, retention in days: %d", rc.retentionInDays)
	return rc, nil
}

func (rc *RetentionCleaner) Stop() {
	rc.cron.Stop()
}

func (rc *RetentionCleaner) cleanOldData() {

	cutoff := time.Now().UTC().Add(-time.Duration(rc.retentionInDays) * 24 * time.Hour)

	removedJobs, err := rc.jobs.RemoveClosedBefore(context.Background(), cutoff)
	if err != nil {
		log.Errorf("Failed to clean old jobs: %v", err)
	}

	removedRuns, err := rc.runs.RemoveStartedBefore(context.Background(), cutoff)
	if err != nil {
		log.Errorf("Failed to clean old scraping runs: %v", err)
	}

	log.Infof("Retention sweep done at %v, removed jobs: %v, removed runs: %v",
		time.Now(), removedJobs, removedRuns)
}
