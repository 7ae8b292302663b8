package tests

import (
	"context"
	"testing"
	"time"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/repositories"
	"github.com/avwatch/pilot-tracker/internal/services"
	"github.com/stretchr/testify/assert"
)

func Test_Retention_RemovesOnlyLongClosedJobs(t *testing.T) {

	defer clearDb()

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	now := time.Now().UTC()

	expired := entities.NewJob(entities.JobRecord{
		Source: "greenhouse:goneair", ExternalID: "1", Company: "Gone Air", Title: "Captain E190",
	}, "hash1", now.Add(-200*24*time.Hour))
	expired.Close(now.Add(-120 * 24 * time.Hour))

	recentlyClosed := entities.NewJob(entities.JobRecord{
		Source: "greenhouse:goneair", ExternalID: "2", Company: "Gone Air", Title: "First Officer E190",
	}, "hash2", now.Add(-30*24*time.Hour))
	recentlyClosed.Close(now.Add(-2 * 24 * time.Hour))

	stillOpen := entities.NewJob(entities.JobRecord{
		Source: "greenhouse:goneair", ExternalID: "3", Company: "Gone Air", Title: "Second Officer E190",
	}, "hash3", now.Add(-200*24*time.Hour))

	for _, job := range []*entities.Job{expired, recentlyClosed, stillOpen} {
		assert.NoError(t, jobs.Create(context.Background(), job))
		assert.NoError(t, jobs.AppendStatusEvent(context.Background(), job.ID, entities.StatusOpened, job.FirstSeen))
	}

	cutoff := now.Add(-90 * 24 * time.Hour)
	removed, err := jobs.RemoveClosedBefore(context.Background(), cutoff)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	gone, err := jobs.GetByKey(context.Background(), "greenhouse:goneair", "1")
	assert.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := jobs.GetByKey(context.Background(), "greenhouse:goneair", "2")
	assert.NoError(t, err)
	assert.NotNil(t, kept)

	//history must go with the job, never orphan
	var orphaned []entities.JobStatusEvent
	err = dbCtx.DB.Find(&orphaned, "job_id = ?", expired.ID).Error
	assert.NoError(t, err)
	assert.Empty(t, orphaned)

	var remaining []entities.JobStatusEvent
	err = dbCtx.DB.Find(&remaining).Error
	assert.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func Test_Retention_RemovesOldRuns(t *testing.T) {

	defer clearDb()

	runs := repositories.NewRunsRepository(dbCtx.DB)
	now := time.Now().UTC()

	oldID, err := runs.Start(context.Background(), now.Add(-120*24*time.Hour))
	assert.NoError(t, err)
	recentID, err := runs.Start(context.Background(), now.Add(-time.Hour))
	assert.NoError(t, err)

	removed, err := runs.RemoveStartedBefore(context.Background(), now.Add(-90*24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	old, err := runs.GetByID(context.Background(), oldID)
	assert.NoError(t, err)
	assert.Nil(t, old)

	recent, err := runs.GetByID(context.Background(), recentID)
	assert.NoError(t, err)
	assert.NotNil(t, recent)
}

func Test_Runs_FinishPersistsStats(t *testing.T) {

	defer clearDb()

	runs := repositories.NewRunsRepository(dbCtx.DB)
	started := time.Now().UTC().Truncate(time.Second)

	runID, err := runs.Start(context.Background(), started)
	assert.NoError(t, err)

	stats := entities.RunStats{
		TotalSources:      3,
		SuccessfulSources: 2,
		FailedSources:     1,
		JobsFound:         17,
		JobsOpened:        4,
		JobsClosed:        2,
		JobsUpdated:       1,
		SkippedRecords:    5,
		Errors:            map[string]string{"lever:flakyair": "timeout"},
	}
	assert.NoError(t, runs.Finish(context.Background(), runID, started.Add(time.Minute), stats))

	run, err := runs.GetByID(context.Background(), runID)
	assert.NoError(t, err)
	if !assert.NotNil(t, run) {
		return
	}
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, 3, run.TotalSources)
	assert.Equal(t, 2, run.SuccessfulSources)
	assert.Equal(t, 1, run.FailedSources)
	assert.Equal(t, 17, run.JobsFound)
	assert.Equal(t, 4, run.JobsOpened)
	assert.Equal(t, 2, run.JobsClosed)
	assert.Equal(t, 1, run.JobsUpdated)
	assert.Equal(t, 5, run.SkippedRecords)
	assert.Contains(t, run.ErrorsSummary, "lever:flakyair")

	last, err := runs.LastFinished(context.Background())
	assert.NoError(t, err)
	if assert.NotNil(t, last) {
		assert.Equal(t, runID, last.ID)
	}
}

func Test_RetentionCleaner_RejectsNonPositiveRetention(t *testing.T) {

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	runs := repositories.NewRunsRepository(dbCtx.DB)

	_, err := services.NewRetentionCleaner(jobs, runs, 0)
	assert.Error(t, err)
}
