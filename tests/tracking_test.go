package tests

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/events"
	"github.com/avwatch/pilot-tracker/internal/extractors"
	"github.com/avwatch/pilot-tracker/internal/repositories"
	"github.com/avwatch/pilot-tracker/internal/services"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var captainRecord = entities.JobRecord{
	Source:      "greenhouse:testair",
	ExternalID:  "42",
	Company:     "Test Air",
	Title:       "Captain A320",
	Location:    "Madrid, Spain",
	Url:         "https://boards.test/jobs/42",
	Description: "type rated captain for our A320 fleet",
}

func clearDb() {
	dbCtx.DB.Exec("DELETE from job_status_events WHERE TRUE")
	dbCtx.DB.Exec("DELETE from jobs WHERE TRUE")
	dbCtx.DB.Exec("DELETE from scraping_runs WHERE TRUE")
}

func runTrackingCycle(t *testing.T, bus EventBus.Bus, sources []extractors.Extractor) {

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	runs := repositories.NewRunsRepository(dbCtx.DB)

	reconciler, err := services.NewReconciler(jobs)
	assert.NoError(t, err)

	tracker, err := services.NewTracker(bus, reconciler, runs, jobs, sources, time.Hour)
	assert.NoError(t, err)

	cycleComplete := make(chan struct{})
	tracker.WithCycleCompleteCallback(func() {
		cycleComplete <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tracker.Run(ctx)

	select {
	case <-time.After(30 * time.Second):
		assert.Fail(t, "timed out")
	case <-cycleComplete:
	}
}

func Test_Tracking_FullLifecycle(t *testing.T) {

	defer clearDb()

	opened, reopened, closed := 0, 0, 0
	var lastSummary events.CycleCompleted

	bus := EventBus.New()
	_ = bus.Subscribe(events.JobOpenedTopic, func(event events.JobOpened) {
		if event.Reopened {
			reopened++
		} else {
			opened++
		}
	})
	_ = bus.Subscribe(events.JobClosedTopic, func(event events.JobClosed) {
		closed++
	})
	_ = bus.Subscribe(events.CycleCompletedTopic, func(event events.CycleCompleted) {
		lastSummary = event
	})

	source := &mockExtractor{source: captainRecord.Source, company: captainRecord.Company,
		records: []entities.JobRecord{captainRecord}}

	runTrackingCycle(t, bus, []extractors.Extractor{source})

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	job, err := jobs.GetByKey(context.Background(), captainRecord.Source, captainRecord.ExternalID)
	assert.NoError(t, err)
	if !assert.NotNil(t, job) {
		return
	}
	assert.True(t, job.IsOpen)
	assert.Equal(t, 1, job.TimesSeen)
	assert.Equal(t, 1, opened)
	assert.Equal(t, int64(1), lastSummary.CurrentlyOpen)

	//the board no longer lists the job: it must be closed
	source.records = nil
	runTrackingCycle(t, bus, []extractors.Extractor{source})

	job, err = jobs.GetByKey(context.Background(), captainRecord.Source, captainRecord.ExternalID)
	assert.NoError(t, err)
	assert.False(t, job.IsOpen)
	assert.NotNil(t, job.ClosedAt)
	assert.Equal(t, 1, closed)
	assert.Equal(t, int64(0), lastSummary.CurrentlyOpen)
	assert.Equal(t, int64(1), lastSummary.TotalTracked)

	//the same posting comes back: reopen, don't duplicate
	source.records = []entities.JobRecord{captainRecord}
	runTrackingCycle(t, bus, []extractors.Extractor{source})

	job, err = jobs.GetByKey(context.Background(), captainRecord.Source, captainRecord.ExternalID)
	assert.NoError(t, err)
	assert.True(t, job.IsOpen)
	assert.Nil(t, job.ClosedAt)
	assert.Equal(t, 1, job.ReopenCount)
	assert.Equal(t, 1, reopened)

	total, err := jobs.CountTotal(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)

	var history []entities.JobStatusEvent
	err = dbCtx.DB.Order("id").Find(&history, "job_id = ?", job.ID).Error
	assert.NoError(t, err)
	if assert.Len(t, history, 3) {
		assert.Equal(t, entities.StatusOpened, history[0].Change)
		assert.Equal(t, entities.StatusClosed, history[1].Change)
		assert.Equal(t, entities.StatusReopened, history[2].Change)
	}
}

func Test_Tracking_FailedSourceKeepsItsJobsOpen(t *testing.T) {

	defer clearDb()

	stable := &mockExtractor{source: "greenhouse:stableair", company: "Stable Air",
		records: []entities.JobRecord{{
			Source: "greenhouse:stableair", ExternalID: "1", Company: "Stable Air", Title: "First Officer B737",
		}}}
	flaky := &mockExtractor{source: "lever:flakyair", company: "Flaky Air",
		records: []entities.JobRecord{{
			Source: "lever:flakyair", ExternalID: "2", Company: "Flaky Air", Title: "Captain ATR72",
		}}}

	bus := EventBus.New()
	runTrackingCycle(t, bus, []extractors.Extractor{stable, flaky})

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	open, err := jobs.CountOpen(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), open)

	//flaky board goes down; its job must survive the closure sweep
	flaky.err = errors.New("lever: unexpected status code: 503")
	runTrackingCycle(t, bus, []extractors.Extractor{stable, flaky})

	flakyJob, err := jobs.GetByKey(context.Background(), "lever:flakyair", "2")
	assert.NoError(t, err)
	assert.True(t, flakyJob.IsOpen)

	stableJob, err := jobs.GetByKey(context.Background(), "greenhouse:stableair", "1")
	assert.NoError(t, err)
	assert.True(t, stableJob.IsOpen)
	assert.Equal(t, 2, stableJob.TimesSeen)
}

func Test_Tracking_OutageOfAllSourcesClosesNothing(t *testing.T) {

	defer clearDb()

	stable := &mockExtractor{source: "greenhouse:stableair", company: "Stable Air",
		records: []entities.JobRecord{{
			Source: "greenhouse:stableair", ExternalID: "1", Company: "Stable Air", Title: "First Officer B737",
		}}}
	flaky := &mockExtractor{source: "lever:flakyair", company: "Flaky Air",
		records: []entities.JobRecord{{
			Source: "lever:flakyair", ExternalID: "2", Company: "Flaky Air", Title: "Captain ATR72",
		}}}

	bus := EventBus.New()
	runTrackingCycle(t, bus, []extractors.Extractor{stable, flaky})

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	open, err := jobs.CountOpen(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), open)

	//full outage: every board is down, nothing may be closed
	closed := 0
	_ = bus.Subscribe(events.JobClosedTopic, func(event events.JobClosed) {
		closed++
	})
	stable.err = errors.New("greenhouse: unexpected status code: 502")
	flaky.err = errors.New("lever: unexpected status code: 503")
	runTrackingCycle(t, bus, []extractors.Extractor{stable, flaky})

	open, err = jobs.CountOpen(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), open)
	assert.Equal(t, 0, closed)
}

func Test_Tracking_RunAuditIsPersisted(t *testing.T) {

	defer clearDb()

	stable := &mockExtractor{source: "greenhouse:stableair", company: "Stable Air",
		records: []entities.JobRecord{{
			Source: "greenhouse:stableair", ExternalID: "1", Company: "Stable Air", Title: "First Officer B737",
		}}}
	flaky := &mockExtractor{source: "lever:flakyair", company: "Flaky Air",
		err: errors.New("lever: unexpected status code: 503")}

	runTrackingCycle(t, EventBus.New(), []extractors.Extractor{stable, flaky})

	var runs []entities.ScrapingRun
	err := dbCtx.DB.Order("id").Find(&runs).Error
	assert.NoError(t, err)
	if !assert.Len(t, runs, 1) {
		return
	}

	run := runs[0]
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, 2, run.TotalSources)
	assert.Equal(t, 1, run.SuccessfulSources)
	assert.Equal(t, 1, run.FailedSources)
	assert.Equal(t, 1, run.JobsFound)
	assert.Equal(t, 1, run.JobsOpened)
	assert.Contains(t, run.ErrorsSummary, "lever:flakyair")
	assert.Contains(t, run.ErrorsSummary, "503")
}

func Test_Reconcile_RollsBackWholeCycleOnFailure(t *testing.T) {

	defer clearDb()

	jobs := repositories.NewJobsRepository(dbCtx.DB)

	err := jobs.InTransaction(context.Background(), func(txCtx context.Context) error {
		hash := services.ComputeContentHash(captainRecord)
		if err := jobs.Create(txCtx, entities.NewJob(captainRecord, hash, time.Now().UTC())); err != nil {
			return err
		}
		return errors.New("mid-cycle failure")
	})
	assert.Error(t, err)

	total, err := jobs.CountTotal(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total, "a failed cycle must leave no partial writes")
}
