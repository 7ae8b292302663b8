package services

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/events"
	"github.com/avwatch/pilot-tracker/internal/extractors"
	"github.com/avwatch/pilot-tracker/internal/logger"
	"github.com/avwatch/pilot-tracker/internal/metrics"
	"github.com/avwatch/pilot-tracker/internal/scoring"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type runRepository interface {
	Start(ctx context.Context, startedAt time.Time) (int, error)
	Finish(ctx context.Context, runID int, finishedAt time.Time, stats entities.RunStats) error
}

type jobStatsRepository interface {
	CountOpen(ctx context.Context) (int64, error)
	CountTotal(ctx context.Context) (int64, error)
}

// Tracker drives the scraping cycle: it invokes every extractor, applies the
// relevance filter, hands the combined batch to the reconciler exactly once
// and publishes the resulting delta on the event bus.
type Tracker struct {
	bus           EventBus.Bus
	reconciler    *Reconciler
	runs          runRepository
	jobStats      jobStatsRepository
	extractors    []extractors.Extractor
	interval      time.Duration
	pilotOnly     bool
	minimumScore  int
	validate      *validator.Validate
	cycleComplete func()
}

func NewTracker(bus EventBus.Bus, reconciler *Reconciler, runs runRepository,
	jobStats jobStatsRepository, sources []extractors.Extractor, interval time.Duration) (*Tracker, error) {

	if reconciler == nil {
		return nil, errors.New("reconciler is nil")
	}
	if len(sources) == 0 {
		return nil, errors.New("at least one extractor is required")
	}

	return &Tracker{
		bus:        bus,
		reconciler: reconciler,
		runs:       runs,
		jobStats:   jobStats,
		extractors: sources,
		interval:   interval,
		validate:   validator.New(),
	}, nil
}

// WithRelevanceFilter configures the pilot scoring policy applied to every
// batch before reconciliation.
func (t *Tracker) WithRelevanceFilter(pilotOnly bool, minimumScore int) *Tracker {
	t.pilotOnly = pilotOnly
	t.minimumScore = minimumScore
	return t
}

func (t *Tracker) WithCycleCompleteCallback(callback func()) *Tracker {
	t.cycleComplete = callback
	return t
}

func (t *Tracker) Run(ctx context.Context) {
	for {
		startTime := time.Now()
		log.Infof("running scrape cycle at %v", startTime)

		t.runCycle(ctx)

		executionTime := time.Since(startTime)
		metrics.CycleDuration.Observe(executionTime.Seconds())
		log.Infof("scrape cycle ended after %v", executionTime)

		if t.cycleComplete != nil {
			t.cycleComplete()
		}

		var sleepTime time.Duration
		if executionTime <= t.interval {
			sleepTime = t.interval - executionTime
		} else {
			t.interval = executionTime + time.Hour
			log.Infof("scrape interval extended to %v", t.interval)
		}

		log.Infof("next scrape cycle at %v", time.Now().Add(sleepTime))

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepTime):
		}
	}
}

func (t *Tracker) runCycle(ctx context.Context) {

	startedAt := time.Now().UTC()
	runID, err := t.runs.Start(ctx, startedAt)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to start run record: %v", err)
		return
	}

	batch, scrapedSources, stats := t.collectBatch(ctx)

	delta, err := t.reconciler.Reconcile(ctx, batch, scrapedSources)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("reconciliation failed: %v", err)
		stats.Errors["reconcile"] = err.Error()
		t.finishRun(ctx, runID, stats)
		return
	}

	stats.JobsOpened = len(delta.Opened)
	stats.JobsClosed = len(delta.Closed)
	stats.JobsUpdated = len(delta.Updated)
	stats.SkippedRecords += delta.Skipped

	metrics.JobsOpenedCounter.Add(float64(len(delta.Opened)))
	metrics.JobsClosedCounter.Add(float64(len(delta.Closed)))
	metrics.JobsUpdatedCounter.Add(float64(len(delta.Updated)))

	t.publishDelta(ctx, delta, stats)
	t.finishRun(ctx, runID, stats)

	log.Infof("cycle done: %v sources (%v failed), %v jobs found, %v opened, %v closed, %v updated",
		stats.TotalSources, stats.FailedSources, stats.JobsFound,
		stats.JobsOpened, stats.JobsClosed, stats.JobsUpdated)
}

// collectBatch runs every extractor and returns the combined filtered batch
// together with the sources that scraped successfully. A failing extractor is
// recorded but never aborts the cycle; its previously open jobs are protected
// from the closure sweep by its absence from scrapedSources.
func (t *Tracker) collectBatch(ctx context.Context) ([]entities.JobRecord, []string, entities.RunStats) {

	stats := entities.RunStats{
		TotalSources: len(t.extractors),
		Errors:       map[string]string{},
	}

	var batch []entities.JobRecord
	var scrapedSources []string

	for _, extractor := range t.extractors {

		select {
		case <-ctx.Done():
			return batch, scrapedSources, stats
		default:
		}

		start := time.Now()
		records, err := extractor.Fetch(ctx)
		metrics.SourceScrapeDuration.WithLabelValues(extractor.Source()).Observe(time.Since(start).Seconds())

		if err != nil {
			stats.FailedSources++
			stats.Errors[extractor.Source()] = err.Error()
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeExtractor).
				Errorf("failed to fetch from %v: %v", extractor.Source(), err)
			continue
		}

		stats.SuccessfulSources++
		scrapedSources = append(scrapedSources, extractor.Source())

		valid := records[:0]
		for _, record := range records {
			if err := t.validate.Struct(record); err != nil {
				stats.SkippedRecords++
				log.Warnf("skipping invalid record from %v: %v", extractor.Source(), err)
				continue
			}
			valid = append(valid, record)
		}

		filtered := scoring.Apply(valid, t.pilotOnly, t.minimumScore)
		stats.JobsFound += len(filtered)
		batch = append(batch, filtered...)

		log.Infof("fetched %v jobs from %v, %v pilot-relevant", len(records), extractor.Source(), len(filtered))
	}

	return batch, scrapedSources, stats
}

func (t *Tracker) publishDelta(ctx context.Context, delta *Delta, stats entities.RunStats) {

	for _, opened := range delta.Opened {
		t.bus.Publish(events.JobOpenedTopic, events.JobOpened{
			Job:         opened.Record,
			Reopened:    opened.Reopened,
			ReopenCount: opened.ReopenCount,
		})
	}

	for _, updated := range delta.Updated {
		t.bus.Publish(events.JobUpdatedTopic, events.JobUpdated{Job: updated})
	}

	for _, closed := range delta.Closed {
		t.bus.Publish(events.JobClosedTopic, events.JobClosed{Job: closed})
	}

	summary := events.CycleCompleted{Stats: stats}

	if open, err := t.jobStats.CountOpen(ctx); err == nil {
		summary.CurrentlyOpen = open
		metrics.OpenJobsGauge.Set(float64(open))
	}
	if total, err := t.jobStats.CountTotal(ctx); err == nil {
		summary.TotalTracked = total
	}

	t.bus.Publish(events.CycleCompletedTopic, summary)
}

func (t *Tracker) finishRun(ctx context.Context, runID int, stats entities.RunStats) {
	if err := t.runs.Finish(ctx, runID, time.Now().UTC(), stats); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to finish run record: %v", err)
	}
}
