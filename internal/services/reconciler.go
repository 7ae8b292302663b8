package services

import (
	"context"
	"time"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type jobStore interface {
	InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
	GetByKey(ctx context.Context, source, externalID string) (*entities.Job, error)
	OpenJobs(ctx context.Context, sources []string) ([]entities.Job, error)
	Create(ctx context.Context, job *entities.Job) error
	Update(ctx context.Context, job *entities.Job) error
	AppendStatusEvent(ctx context.Context, jobID int, change entities.StatusChange, at time.Time) error
}

// Delta is the outcome of one reconciliation cycle. Reopened jobs are
// reported in Opened with their reopen metadata so the notifier can phrase
// them differently; Closed carries only historical stubs.
type Delta struct {
	Opened  []entities.OpenedJob
	Closed  []entities.ClosedJob
	Updated []entities.JobRecord
	Skipped int
}

// Reconciler decides, exactly once per cycle and inside one transaction, what
// changed between the previous persisted state and a freshly scraped batch.
type Reconciler struct {
	store       jobStore
	now         func() time.Time
	globalSweep bool
}

func NewReconciler(store jobStore) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("job store is nil")
	}
	return &Reconciler{store: store, now: time.Now}, nil
}

// WithClock replaces the time source, for deterministic tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// WithGlobalCloseSweep makes the closure sweep consider every previously open
// job instead of only those from successfully scraped sources. This restores
// the legacy behavior and risks mass false closures when a source silently
// returns zero results.
func (r *Reconciler) WithGlobalCloseSweep(global bool) *Reconciler {
	r.globalSweep = global
	return r
}

// Reconcile compares the batch against persisted state and commits the next
// state atomically. Only jobs whose source is listed in scrapedSources are
// eligible for closure, so a failed extractor never closes its jobs by
// absence. Re-running with an identical batch yields an empty delta.
func (r *Reconciler) Reconcile(ctx context.Context, batch []entities.JobRecord,
	scrapedSources []string) (*Delta, error) {

	var delta *Delta
	err := r.store.InTransaction(ctx, func(txCtx context.Context) error {
		var err error
		delta, err = r.reconcile(txCtx, batch, scrapedSources)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "reconciliation cycle failed")
	}
	return delta, nil
}

func (r *Reconciler) reconcile(ctx context.Context, batch []entities.JobRecord,
	scrapedSources []string) (*Delta, error) {

	now := r.now().UTC()
	delta := &Delta{}

	// Snapshot before any mutation so jobs inserted below can't close themselves.
	// When no source scraped successfully there is nothing trustworthy to diff
	// against, so the sweep is skipped entirely rather than closing the whole
	// store through an unfiltered query.
	var openBefore []entities.Job
	var err error
	if r.globalSweep {
		openBefore, err = r.store.OpenJobs(ctx, nil)
	} else if len(scrapedSources) > 0 {
		openBefore, err = r.store.OpenJobs(ctx, scrapedSources)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[entities.JobKey]struct{}, len(batch))

	for _, record := range batch {

		record, err := r.prepareRecord(record)
		if err != nil {
			delta.Skipped++
			continue
		}

		key := record.Key()
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}

		contentHash := ComputeContentHash(record)

		existing, err := r.store.GetByKey(ctx, key.Source, key.ExternalID)
		if err != nil {
			return nil, err
		}

		switch {
		case existing == nil:
			job := entities.NewJob(record, contentHash, now)
			if err = r.store.Create(ctx, job); err != nil {
				return nil, err
			}
			if err = r.store.AppendStatusEvent(ctx, job.ID, entities.StatusOpened, now); err != nil {
				return nil, err
			}
			delta.Opened = append(delta.Opened, entities.OpenedJob{Record: record})
			log.Debugf("new job: %v at %v", record.Title, record.Company)

		case !existing.IsOpen:
			existing.Reopen(record, contentHash, now)
			if err = r.store.Update(ctx, existing); err != nil {
				return nil, err
			}
			if err = r.store.AppendStatusEvent(ctx, existing.ID, entities.StatusReopened, now); err != nil {
				return nil, err
			}
			delta.Opened = append(delta.Opened, entities.OpenedJob{
				Record:      record,
				Reopened:    true,
				ReopenCount: existing.ReopenCount,
			})
			log.Infof("job reopened: %v at %v", record.Title, record.Company)

		default:
			changed := existing.ContentHash != contentHash
			existing.Refresh(record, contentHash, now)
			if err = r.store.Update(ctx, existing); err != nil {
				return nil, err
			}
			if changed {
				delta.Updated = append(delta.Updated, record)
				log.Debugf("job updated: %v at %v", record.Title, record.Company)
			}
		}
	}

	for _, job := range openBefore {
		if _, observed := seen[job.Key()]; observed {
			continue
		}
		job.Close(now)
		if err = r.store.Update(ctx, &job); err != nil {
			return nil, err
		}
		if err = r.store.AppendStatusEvent(ctx, job.ID, entities.StatusClosed, now); err != nil {
			return nil, err
		}
		delta.Closed = append(delta.Closed, job.ClosedStub())
		log.Debugf("job closed: %v at %v", job.Title, job.Company)
	}

	return delta, nil
}

// prepareRecord fills in a derived external id when the origin provided none.
// A record that can't produce an identity is skipped, never fatal.
func (r *Reconciler) prepareRecord(record entities.JobRecord) (entities.JobRecord, error) {

	if record.Source == "" {
		log.Warn("skipping record with empty source")
		return record, ErrNoIdentity
	}

	if record.ExternalID == "" {
		id, err := ComputeExternalID(record)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeExtractor).
				Warnf("skipping record from %v without derivable external id", record.Source)
			return record, err
		}
		record.ExternalID = id
	}

	return record, nil
}
