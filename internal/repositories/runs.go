package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Runs struct {
	db *gorm.DB
}

func NewRunsRepository(db *gorm.DB) *Runs {
	return &Runs{db: db}
}

// Start records the beginning of a scraping cycle and returns the run id.
func (repo *Runs) Start(ctx context.Context, startedAt time.Time) (int, error) {
	run := entities.ScrapingRun{StartedAt: startedAt}
	if err := repo.db.WithContext(ctx).Create(&run).Error; err != nil {
		return 0, err
	}
	return run.ID, nil
}

// Finish completes a run with its aggregate statistics. Extractor errors are
// serialized to JSON so the audit row stays a single table.
func (repo *Runs) Finish(ctx context.Context, runID int, finishedAt time.Time, stats entities.RunStats) error {

	summary := ""
	if len(stats.Errors) > 0 {
		raw, err := json.Marshal(stats.Errors)
		if err != nil {
			return err
		}
		summary = string(raw)
	}

	return repo.db.WithContext(ctx).Model(&entities.ScrapingRun{}).Where("id = ?", runID).
		Updates(map[string]any{
			"finished_at":        finishedAt,
			"total_sources":      stats.TotalSources,
			"successful_sources": stats.SuccessfulSources,
			"failed_sources":     stats.FailedSources,
			"jobs_found":         stats.JobsFound,
			"jobs_opened":        stats.JobsOpened,
			"jobs_closed":        stats.JobsClosed,
			"jobs_updated":       stats.JobsUpdated,
			"skipped_records":    stats.SkippedRecords,
			"errors_summary":     summary,
		}).Error
}

// LastFinished returns the most recent completed run, or nil when no cycle
// has finished yet.
func (repo *Runs) LastFinished(ctx context.Context) (*entities.ScrapingRun, error) {
	var run entities.ScrapingRun
	err := repo.db.WithContext(ctx).Where("finished_at IS NOT NULL").
		Order("finished_at DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (repo *Runs) GetByID(ctx context.Context, runID int) (*entities.ScrapingRun, error) {
	var run entities.ScrapingRun
	if err := repo.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// RemoveStartedBefore deletes audit rows older than the retention horizon.
func (repo *Runs) RemoveStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.ScrapingRun{}, "started_at < ?", cutoff)
	return res.RowsAffected, res.Error
}
