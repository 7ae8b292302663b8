package repositories

import (
	"context"
	"time"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

type txKey struct{}

// InTransaction runs fn with a transactional connection carried in the
// context; every repository call made with that context joins the same
// transaction, and any error from fn rolls the whole cycle back.
func (repo *Jobs) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (repo *Jobs) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return repo.db.WithContext(ctx)
}

// GetByKey returns the persisted job for an identity key, or nil when the key
// was never observed.
func (repo *Jobs) GetByKey(ctx context.Context, source, externalID string) (*entities.Job, error) {

	var job entities.Job
	err := repo.conn(ctx).First(&job, "source = ? AND external_id = ?", source, externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// OpenJobs returns all currently open jobs, restricted to the given sources
// when the slice is non-empty.
func (repo *Jobs) OpenJobs(ctx context.Context, sources []string) ([]entities.Job, error) {

	query := repo.conn(ctx).Where("is_open = ?", true)
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}

	var jobs []entities.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) Create(ctx context.Context, job *entities.Job) error {
	return repo.conn(ctx).Create(job).Error
}

func (repo *Jobs) Update(ctx context.Context, job *entities.Job) error {
	return repo.conn(ctx).Save(job).Error
}

func (repo *Jobs) AppendStatusEvent(ctx context.Context, jobID int, change entities.StatusChange, at time.Time) error {
	return repo.conn(ctx).Create(&entities.JobStatusEvent{
		JobID:     jobID,
		Change:    change,
		ChangedAt: at,
	}).Error
}

func (repo *Jobs) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := repo.conn(ctx).Model(&entities.Job{}).Where("is_open = ?", true).Count(&count).Error
	return count, err
}

func (repo *Jobs) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := repo.conn(ctx).Model(&entities.Job{}).Count(&count).Error
	return count, err
}

// RemoveClosedBefore deletes jobs that have been closed since before the
// cutoff, together with their status history.
func (repo *Jobs) RemoveClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {

	var expired []entities.Job
	err := repo.conn(ctx).Select("id").
		Find(&expired, "is_open = ? AND closed_at < ?", false, cutoff).Error
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]int, len(expired))
	for i, job := range expired {
		ids[i] = job.ID
	}

	if err = repo.conn(ctx).Delete(&entities.JobStatusEvent{}, "job_id IN ?", ids).Error; err != nil {
		return 0, err
	}

	res := repo.conn(ctx).Delete(&entities.Job{}, "id IN ?", ids)
	return res.RowsAffected, res.Error
}
