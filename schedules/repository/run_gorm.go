package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"gorm.io/gorm"
)

type scheduleRunModel struct {
	ID             string    `gorm:"primaryKey"`
	ScheduleID     string    `gorm:"index:idx_schedule_runs_schedule_started,priority:1;not null"`
	StartedAt      time.Time `gorm:"index:idx_schedule_runs_schedule_started,priority:2;not null"`
	FinishedAt     time.Time
	Minute         string
	Trigger        string `gorm:"not null"`
	Status         string `gorm:"index:idx_schedule_runs_status;not null"`
	Message        string `gorm:"type:text"`
	TotalFetched   int
	TotalAvailable int
	SelectedCount  int
	SentCount      int
}

func (scheduleRunModel) TableName() string {
	return "schedule_runs"
}

type RunGormRepository struct {
	db *gorm.DB
}

func NewRunGormRepository(db *gorm.DB) *RunGormRepository {
	return &RunGormRepository{db: db}
}

func (r *RunGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&scheduleRunModel{})
}

func (r *RunGormRepository) Record(ctx context.Context, run *domain.ExecutionRun) error {
	if run.ID == "" {
		return fmt.Errorf("run of schedule %s has no execution id", run.ScheduleID)
	}
	model := toScheduleRunModel(run)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunGormRepository) GetByID(ctx context.Context, id string) (*domain.ExecutionRun, error) {
	var m scheduleRunModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, err
	}
	run := fromScheduleRunModel(m)
	return &run, nil
}

// ListBySchedule returns runs newest first.
func (r *RunGormRepository) ListBySchedule(ctx context.Context, scheduleID string, limit int) ([]domain.ExecutionRun, error) {
	var models []scheduleRunModel
	query := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ExecutionRun, 0, len(models))
	for _, m := range models {
		out = append(out, fromScheduleRunModel(m))
	}
	return out, nil
}

func (r *RunGormRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&scheduleRunModel{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *RunGormRepository) DeleteBySchedule(ctx context.Context, scheduleID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&scheduleRunModel{}, "schedule_id = ?", scheduleID)
	return result.RowsAffected, result.Error
}

func (r *RunGormRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&scheduleRunModel{}, "started_at < ?", cutoff.UTC())
	return result.RowsAffected, result.Error
}

func toScheduleRunModel(run *domain.ExecutionRun) scheduleRunModel {
	return scheduleRunModel{
		ID:             run.ID,
		ScheduleID:     run.ScheduleID,
		StartedAt:      run.StartedAt.UTC(),
		FinishedAt:     run.FinishedAt.UTC(),
		Minute:         run.Minute,
		Trigger:        string(run.Trigger),
		Status:         string(run.Status),
		Message:        run.Message,
		TotalFetched:   run.TotalFetched,
		TotalAvailable: run.TotalAvailable,
		SelectedCount:  run.SelectedCount,
		SentCount:      run.SentCount,
	}
}

func fromScheduleRunModel(m scheduleRunModel) domain.ExecutionRun {
	return domain.ExecutionRun{
		ID:             m.ID,
		ScheduleID:     m.ScheduleID,
		Minute:         m.Minute,
		Trigger:        domain.RunTrigger(m.Trigger),
		Status:         domain.RunStatus(m.Status),
		Message:        m.Message,
		TotalFetched:   m.TotalFetched,
		TotalAvailable: m.TotalAvailable,
		SelectedCount:  m.SelectedCount,
		SentCount:      m.SentCount,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
	}
}
