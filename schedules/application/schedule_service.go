package application

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgError "github.com/AzielCF/az-tweetcast/pkg/error"
	"github.com/AzielCF/az-tweetcast/pkg/timeutils"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/AzielCF/az-tweetcast/validations"
	"github.com/google/uuid"
)

const (
	DefaultPostsPerRun          = 10
	DefaultMaxItems             = 200
	DefaultDuplicateWindowHours = 24
)

// ScheduleService manages schedule definitions, their runs and their history.
type ScheduleService struct {
	repo    domain.ScheduleRepository
	history domain.HistoryRepository
	runs    domain.RunRepository
	now     func() time.Time
}

func NewScheduleService(repo domain.ScheduleRepository, history domain.HistoryRepository, runs domain.RunRepository) *ScheduleService {
	return &ScheduleService{repo: repo, history: history, runs: runs, now: time.Now}
}

func (s *ScheduleService) Create(ctx context.Context, sch *domain.Schedule) error {
	if sch.ID == "" {
		sch.ID = uuid.New().String()
	}
	if sch.Template == (domain.MessageTemplate{}) {
		sch.Template = domain.DefaultTemplate()
	}
	applyDefaults(sch)
	if err := validations.ValidateSchedule(ctx, sch); err != nil {
		return err
	}

	sch.LastRunAt = nil
	sch.TotalSent = 0
	sch.CreatedAt = s.now().UTC()
	sch.UpdatedAt = sch.CreatedAt

	if err := s.repo.Create(ctx, sch); err != nil {
		if errors.Is(err, domain.ErrDuplicateSchedule) {
			return pkgError.ConflictError(err.Error())
		}
		return err
	}
	return nil
}

func (s *ScheduleService) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces the editable fields. Run statistics are kept from the stored row.
func (s *ScheduleService) Update(ctx context.Context, sch *domain.Schedule) error {
	current, err := s.repo.GetByID(ctx, sch.ID)
	if err != nil {
		return err
	}
	applyDefaults(sch)
	if err := validations.ValidateSchedule(ctx, sch); err != nil {
		return err
	}

	sch.CreatedAt = current.CreatedAt
	sch.LastRunAt = current.LastRunAt
	sch.TotalSent = current.TotalSent
	return s.repo.Update(ctx, sch)
}

func (s *ScheduleService) SetActive(ctx context.Context, id string, active bool) (*domain.Schedule, error) {
	sch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sch.Active = active
	if err := s.repo.Update(ctx, sch); err != nil {
		return nil, err
	}
	return sch, nil
}

// Delete removes the schedule with every run and history row it produced.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if _, err := s.ClearHistory(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context, filter domain.ScheduleFilter) ([]*domain.Schedule, error) {
	return s.repo.List(ctx, filter)
}

// NextRun returns the next fire instant after now.
func (s *ScheduleService) NextRun(ctx context.Context, id string) (time.Time, error) {
	sch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := timeutils.LoadLocation(sch.Timezone)
	if err != nil {
		return time.Time{}, pkgError.ValidationError(err.Error())
	}
	return timeutils.NextOccurrence(sch.FireTimes, sch.IsWeekly(), sch.WeekDays, loc, s.now())
}

// ListExecutions returns the recorded attempts of a schedule, newest first.
func (s *ScheduleService) ListExecutions(ctx context.Context, scheduleID string, limit int) ([]domain.ExecutionRun, error) {
	if _, err := s.repo.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.runs.ListBySchedule(ctx, scheduleID, limit)
}

func (s *ScheduleService) ListHistory(ctx context.Context, scheduleID string, limit int) ([]domain.SentItem, error) {
	return s.history.ListBySchedule(ctx, scheduleID, limit)
}

// GetExecution returns the run and its delivered items. Either one is enough
// for the execution to exist.
func (s *ScheduleService) GetExecution(ctx context.Context, executionID string) (*domain.ExecutionDetail, error) {
	run, err := s.runs.GetByID(ctx, executionID)
	if err != nil && !errors.Is(err, domain.ErrExecutionNotFound) {
		return nil, err
	}
	items, err := s.history.ListByExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if run == nil && len(items) == 0 {
		return nil, domain.ErrExecutionNotFound
	}
	return &domain.ExecutionDetail{Run: run, Items: items}, nil
}

// DeleteExecution undoes the audit trail of one run and returns the number of
// history rows removed.
func (s *ScheduleService) DeleteExecution(ctx context.Context, executionID string) (int64, error) {
	n, err := s.history.DeleteByExecution(ctx, executionID)
	if err != nil {
		return 0, err
	}
	runs, err := s.runs.Delete(ctx, executionID)
	if err != nil {
		return 0, err
	}
	if n == 0 && runs == 0 {
		return 0, domain.ErrExecutionNotFound
	}
	return n, nil
}

// ClearHistory drops every run of the schedule and returns the number of
// history rows removed.
func (s *ScheduleService) ClearHistory(ctx context.Context, scheduleID string) (int64, error) {
	n, err := s.history.DeleteBySchedule(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	if _, err := s.runs.DeleteBySchedule(ctx, scheduleID); err != nil {
		return 0, err
	}
	return n, nil
}

func applyDefaults(sch *domain.Schedule) {
	sch.Name = strings.TrimSpace(sch.Name)
	if sch.Kind == "" {
		sch.Kind = domain.KindDaily
	}
	if strings.TrimSpace(sch.Timezone) == "" {
		sch.Timezone = "UTC"
	}
	if sch.PostsPerRun == 0 {
		sch.PostsPerRun = DefaultPostsPerRun
	}
	if sch.MaxItems == 0 {
		sch.MaxItems = DefaultMaxItems
	}
	if sch.SortBy == "" {
		sch.SortBy = domain.SortTrending
	}
	if sch.PreventDuplicates && sch.DuplicateWindowHours == 0 {
		sch.DuplicateWindowHours = DefaultDuplicateWindowHours
	}
	for i, ft := range sch.FireTimes {
		sch.FireTimes[i] = strings.TrimSpace(ft)
	}
	sch.Keywords = sch.CleanKeywords()
	if sch.Kind != domain.KindWeekly {
		sch.WeekDays = nil
	}
}
