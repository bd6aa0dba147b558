package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type scheduleModel struct {
	ID       string `gorm:"primaryKey"`
	UserID   string `gorm:"index:idx_schedules_user"`
	Name     string `gorm:"not null"`
	Active   bool   `gorm:"index:idx_schedules_active"`
	Kind     string `gorm:"not null;default:'daily'"`
	Timezone string `gorm:"default:'UTC'"`

	FireTimes string `gorm:"type:text;default:'[]'"` // JSON
	WeekDays  string `gorm:"type:text;default:'[]'"` // JSON

	PostsPerRun int
	MaxItems    int
	SortBy      string
	Mix         string `gorm:"type:text;default:'{}'"` // JSON

	PreventDuplicates    bool
	DuplicateWindowHours int

	Keywords          string `gorm:"type:text;default:'[]'"` // JSON
	SkipKeywordFilter bool
	Filters           string `gorm:"type:text;default:'{}'"` // JSON

	Template      string `gorm:"type:text;default:'{}'"` // JSON
	UseAIRewrite  bool   `gorm:"column:use_ai_rewrite"`
	RewritePrompt string `gorm:"type:text"`
	ChatID        string

	LastRunAt *time.Time `gorm:"column:last_run_at"`
	TotalSent int64      `gorm:"default:0"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (scheduleModel) TableName() string {
	return "schedules"
}

// --- Repository Implementation ---

type ScheduleGormRepository struct {
	db *gorm.DB
}

func NewScheduleGormRepository(db *gorm.DB) *ScheduleGormRepository {
	return &ScheduleGormRepository{db: db}
}

func (r *ScheduleGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&scheduleModel{})
}

func (r *ScheduleGormRepository) Create(ctx context.Context, s *domain.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	model, err := toScheduleModel(s)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateSchedule
		}
		return err
	}
	return nil
}

func (r *ScheduleGormRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var m scheduleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return fromScheduleModel(m)
}

func (r *ScheduleGormRepository) Update(ctx context.Context, s *domain.Schedule) error {
	s.UpdatedAt = time.Now().UTC()
	model, err := toScheduleModel(s)
	if err != nil {
		return err
	}

	// Select("*") so false/zero fields are written too.
	result := r.db.WithContext(ctx).Model(&scheduleModel{ID: s.ID}).Select("*").Omit("created_at").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleGormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&scheduleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleGormRepository) List(ctx context.Context, filter domain.ScheduleFilter) ([]*domain.Schedule, error) {
	var models []scheduleModel
	query := r.db.WithContext(ctx).Model(&scheduleModel{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	query = query.Order("created_at ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromScheduleModels(models)
}

func (r *ScheduleGormRepository) ListActive(ctx context.Context) ([]*domain.Schedule, error) {
	return r.List(ctx, domain.ScheduleFilter{ActiveOnly: true})
}

func (r *ScheduleGormRepository) MarkRun(ctx context.Context, id string, at time.Time, sent int) error {
	result := r.db.WithContext(ctx).Model(&scheduleModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_run_at": at.UTC(),
		"total_sent":  gorm.Expr("total_sent + ?", sent),
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// --- Mappers ---

func toScheduleModel(s *domain.Schedule) (scheduleModel, error) {
	fireTimes := s.FireTimes
	if fireTimes == nil {
		fireTimes = []string{}
	}
	weekDays := s.WeekDays
	if weekDays == nil {
		weekDays = []int{}
	}
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	fields := map[string]any{
		"fire_times": fireTimes,
		"week_days":  weekDays,
		"keywords":   keywords,
		"mix":        s.Mix,
		"filters":    s.Filters,
		"template":   s.Template,
	}
	encoded := make(map[string]string, len(fields))
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return scheduleModel{}, fmt.Errorf("marshal %s: %w", name, err)
		}
		encoded[name] = string(raw)
	}

	var lastRun *time.Time
	if s.LastRunAt != nil {
		t := s.LastRunAt.UTC()
		lastRun = &t
	}

	return scheduleModel{
		ID:                   s.ID,
		UserID:               s.UserID,
		Name:                 s.Name,
		Active:               s.Active,
		Kind:                 string(s.Kind),
		Timezone:             s.Timezone,
		FireTimes:            encoded["fire_times"],
		WeekDays:             encoded["week_days"],
		PostsPerRun:          s.PostsPerRun,
		MaxItems:             s.MaxItems,
		SortBy:               string(s.SortBy),
		Mix:                  encoded["mix"],
		PreventDuplicates:    s.PreventDuplicates,
		DuplicateWindowHours: s.DuplicateWindowHours,
		Keywords:             encoded["keywords"],
		SkipKeywordFilter:    s.SkipKeywordFilter,
		Filters:              encoded["filters"],
		Template:             encoded["template"],
		UseAIRewrite:         s.UseAIRewrite,
		RewritePrompt:        s.RewritePrompt,
		ChatID:               s.ChatID,
		LastRunAt:            lastRun,
		TotalSent:            s.TotalSent,
		CreatedAt:            s.CreatedAt.UTC(),
		UpdatedAt:            s.UpdatedAt.UTC(),
	}, nil
}

func fromScheduleModel(m scheduleModel) (*domain.Schedule, error) {
	s := &domain.Schedule{
		ID:                   m.ID,
		UserID:               m.UserID,
		Name:                 m.Name,
		Active:               m.Active,
		Kind:                 domain.ScheduleKind(m.Kind),
		Timezone:             m.Timezone,
		PostsPerRun:          m.PostsPerRun,
		MaxItems:             m.MaxItems,
		SortBy:               domain.SortCriterion(m.SortBy),
		PreventDuplicates:    m.PreventDuplicates,
		DuplicateWindowHours: m.DuplicateWindowHours,
		SkipKeywordFilter:    m.SkipKeywordFilter,
		UseAIRewrite:         m.UseAIRewrite,
		RewritePrompt:        m.RewritePrompt,
		ChatID:               m.ChatID,
		LastRunAt:            m.LastRunAt,
		TotalSent:            m.TotalSent,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	decode := []struct {
		name string
		raw  string
		dst  any
	}{
		{"fire_times", m.FireTimes, &s.FireTimes},
		{"week_days", m.WeekDays, &s.WeekDays},
		{"keywords", m.Keywords, &s.Keywords},
		{"mix", m.Mix, &s.Mix},
		{"filters", m.Filters, &s.Filters},
		{"template", m.Template, &s.Template},
	}
	for _, d := range decode {
		if d.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(d.raw), d.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s of schedule %s: %w", d.name, m.ID, err)
		}
	}
	if s.FireTimes == nil {
		s.FireTimes = []string{}
	}
	if s.Keywords == nil {
		s.Keywords = []string{}
	}
	return s, nil
}

func fromScheduleModels(models []scheduleModel) ([]*domain.Schedule, error) {
	out := make([]*domain.Schedule, len(models))
	for i, m := range models {
		s, err := fromScheduleModel(m)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
