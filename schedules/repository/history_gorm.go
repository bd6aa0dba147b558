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

type sentItemModel struct {
	ID          string    `gorm:"primaryKey"`
	ScheduleID  string    `gorm:"index:idx_sent_items_schedule_sent,priority:1;not null"`
	SentAt      time.Time `gorm:"index:idx_sent_items_schedule_sent,priority:2;not null"`
	ExecutionID string    `gorm:"index:idx_sent_items_execution;not null"`
	SourceID    string    `gorm:"index:idx_sent_items_source;not null"`

	URL            string
	Text           string `gorm:"type:text"`
	AuthorHandle   string
	AuthorName     string
	AuthorVerified bool

	LikeCount    int64
	RetweetCount int64
	ReplyCount   int64
	ViewCount    int64

	Media         string `gorm:"type:text;default:'[]'"` // JSON
	PostCreatedAt time.Time
}

func (sentItemModel) TableName() string {
	return "sent_items"
}

type HistoryGormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHistoryGormRepository(db *gorm.DB) *HistoryGormRepository {
	return &HistoryGormRepository{db: db, now: time.Now}
}

func (r *HistoryGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&sentItemModel{})
}

func (r *HistoryGormRepository) Record(ctx context.Context, item *domain.SentItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.SentAt.IsZero() {
		item.SentAt = r.now()
	}
	model, err := toSentItemModel(item)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to record sent item %s: %w", item.SourceID, err)
	}
	return nil
}

func (r *HistoryGormRepository) ListByExecution(ctx context.Context, executionID string) ([]domain.SentItem, error) {
	var models []sentItemModel
	if err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("sent_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromSentItemModels(models)
}

func (r *HistoryGormRepository) ListBySchedule(ctx context.Context, scheduleID string, limit int) ([]domain.SentItem, error) {
	var models []sentItemModel
	query := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("sent_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromSentItemModels(models)
}

func (r *HistoryGormRepository) DeleteByExecution(ctx context.Context, executionID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&sentItemModel{}, "execution_id = ?", executionID)
	return result.RowsAffected, result.Error
}

func (r *HistoryGormRepository) DeleteBySchedule(ctx context.Context, scheduleID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&sentItemModel{}, "schedule_id = ?", scheduleID)
	return result.RowsAffected, result.Error
}

func (r *HistoryGormRepository) RecentIDs(ctx context.Context, scheduleID string, windowHours int) ([]string, error) {
	if windowHours <= 0 {
		return nil, nil
	}
	cutoff := r.now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	var ids []string
	if err := r.db.WithContext(ctx).Model(&sentItemModel{}).
		Distinct().
		Where("schedule_id = ? AND sent_at >= ?", scheduleID, cutoff).
		Pluck("source_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent ids for schedule %s: %w", scheduleID, err)
	}
	return ids, nil
}

func (r *HistoryGormRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&sentItemModel{}, "sent_at < ?", cutoff.UTC())
	return result.RowsAffected, result.Error
}

// --- Mappers ---

func toSentItemModel(s *domain.SentItem) (sentItemModel, error) {
	media := s.Media
	if media == nil {
		media = []domain.MediaAttachment{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return sentItemModel{}, fmt.Errorf("marshal media: %w", err)
	}
	return sentItemModel{
		ID:             s.ID,
		ScheduleID:     s.ScheduleID,
		ExecutionID:    s.ExecutionID,
		SourceID:       s.SourceID,
		SentAt:         s.SentAt.UTC(),
		URL:            s.URL,
		Text:           s.Text,
		AuthorHandle:   s.AuthorHandle,
		AuthorName:     s.AuthorName,
		AuthorVerified: s.AuthorVerified,
		LikeCount:      s.LikeCount,
		RetweetCount:   s.RetweetCount,
		ReplyCount:     s.ReplyCount,
		ViewCount:      s.ViewCount,
		Media:          string(mediaJSON),
		PostCreatedAt:  s.CreatedAt.UTC(),
	}, nil
}

func fromSentItemModels(models []sentItemModel) ([]domain.SentItem, error) {
	out := make([]domain.SentItem, 0, len(models))
	for _, m := range models {
		item := domain.SentItem{
			ID:             m.ID,
			ScheduleID:     m.ScheduleID,
			ExecutionID:    m.ExecutionID,
			SourceID:       m.SourceID,
			SentAt:         m.SentAt,
			URL:            m.URL,
			Text:           m.Text,
			AuthorHandle:   m.AuthorHandle,
			AuthorName:     m.AuthorName,
			AuthorVerified: m.AuthorVerified,
			LikeCount:      m.LikeCount,
			RetweetCount:   m.RetweetCount,
			ReplyCount:     m.ReplyCount,
			ViewCount:      m.ViewCount,
			CreatedAt:      m.PostCreatedAt,
		}
		if m.Media != "" {
			if err := json.Unmarshal([]byte(m.Media), &item.Media); err != nil {
				return nil, fmt.Errorf("unmarshal media of sent item %s: %w", m.ID, err)
			}
		}
		out = append(out, item)
	}
	return out, nil
}
