package infrastructure

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type runtimeSettingModel struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value;type:text"`
	UpdatedAt time.Time
}

func (runtimeSettingModel) TableName() string {
	return "runtime_settings"
}

// GlobalSettingsGormRepository is a key/value table of operator settings.
type GlobalSettingsGormRepository struct {
	db *gorm.DB
}

func NewGlobalSettingsGormRepository(db *gorm.DB) *GlobalSettingsGormRepository {
	return &GlobalSettingsGormRepository{db: db}
}

func (r *GlobalSettingsGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&runtimeSettingModel{})
}

// Get returns "" for a missing key.
func (r *GlobalSettingsGormRepository) Get(ctx context.Context, key string) (string, error) {
	var m runtimeSettingModel
	if err := r.db.WithContext(ctx).First(&m, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(m.Value), nil
}

func (r *GlobalSettingsGormRepository) Set(ctx context.Context, key string, value string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": now}),
	}).Create(&runtimeSettingModel{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}).Error
}

func (r *GlobalSettingsGormRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&runtimeSettingModel{}, "key = ?", key).Error
}
