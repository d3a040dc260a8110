package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	var s domain.Setting
	err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Set(ctx context.Context, key string, value datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}).Error
}

func (r *settingsRepository) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Set(ctx, key, datatypes.JSON(raw))
}

// GetPrivilegedVoters reads the weighted-voter override list; a missing
// row is an empty list, not an error.
func (r *settingsRepository) GetPrivilegedVoters(ctx context.Context) ([]domain.PrivilegedVoter, error) {
	s, err := r.Get(ctx, domain.SettingPrivilegedVoters)
	if err != nil || s == nil {
		return nil, err
	}
	var voters []domain.PrivilegedVoter
	if err := json.Unmarshal(s.Value, &voters); err != nil {
		return nil, err
	}
	return voters, nil
}
