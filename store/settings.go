package store

import (
	"context"
	"errors"
	"time"

	"fx-client-portal/ledger"
	"fx-client-portal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingStore struct {
	DB *gorm.DB
}

func NewSettingStore(db *gorm.DB) *SettingStore {
	return &SettingStore{DB: db}
}

func (s *SettingStore) All(ctx context.Context) ([]models.AdminSetting, error) {
	var settings []models.AdminSetting
	err := s.DB.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}

// Save upserts every changed key in one transaction, bumping its version.
// A key listed in expected must still be at that version or nothing is
// written.
func (s *SettingStore) Save(ctx context.Context, changes map[string]string, expected map[string]int64, at time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range ledger.ChangedKeys(changes) {
			if want, ok := expected[key]; ok {
				var cur models.AdminSetting
				err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("key = ?", key).First(&cur).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					if want != 0 {
						return ledger.ErrConflict
					}
				case err != nil:
					return err
				case cur.Version != want:
					return ledger.ErrConflict
				}
			}

			row := models.AdminSetting{Key: key, Value: changes[key], Version: 1, UpdatedAt: at}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "key"}},
				DoUpdates: clause.Assignments(map[string]any{
					"value":      changes[key],
					"version":    gorm.Expr("admin_settings.version + 1"),
					"updated_at": at,
				}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
