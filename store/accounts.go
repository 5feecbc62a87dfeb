package store

import (
	"context"
	"time"

	"fx-client-portal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountStore struct {
	DB *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{DB: db}
}

func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.DB.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *AccountStore) Get(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *AccountStore) Roles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := s.DB.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	return roles, err
}

func (s *AccountStore) GrantRole(ctx context.Context, userID, role string) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
}

func (s *AccountStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RevokedToken{TokenID: tokenID, ExpiresAt: expiresAt}).Error
}

func (s *AccountStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("token_id = ?", tokenID).
		Count(&n).Error
	return n > 0, err
}

// PurgeRevoked drops revocations whose tokens have expired anyway.
func (s *AccountStore) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
