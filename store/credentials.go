package store

import (
	"context"

	"fx-client-portal/models"

	"gorm.io/gorm"
)

type CredentialStore struct {
	DB *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{DB: db}
}

func (s *CredentialStore) Create(ctx context.Context, c *models.BrokerCredential) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

func (s *CredentialStore) Get(ctx context.Context, id string) (*models.BrokerCredential, error) {
	var c models.BrokerCredential
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CredentialStore) ListByUser(ctx context.Context, userID string) ([]models.BrokerCredential, error) {
	var creds []models.BrokerCredential
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&creds).Error
	return creds, err
}

// ListAll joins the newest client record of each account for its name.
func (s *CredentialStore) ListAll(ctx context.Context) ([]models.BrokerCredential, error) {
	var creds []models.BrokerCredential
	err := s.DB.WithContext(ctx).
		Table("broker_credentials").
		Select("broker_credentials.*, (SELECT full_name FROM clients WHERE clients.user_id = broker_credentials.user_id ORDER BY created_at DESC LIMIT 1) AS client_name").
		Order("broker_credentials.created_at DESC").
		Scan(&creds).Error
	return creds, err
}

func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.BrokerCredential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}
