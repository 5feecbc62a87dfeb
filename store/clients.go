package store

import (
	"context"
	"time"

	"fx-client-portal/ledger"
	"fx-client-portal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClientFilter struct {
	Activation ledger.ActivationStatus
	Status     ledger.ClientStatus
}

type ClientStore struct {
	DB *gorm.DB
}

func NewClientStore(db *gorm.DB) *ClientStore {
	return &ClientStore{DB: db}
}

func (s *ClientStore) Create(ctx context.Context, c *models.Client) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

func (s *ClientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *ClientStore) FindByUserID(ctx context.Context, userID string) (*models.Client, error) {
	var c models.Client
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindUnlinkedByEmail returns the newest application submitted with email
// that has not been tied to an account yet.
func (s *ClientStore) FindUnlinkedByEmail(ctx context.Context, email string) (*models.Client, error) {
	var c models.Client
	err := s.DB.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND user_id IS NULL", email).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// LinkUser sets user_id only if it is still empty, so two concurrent
// dashboard loads cannot steal each other's record.
func (s *ClientStore) LinkUser(ctx context.Context, id, userID string) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND user_id IS NULL", id).
		Update("user_id", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

func (s *ClientStore) List(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	q := s.DB.WithContext(ctx).Model(&models.Client{})
	if f.Activation != "" {
		q = q.Where("activation_status = ?", f.Activation)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var clients []models.Client
	if err := q.Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// Update writes fields to one client. When expected is set the write only
// lands if last_updated still matches; a miss on an existing row is a
// conflict.
func (s *ClientStore) Update(ctx context.Context, id string, fields map[string]any, expected *time.Time) (*models.Client, error) {
	if _, ok := fields["last_updated"]; !ok {
		fields["last_updated"] = time.Now().UTC()
	}

	q := s.DB.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id)
	if expected != nil {
		q = q.Where("last_updated = ?", expected.UTC())
	}

	res := q.Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ledger.ErrConflict
	}
	return s.Get(ctx, id)
}

// Delete removes a client together with its payment proofs and, when linked,
// the broker credentials of its account, in one transaction.
func (s *ClientStore) Delete(ctx context.Context, id string) (*models.Client, error) {
	var deleted models.Client
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.PaymentProof{}).Error; err != nil {
			return err
		}
		if deleted.UserID != nil {
			if err := tx.Where("user_id = ?", *deleted.UserID).Delete(&models.BrokerCredential{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Client{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// ActivatePending moves every pending, non-rejected client to active in a
// single statement and returns the ids the statement actually changed.
func (s *ClientStore) ActivatePending(ctx context.Context, at time.Time) ([]string, error) {
	var moved []models.Client
	err := s.DB.WithContext(ctx).
		Model(&moved).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("activation_status = ? AND status <> ?", ledger.ActivationPending, ledger.StatusRejected).
		Updates(map[string]any{
			"activation_status": ledger.ActivationActive,
			"last_updated":      at,
		}).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(moved))
	for _, c := range moved {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ApplyBalance sets account_balance on every client whose account owns the
// broker login on server. It returns the ids of the clients it changed.
func (s *ClientStore) ApplyBalance(ctx context.Context, login, server string, balance decimal.Decimal, at time.Time) ([]string, error) {
	owners := s.DB.Model(&models.BrokerCredential{}).
		Select("user_id").
		Where("login_number = ? AND server_name = ?", login, server)

	var changed []models.Client
	err := s.DB.WithContext(ctx).
		Model(&changed).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("user_id IN (?)", owners).
		Updates(map[string]any{
			"account_balance": balance,
			"last_updated":    at,
		}).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(changed))
	for _, c := range changed {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
