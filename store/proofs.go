package store

import (
	"context"
	"time"

	"fx-client-portal/ledger"
	"fx-client-portal/models"

	"gorm.io/gorm"
)

type ProofStore struct {
	DB *gorm.DB
}

func NewProofStore(db *gorm.DB) *ProofStore {
	return &ProofStore{DB: db}
}

func (s *ProofStore) Create(ctx context.Context, p *models.PaymentProof) error {
	return s.DB.WithContext(ctx).Create(p).Error
}

func (s *ProofStore) Get(ctx context.Context, id string) (*models.PaymentProof, error) {
	var p models.PaymentProof
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *ProofStore) ListByClient(ctx context.Context, clientID string) ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := s.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&proofs).Error
	return proofs, err
}

// ListAll returns every proof, newest first, with the owning client's name.
func (s *ProofStore) ListAll(ctx context.Context, status ledger.ProofStatus) ([]models.PaymentProof, error) {
	q := s.DB.WithContext(ctx).
		Table("payment_proofs").
		Select("payment_proofs.*, clients.full_name AS client_name").
		Joins("LEFT JOIN clients ON clients.id = payment_proofs.client_id")
	if status != "" {
		q = q.Where("payment_proofs.status = ?", status)
	}

	var proofs []models.PaymentProof
	err := q.Order("payment_proofs.created_at DESC").Scan(&proofs).Error
	return proofs, err
}

// ConfirmPending flips a proof from pending to confirmed. It reports false
// when the proof was already confirmed.
func (s *ProofStore) ConfirmPending(ctx context.Context, id, operatorID string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.PaymentProof{}).
		Where("id = ? AND status = ?", id, ledger.ProofPending).
		Updates(map[string]any{
			"status":       ledger.ProofConfirmed,
			"confirmed_at": at,
			"confirmed_by": operatorID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *ProofStore) CountPending(ctx context.Context, clientID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.PaymentProof{}).
		Where("client_id = ? AND status = ?", clientID, ledger.ProofPending).
		Count(&n).Error
	return n, err
}
