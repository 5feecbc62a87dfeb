package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/metrics"
	"fx-client-portal/models"
	"fx-client-portal/notifier"
	"fx-client-portal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProofUpload is the screenshot a client attaches to a settlement.
type ProofUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Amount      *decimal.Decimal
}

type ProofService struct {
	Dashboard *DashboardService
	Clients   ClientStore
	Proofs    ProofStore
	Blobs     BlobStore
	Bus       changefeed.Bus
	Notifier  notifier.Notifier
	Logger    *slog.Logger
}

// Submit uploads the screenshot and records a pending proof. An active
// client moves to pending settlement.
func (s *ProofService) Submit(ctx context.Context, sess *Session, up ProofUpload) (*models.PaymentProof, error) {
	c, err := s.Dashboard.ResolveClient(ctx, sess)
	if err != nil {
		return nil, err
	}
	if ledger.ResolveView(true, c.Status, c.AgreementAccepted) != ledger.ViewDashboard {
		return nil, ledger.ErrForbidden
	}

	share := c.Share()
	if err := ledger.CanSubmitProof(c.Status, share); err != nil {
		return nil, err
	}
	amount, err := ledger.ProofAmount(up.Amount, share)
	if err != nil {
		return nil, err
	}
	if !utils.IsImageFile(up.Filename) {
		return nil, ledger.NewValidationError("screenshot", "Upload an image file")
	}

	at := now()
	url, err := s.Blobs.Upload(ctx, utils.ProofKey(sess.UserID, up.Filename, at), up.ContentType, up.Body)
	if err != nil {
		s.Logger.Error("❌ screenshot upload failed", "client_id", c.ID, "err", err)
		return nil, fmt.Errorf("upload screenshot: %w", err)
	}

	proof := &models.PaymentProof{
		ID:            uuid.NewString(),
		ClientID:      c.ID,
		UserID:        sess.UserID,
		ScreenshotURL: url,
		Amount:        amount,
		Status:        ledger.ProofPending,
	}
	if err := s.Proofs.Create(ctx, proof); err != nil {
		return nil, err
	}
	s.Logger.Info("🧾 payment proof submitted", "proof_id", proof.ID, "client_id", c.ID, "amount", amount.StringFixed(2))
	metrics.ProofSubmitted()
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionProofs,
		Type:       changefeed.Insert,
		ID:         proof.ID,
		ClientID:   c.ID,
		UserID:     sess.UserID,
	})

	if c.ActivationStatus == ledger.ActivationActive {
		s.moveActivation(ctx, c, ledger.ActivationPendingSettlement, ledger.TriggerProofSubmitted)
	}

	_ = s.Notifier.Notify(ctx, notifier.Event{
		Kind:        notifier.ProofSubmitted,
		ClientID:    c.ID,
		ClientName:  c.FullName,
		ClientEmail: c.Email,
		Amount:      utils.FormatMoney(amount),
	})
	return proof, nil
}

// moveActivation applies a follow-on activation change. The proof write
// already succeeded, so failures here are logged, not returned.
func (s *ProofService) moveActivation(ctx context.Context, c *models.Client, next ledger.ActivationStatus, t ledger.Trigger) {
	if err := ledger.CheckTransition(c.Status, c.ActivationStatus, c.Status, next, t); err != nil {
		s.Logger.Warn("⚠️ skipping activation change", "client_id", c.ID, "to", next, "err", err)
		return
	}
	if _, err := s.Clients.Update(ctx, c.ID, map[string]any{"activation_status": next}, nil); err != nil {
		s.Logger.Error("❌ activation change failed", "client_id", c.ID, "to", next, "err", err)
		return
	}
	s.Logger.Info("🔁 activation changed", "client_id", c.ID, "from", c.ActivationStatus, "to", next, "trigger", t)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Update,
		ID:         c.ID,
	})
}

func (s *ProofService) ListMine(ctx context.Context, sess *Session) ([]models.PaymentProof, error) {
	c, err := s.Dashboard.ResolveClient(ctx, sess)
	if errors.Is(err, ledger.ErrNotFound) {
		return []models.PaymentProof{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Proofs.ListByClient(ctx, c.ID)
}

func (s *ProofService) ListAll(ctx context.Context, status ledger.ProofStatus) ([]models.PaymentProof, error) {
	if status != "" && status != ledger.ProofPending && status != ledger.ProofConfirmed {
		return nil, ledger.NewValidationError("status", "Unknown proof status")
	}
	return s.Proofs.ListAll(ctx, status)
}

// Confirm marks a pending proof confirmed. Confirming twice is a no-op.
// Once a client has nothing pending, its settlement closes.
func (s *ProofService) Confirm(ctx context.Context, operator *Session, id string) (*models.PaymentProof, error) {
	changed, err := s.Proofs.ConfirmPending(ctx, id, operator.UserID, now())
	if err != nil {
		return nil, err
	}
	proof, err := s.Proofs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return proof, nil
	}

	s.Logger.Info("✅ payment proof confirmed", "proof_id", id, "operator", operator.UserID)
	metrics.ProofConfirmed()
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionProofs,
		Type:       changefeed.Update,
		ID:         id,
		ClientID:   proof.ClientID,
		UserID:     proof.UserID,
	})

	c, err := s.Clients.Get(ctx, proof.ClientID)
	if err != nil {
		s.Logger.Warn("⚠️ confirmed proof has no client", "proof_id", id, "err", err)
		return proof, nil
	}
	if c.ActivationStatus == ledger.ActivationPendingSettlement {
		pending, err := s.Proofs.CountPending(ctx, c.ID)
		if err != nil {
			s.Logger.Error("❌ counting pending proofs failed", "client_id", c.ID, "err", err)
		} else if pending == 0 {
			s.moveActivation(ctx, c, ledger.ActivationSettled, ledger.TriggerProofConfirmed)
		}
	}

	_ = s.Notifier.Notify(ctx, notifier.Event{
		Kind:        notifier.ProofConfirmed,
		ClientID:    c.ID,
		ClientName:  c.FullName,
		ClientEmail: c.Email,
		Amount:      utils.FormatMoney(proof.Amount),
	})
	return proof, nil
}
