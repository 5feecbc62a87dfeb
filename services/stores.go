package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/models"
	"fx-client-portal/store"

	"github.com/shopspring/decimal"
)

type ClientStore interface {
	Create(ctx context.Context, c *models.Client) error
	Get(ctx context.Context, id string) (*models.Client, error)
	FindByUserID(ctx context.Context, userID string) (*models.Client, error)
	FindUnlinkedByEmail(ctx context.Context, email string) (*models.Client, error)
	LinkUser(ctx context.Context, id, userID string) error
	List(ctx context.Context, f store.ClientFilter) ([]models.Client, error)
	Update(ctx context.Context, id string, fields map[string]any, expected *time.Time) (*models.Client, error)
	Delete(ctx context.Context, id string) (*models.Client, error)
	ActivatePending(ctx context.Context, at time.Time) ([]string, error)
	ApplyBalance(ctx context.Context, login, server string, balance decimal.Decimal, at time.Time) ([]string, error)
}

type ProofStore interface {
	Create(ctx context.Context, p *models.PaymentProof) error
	Get(ctx context.Context, id string) (*models.PaymentProof, error)
	ListByClient(ctx context.Context, clientID string) ([]models.PaymentProof, error)
	ListAll(ctx context.Context, status ledger.ProofStatus) ([]models.PaymentProof, error)
	ConfirmPending(ctx context.Context, id, operatorID string, at time.Time) (bool, error)
	CountPending(ctx context.Context, clientID string) (int64, error)
}

type CredentialStore interface {
	Create(ctx context.Context, c *models.BrokerCredential) error
	Get(ctx context.Context, id string) (*models.BrokerCredential, error)
	ListByUser(ctx context.Context, userID string) ([]models.BrokerCredential, error)
	ListAll(ctx context.Context) ([]models.BrokerCredential, error)
	Delete(ctx context.Context, id string) error
}

type SettingStore interface {
	All(ctx context.Context) ([]models.AdminSetting, error)
	Save(ctx context.Context, changes map[string]string, expected map[string]int64, at time.Time) error
}

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	Get(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Roles(ctx context.Context, userID string) ([]string, error)
	GrantRole(ctx context.Context, userID, role string) error
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeRevoked(ctx context.Context, now time.Time) (int64, error)
}

// BlobStore uploads a file and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// publish signals a change. The write has already happened, so a feed
// failure is only logged.
func publish(ctx context.Context, bus changefeed.Bus, logger *slog.Logger, ev changefeed.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, ev); err != nil {
		logger.Warn("⚠️ change feed publish failed", "collection", ev.Collection, "id", ev.ID, "err", err)
	}
}

func now() time.Time {
	return time.Now().UTC()
}
