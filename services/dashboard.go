package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/models"
	"fx-client-portal/utils"

	"github.com/shopspring/decimal"
)

type Money struct {
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

func money(d decimal.Decimal) Money {
	return Money{Amount: d.Round(2), Display: utils.FormatMoney(d)}
}

type Financials struct {
	StartingBalance Money  `json:"starting_balance"`
	AccountBalance  Money  `json:"account_balance"`
	NetProfit       Money  `json:"net_profit"`
	Share           Money  `json:"share"`
	Activation      string `json:"activation_status"`
	ActivationBadge string `json:"activation_badge"`
}

type Settlement struct {
	Amount       Money                 `json:"amount"`
	Destinations map[string]string     `json:"destinations"`
	Proofs       []models.PaymentProof `json:"proofs"`
	Pending      Money                 `json:"pending_total"`
	Confirmed    Money                 `json:"confirmed_total"`
}

// ClientProfile is the part of a client record shown in every view. Balances
// only reach the caller through Financials.
type ClientProfile struct {
	ID                string                  `json:"id"`
	FullName          string                  `json:"full_name"`
	Email             string                  `json:"email"`
	WhatsApp          string                  `json:"whatsapp"`
	Platform          string                  `json:"platform"`
	Status            ledger.ClientStatus     `json:"status"`
	ActivationStatus  ledger.ActivationStatus `json:"activation_status"`
	AgreementAccepted bool                    `json:"agreement_accepted"`
	AgreementAt       *time.Time              `json:"agreement_accepted_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	LastUpdated       time.Time               `json:"last_updated"`
}

func profile(c *models.Client) *ClientProfile {
	return &ClientProfile{
		ID:                c.ID,
		FullName:          c.FullName,
		Email:             c.Email,
		WhatsApp:          c.WhatsApp,
		Platform:          c.Platform,
		Status:            c.Status,
		ActivationStatus:  c.ActivationStatus,
		AgreementAccepted: c.AgreementAccepted,
		AgreementAt:       c.AgreementAt,
		CreatedAt:         c.CreatedAt,
		LastUpdated:       c.LastUpdated,
	}
}

// Dashboard is what the client sees. Financials and Settlement are only
// filled in for the full dashboard view; Settlement only while in profit.
type Dashboard struct {
	View       ledger.View    `json:"view"`
	Client     *ClientProfile `json:"client,omitempty"`
	Financials *Financials    `json:"financials,omitempty"`
	Settlement *Settlement    `json:"settlement,omitempty"`
}

type DashboardService struct {
	Clients  ClientStore
	Proofs   ProofStore
	Settings *SettingsService
	Bus      changefeed.Bus
	Logger   *slog.Logger
}

// ResolveClient finds the caller's application, linking it by email the
// first time the account is used.
func (s *DashboardService) ResolveClient(ctx context.Context, sess *Session) (*models.Client, error) {
	c, err := s.Clients.FindByUserID(ctx, sess.UserID)
	if err == nil || !errors.Is(err, ledger.ErrNotFound) || sess.Email == "" {
		return c, err
	}

	c, err = s.Clients.FindUnlinkedByEmail(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if err := s.Clients.LinkUser(ctx, c.ID, sess.UserID); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			return s.Clients.FindByUserID(ctx, sess.UserID)
		}
		return nil, err
	}
	s.Logger.Info("🔗 linked application to account", "client_id", c.ID, "user_id", sess.UserID)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Update,
		ID:         c.ID,
	})

	// The link bumped last_updated; later guarded writes need the new value.
	return s.Clients.Get(ctx, c.ID)
}

func (s *DashboardService) Dashboard(ctx context.Context, sess *Session) (*Dashboard, error) {
	c, err := s.ResolveClient(ctx, sess)
	if errors.Is(err, ledger.ErrNotFound) {
		return &Dashboard{View: ledger.ViewNoApplication}, nil
	}
	if err != nil {
		return nil, err
	}

	view := ledger.ResolveView(true, c.Status, c.AgreementAccepted)
	out := &Dashboard{View: view, Client: profile(c)}
	if view != ledger.ViewDashboard {
		return out, nil
	}

	share := c.Share()
	out.Financials = &Financials{
		StartingBalance: money(c.StartingBalance),
		AccountBalance:  money(c.AccountBalance),
		NetProfit:       money(share.NetProfit),
		Share:           money(share.Amount),
		Activation:      string(c.ActivationStatus),
		ActivationBadge: c.ActivationStatus.Badge(),
	}
	if !share.InProfit() {
		return out, nil
	}

	destinations, err := s.Settings.Resolved(ctx)
	if err != nil {
		return nil, err
	}
	proofs, err := s.Proofs.ListByClient(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	totals := ledger.SumProofs(models.ProofLines(proofs))
	out.Settlement = &Settlement{
		Amount:       money(share.Amount),
		Destinations: destinations,
		Proofs:       proofs,
		Pending:      money(totals.Pending),
		Confirmed:    money(totals.Confirmed),
	}
	return out, nil
}

// AcceptAgreement flips the agreement flag once. Accepting again returns
// the client with its original timestamp.
func (s *DashboardService) AcceptAgreement(ctx context.Context, sess *Session) (*models.Client, error) {
	c, err := s.ResolveClient(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !c.Status.FinancialsVisible() {
		return nil, ledger.ErrForbidden
	}
	if c.AgreementAccepted {
		return c, nil
	}

	at := now()
	updated, err := s.Clients.Update(ctx, c.ID, map[string]any{
		"agreement_accepted": true,
		"agreement_at":       at,
	}, &c.LastUpdated)
	if errors.Is(err, ledger.ErrConflict) {
		fresh, gerr := s.Clients.Get(ctx, c.ID)
		if gerr != nil {
			return nil, gerr
		}
		if fresh.AgreementAccepted {
			return fresh, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.Logger.Info("📝 agreement accepted", "client_id", c.ID)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Update,
		ID:         c.ID,
	})
	return updated, nil
}
