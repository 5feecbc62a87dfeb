package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/metrics"
	"fx-client-portal/models"
	"fx-client-portal/notifier"
	"fx-client-portal/store"
	"fx-client-portal/utils"

	"github.com/shopspring/decimal"
)

// ClientRow is a client as the operator console lists it.
type ClientRow struct {
	models.Client
	NetProfit decimal.Decimal `json:"net_profit"`
	Share     decimal.Decimal `json:"share"`
}

// ClientPatch is an operator edit. Nil fields are left alone.
type ClientPatch struct {
	StartingBalance     *decimal.Decimal         `json:"starting_balance"`
	AccountBalance      *decimal.Decimal         `json:"account_balance"`
	Status              *ledger.ClientStatus     `json:"status"`
	ActivationStatus    *ledger.ActivationStatus `json:"activation_status"`
	ExpectedLastUpdated *time.Time               `json:"expected_last_updated"`
}

type Overview struct {
	TotalClients      int             `json:"total_clients"`
	Active            int             `json:"active"`
	PendingActivation int             `json:"pending_activation"`
	TotalNetProfit    decimal.Decimal `json:"total_net_profit"`
	SharePending      decimal.Decimal `json:"pending_share_total"`
	ShareConfirmed    decimal.Decimal `json:"confirmed_share_total"`
}

type ClientAdminService struct {
	Clients  ClientStore
	Proofs   ProofStore
	Bus      changefeed.Bus
	Notifier notifier.Notifier
	Logger   *slog.Logger
}

func (s *ClientAdminService) List(ctx context.Context, activation ledger.ActivationStatus) ([]ClientRow, error) {
	if activation != "" && !activation.Valid() {
		return nil, ledger.NewValidationError("activation", "Unknown activation status")
	}
	clients, err := s.Clients.List(ctx, store.ClientFilter{Activation: activation})
	if err != nil {
		return nil, err
	}
	rows := make([]ClientRow, 0, len(clients))
	for _, c := range clients {
		share := c.Share()
		rows = append(rows, ClientRow{Client: c, NetProfit: share.NetProfit, Share: share.Amount})
	}
	return rows, nil
}

func (s *ClientAdminService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.Clients.Get(ctx, id)
}

// Update applies an operator edit after checking both status axes. Rejecting
// a client closes out any trading or open settlement.
func (s *ClientAdminService) Update(ctx context.Context, id string, p ClientPatch) (*models.Client, error) {
	c, err := s.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	starting, current := c.StartingBalance, c.AccountBalance
	if p.StartingBalance != nil {
		if err := ledger.ValidateNonNegative("starting_balance", *p.StartingBalance); err != nil {
			return nil, err
		}
		starting = p.StartingBalance.Round(2)
		fields["starting_balance"] = starting
	}
	if p.AccountBalance != nil {
		if err := ledger.ValidateNonNegative("account_balance", *p.AccountBalance); err != nil {
			return nil, err
		}
		current = p.AccountBalance.Round(2)
		fields["account_balance"] = current
	}

	toS, toA := c.Status, c.ActivationStatus
	if p.Status != nil {
		toS = *p.Status
	}
	if p.ActivationStatus != nil {
		toA = *p.ActivationStatus
	}

	trigger := ledger.TriggerOperator
	if toS == ledger.StatusRejected && c.Status != ledger.StatusRejected {
		trigger = ledger.TriggerRejection
		if p.ActivationStatus == nil {
			toA = ledger.CloseOnRejection(c.ActivationStatus)
		}
	}
	if err := ledger.CheckTransition(c.Status, c.ActivationStatus, toS, toA, trigger); err != nil {
		return nil, err
	}

	approving := toS == ledger.StatusApproved && c.Status != ledger.StatusApproved
	if approving {
		if starting.IsZero() {
			starting = current
			fields["starting_balance"] = starting
		}
		if err := ledger.ValidateCapital("starting_balance", starting); err != nil {
			return nil, err
		}
	}
	if toS != c.Status {
		fields["status"] = toS
	}
	if toA != c.ActivationStatus {
		fields["activation_status"] = toA
	}
	if len(fields) == 0 {
		return c, nil
	}

	updated, err := s.Clients.Update(ctx, id, fields, p.ExpectedLastUpdated)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("✏️ client updated", "client_id", id, "status", updated.Status, "activation", updated.ActivationStatus)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Update,
		ID:         id,
	})
	if approving {
		_ = s.Notifier.Notify(ctx, notifier.Event{
			Kind:           notifier.ClientApproved,
			ClientID:       updated.ID,
			ClientName:     updated.FullName,
			ClientEmail:    updated.Email,
			ClientWhatsApp: updated.WhatsApp,
			Status:         string(updated.Status),
			Amount:         utils.FormatMoney(updated.StartingBalance),
		})
	}
	return updated, nil
}

// Delete removes a client and its dependent records. confirm must be true.
func (s *ClientAdminService) Delete(ctx context.Context, id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	c, err := s.Clients.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.Logger.Info("🗑️ client deleted", "client_id", id)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Delete,
		ID:         id,
	})
	if c.UserID != nil {
		publish(ctx, s.Bus, s.Logger, changefeed.Event{
			Collection: changefeed.CollectionCredentials,
			Type:       changefeed.Delete,
			UserID:     *c.UserID,
		})
	}
	return nil
}

// SundayActivation flips every pending, non-rejected client to active in one
// batch and returns how many moved.
func (s *ClientAdminService) SundayActivation(ctx context.Context, trigger string) (int, error) {
	ids, err := s.Clients.ActivatePending(ctx, now())
	if err != nil {
		s.Logger.Error("❌ sunday activation failed", "trigger", trigger, "err", err)
		return 0, err
	}

	s.Logger.Info("🚀 sunday activation", "trigger", trigger, "activated", len(ids))
	metrics.ClientsActivated(trigger, len(ids))
	for _, id := range ids {
		publish(ctx, s.Bus, s.Logger, changefeed.Event{
			Collection: changefeed.CollectionClients,
			Type:       changefeed.Update,
			ID:         id,
		})
	}
	if len(ids) > 0 {
		_ = s.Notifier.Notify(ctx, notifier.Event{
			Kind:  notifier.SundayActivated,
			Count: len(ids),
		})
	}
	return len(ids), nil
}

// NewCycle reopens a settled client for the next period. The current
// balance becomes the new starting point.
func (s *ClientAdminService) NewCycle(ctx context.Context, id string) (*models.Client, error) {
	c, err := s.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckTransition(c.Status, c.ActivationStatus, c.Status, ledger.ActivationPending, ledger.TriggerNewCycle); err != nil {
		return nil, err
	}
	if c.ActivationStatus != ledger.ActivationSettled {
		return nil, fmt.Errorf("%w: only a settled client can start a new cycle", ledger.ErrInvalidTransition)
	}

	updated, err := s.Clients.Update(ctx, id, map[string]any{
		"activation_status": ledger.ActivationPending,
		"starting_balance":  c.AccountBalance,
	}, &c.LastUpdated)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("🔄 new settlement cycle", "client_id", id, "starting_balance", c.AccountBalance.StringFixed(2))
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Update,
		ID:         id,
	})
	return updated, nil
}

func (s *ClientAdminService) Overview(ctx context.Context) (*Overview, error) {
	clients, err := s.Clients.List(ctx, store.ClientFilter{})
	if err != nil {
		return nil, err
	}
	proofs, err := s.Proofs.ListAll(ctx, "")
	if err != nil {
		return nil, err
	}

	out := &Overview{TotalClients: len(clients), TotalNetProfit: decimal.Zero}
	for _, c := range clients {
		switch c.ActivationStatus {
		case ledger.ActivationActive:
			out.Active++
		case ledger.ActivationPending:
			out.PendingActivation++
		}
		out.TotalNetProfit = out.TotalNetProfit.Add(c.Share().NetProfit)
	}
	totals := ledger.SumProofs(models.ProofLines(proofs))
	out.SharePending = totals.Pending
	out.ShareConfirmed = totals.Confirmed
	return out, nil
}
