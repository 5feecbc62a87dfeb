package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/metrics"

	"github.com/shopspring/decimal"
)

// BalanceUpdate is one broker account balance reported by the feed.
type BalanceUpdate struct {
	LoginNumber string          `json:"login_number"`
	ServerName  string          `json:"server_name"`
	Balance     decimal.Decimal `json:"balance"`
}

type BalanceResult struct {
	Received int      `json:"received"`
	Updated  []string `json:"updated"`
	Skipped  int      `json:"skipped"`
}

type BalanceService struct {
	Clients ClientStore
	Bus     changefeed.Bus
	Logger  *slog.Logger
}

// ApplyBalances writes reported balances onto the clients whose linked
// broker account matches. Unmatched or malformed items are skipped.
func (s *BalanceService) ApplyBalances(ctx context.Context, updates []BalanceUpdate, source string) (*BalanceResult, error) {
	res := &BalanceResult{Received: len(updates), Updated: []string{}}
	at := now()

	for i, u := range updates {
		login, server := strings.TrimSpace(u.LoginNumber), strings.TrimSpace(u.ServerName)
		if login == "" || server == "" || u.Balance.IsNegative() {
			s.Logger.Warn("⚠️ skipping malformed balance", "index", i, "login", login, "source", source)
			res.Skipped++
			continue
		}

		ids, err := s.Clients.ApplyBalance(ctx, login, server, u.Balance.Round(2), at)
		if err != nil {
			return res, fmt.Errorf("apply balance for %s@%s: %w", login, server, err)
		}
		if len(ids) == 0 {
			res.Skipped++
			continue
		}
		for _, id := range ids {
			res.Updated = append(res.Updated, id)
			publish(ctx, s.Bus, s.Logger, changefeed.Event{
				Collection: changefeed.CollectionClients,
				Type:       changefeed.Update,
				ID:         id,
			})
		}
	}

	metrics.BalancesApplied(source, len(res.Updated))
	if len(res.Updated) > 0 {
		s.Logger.Info("💰 balances applied", "source", source, "updated", len(res.Updated), "skipped", res.Skipped)
	}
	return res, nil
}

// ValidateBatch rejects an empty push outright.
func ValidateBatch(updates []BalanceUpdate) error {
	if len(updates) == 0 {
		return ledger.NewValidationError("balances", "No balances supplied")
	}
	return nil
}
