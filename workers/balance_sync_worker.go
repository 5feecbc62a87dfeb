package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fx-client-portal/services"
	"fx-client-portal/utils"
)

// BalanceFeedClient reads broker account balances from the feed service.
type BalanceFeedClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewBalanceFeedClient(baseURL, token string) *BalanceFeedClient {
	return &BalanceFeedClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *BalanceFeedClient) GetChangedBalances(ctx context.Context, since time.Time) ([]services.BalanceUpdate, error) {
	u, err := url.Parse(c.BaseURL + "/balances")
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call balance feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("balance feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Balances []services.BalanceUpdate `json:"balances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode balance feed response: %w", err)
	}
	return response.Balances, nil
}

type BalanceApplier interface {
	ApplyBalances(ctx context.Context, updates []services.BalanceUpdate, source string) (*services.BalanceResult, error)
}

// PollBalances pulls changed balances every interval until ctx ends. The
// cursor only advances after a batch is applied, so a failed window is
// retried on the next tick.
func PollBalances(ctx context.Context, client *BalanceFeedClient, applier BalanceApplier, interval time.Duration, logger *slog.Logger) {
	logger.Info("📈 balance polling started", "interval", interval)
	lastSync := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("balance polling stopped")
			return
		case <-ticker.C:
			if next, ok := syncOnce(ctx, client, applier, lastSync, logger); ok {
				lastSync = next
			}
		}
	}
}

func syncOnce(ctx context.Context, client *BalanceFeedClient, applier BalanceApplier, since time.Time, logger *slog.Logger) (time.Time, bool) {
	polledAt := time.Now().UTC()

	updates, err := client.GetChangedBalances(ctx, since)
	if err != nil {
		logger.Error("❌ error polling balances", "err", err)
		return since, false
	}
	if len(updates) == 0 {
		return polledAt, true
	}

	res, err := applier.ApplyBalances(ctx, updates, "poll")
	if err != nil {
		logger.Error("❌ failed to apply balances", "count", len(updates), "err", err)
		return since, false
	}
	logger.Info("✅ balances synced", "received", res.Received, "updated", len(res.Updated), "skipped", res.Skipped)
	return polledAt, true
}
