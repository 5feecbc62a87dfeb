package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fx-client-portal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingApplier struct {
	batches [][]services.BalanceUpdate
	err     error
}

func (r *recordingApplier) ApplyBalances(_ context.Context, updates []services.BalanceUpdate, source string) (*services.BalanceResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.batches = append(r.batches, updates)
	return &services.BalanceResult{Received: len(updates), Updated: []string{"c1"}}, nil
}

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balances", r.URL.Path)
		assert.Equal(t, "feed-token", r.Header.Get("X-Service-Token"))
		_, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
		assert.NoError(t, err)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetChangedBalances(t *testing.T) {
	srv := feedServer(t, http.StatusOK, `{"balances":[{"login_number":"81234567","server_name":"Exness-MT5Real8","balance":"1310.55"}]}`)

	updates, err := NewBalanceFeedClient(srv.URL+"/", "feed-token").GetChangedBalances(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "81234567", updates[0].LoginNumber)
	assert.Equal(t, "1310.55", updates[0].Balance.StringFixed(2))
}

func TestGetChangedBalances_BadStatus(t *testing.T) {
	srv := feedServer(t, http.StatusBadGateway, "upstream down")

	_, err := NewBalanceFeedClient(srv.URL, "feed-token").GetChangedBalances(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSyncOnce_AdvancesCursorOnlyOnSuccess(t *testing.T) {
	srv := feedServer(t, http.StatusOK, `{"balances":[{"login_number":"1","server_name":"S","balance":10}]}`)
	client := NewBalanceFeedClient(srv.URL, "feed-token")
	since := time.Now().Add(-time.Hour).UTC()

	applier := &recordingApplier{}
	next, ok := syncOnce(context.Background(), client, applier, since, quiet)
	assert.True(t, ok)
	assert.True(t, next.After(since))
	assert.Len(t, applier.batches, 1)

	failing := &recordingApplier{err: errors.New("db down")}
	next, ok = syncOnce(context.Background(), client, failing, since, quiet)
	assert.False(t, ok)
	assert.Equal(t, since, next)
}

func TestPollBalances_StopsWithContext(t *testing.T) {
	srv := feedServer(t, http.StatusOK, `{"balances":[]}`)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		PollBalances(ctx, NewBalanceFeedClient(srv.URL, "feed-token"), &recordingApplier{}, 10*time.Millisecond, quiet)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
