package services

import (
	"context"
	"testing"

	"fx-client-portal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBalances(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()
	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "1000", "1000")
	p.seedClient("c2", "u2", ledger.StatusActive, ledger.ActivationActive, "1000", "1000")
	_, err := p.credSvc.Submit(ctx, session("u1"), validCredential())
	require.NoError(t, err)

	res, err := p.balances.ApplyBalances(ctx, []BalanceUpdate{
		{LoginNumber: "81234567", ServerName: "Exness-MT5Real8", Balance: dec("1310.555")},
		{LoginNumber: "999", ServerName: "Nowhere", Balance: dec("5")},
		{LoginNumber: "", ServerName: "Exness-MT5Real8", Balance: dec("5")},
		{LoginNumber: "81234567", ServerName: "Exness-MT5Real8", Balance: dec("-1")},
	}, "push")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Received)
	assert.Equal(t, []string{"c1"}, res.Updated)
	assert.Equal(t, 3, res.Skipped)

	c1, _ := p.clients.Get(ctx, "c1")
	assert.True(t, c1.AccountBalance.Equal(dec("1310.56")))
	c2, _ := p.clients.Get(ctx, "c2")
	assert.True(t, c2.AccountBalance.Equal(dec("1000")))
	assert.Contains(t, p.bus.collections(), "clients:UPDATE")
}

func TestValidateBatch(t *testing.T) {
	assert.True(t, ledger.IsValidation(ValidateBatch(nil)))
	assert.NoError(t, ValidateBatch([]BalanceUpdate{{LoginNumber: "1"}}))
}
