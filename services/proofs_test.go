package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fx-client-portal/ledger"
	"fx-client-portal/models"
	"fx-client-portal/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenshot(name string) ProofUpload {
	return ProofUpload{Filename: name, ContentType: "image/png", Body: strings.NewReader("png-bytes")}
}

func TestSubmitProof_SnapshotsShareAndMovesToSettlement(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()
	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "1000", "1250.50")

	proof, err := p.proofSvc.Submit(ctx, session("u1"), screenshot("M-Pesa Receipt.PNG"))
	require.NoError(t, err)

	assert.Equal(t, ledger.ProofPending, proof.Status)
	assert.True(t, proof.Amount.Equal(dec("125.25")))
	assert.Equal(t, "c1", proof.ClientID)
	require.Len(t, p.blobs.keys, 1)
	assert.True(t, strings.HasPrefix(p.blobs.keys[0], "u1/"))
	assert.True(t, strings.HasSuffix(p.blobs.keys[0], "_m-pesa-receipt.png"))
	assert.Equal(t, "https://cdn.test/"+p.blobs.keys[0], proof.ScreenshotURL)

	c, err := p.clients.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, ledger.ActivationPendingSettlement, c.ActivationStatus)
	assert.Equal(t, []notifier.Kind{notifier.ProofSubmitted}, p.notes.kinds())
	assert.Equal(t, []string{"payment_proofs:INSERT", "clients:UPDATE"}, p.bus.collections())
}

func TestSubmitProof_ExplicitAmount(t *testing.T) {
	p := newPortal(t)
	p.seedClient("c1", "u1", ledger.StatusApproved, ledger.ActivationPending, "100", "200")

	up := screenshot("receipt.jpg")
	up.Amount = decp("40")
	proof, err := p.proofSvc.Submit(context.Background(), session("u1"), up)
	require.NoError(t, err)
	assert.True(t, proof.Amount.Equal(dec("40")))

	// Pending activation is left alone.
	c, _ := p.clients.Get(context.Background(), "c1")
	assert.Equal(t, ledger.ActivationPending, c.ActivationStatus)

	up = screenshot("receipt.jpg")
	up.Amount = decp("0")
	_, err = p.proofSvc.Submit(context.Background(), session("u1"), up)
	assert.True(t, ledger.IsValidation(err))
}

func TestSubmitProof_Refusals(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()

	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "1000", "1000")
	_, err := p.proofSvc.Submit(ctx, session("u1"), screenshot("r.png"))
	assert.True(t, ledger.IsValidation(err), "no profit")

	p.seedClient("c2", "u2", ledger.StatusNewApplicant, ledger.ActivationPending, "100", "500")
	_, err = p.proofSvc.Submit(ctx, session("u2"), screenshot("r.png"))
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	p.seedClient("c3", "u3", ledger.StatusActive, ledger.ActivationActive, "100", "500")
	_, err = p.proofSvc.Submit(ctx, session("u3"), screenshot("r.pdf"))
	assert.True(t, ledger.IsValidation(err), "not an image")

	_, err = p.proofSvc.Submit(ctx, session("ghost"), screenshot("r.png"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.Empty(t, p.proofs.rows)
	assert.Empty(t, p.blobs.keys)
}

func TestSubmitProof_UploadFailureStoresNothing(t *testing.T) {
	p := newPortal(t)
	p.blobs.err = errors.New("bucket down")
	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "100", "500")

	_, err := p.proofSvc.Submit(context.Background(), session("u1"), screenshot("r.png"))
	require.Error(t, err)
	assert.Empty(t, p.proofs.rows)
}

func TestConfirmProof_SettlesAfterLastPending(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()
	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "1000", "1200")

	first, err := p.proofSvc.Submit(ctx, session("u1"), screenshot("a.png"))
	require.NoError(t, err)
	second, err := p.proofSvc.Submit(ctx, session("u1"), screenshot("b.png"))
	require.NoError(t, err)

	op := session("op", models.RoleOperator)
	confirmed, err := p.proofSvc.Confirm(ctx, op, first.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProofConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, "op", *confirmed.ConfirmedBy)

	c, _ := p.clients.Get(ctx, "c1")
	assert.Equal(t, ledger.ActivationPendingSettlement, c.ActivationStatus, "one proof still pending")

	_, err = p.proofSvc.Confirm(ctx, op, second.ID)
	require.NoError(t, err)
	c, _ = p.clients.Get(ctx, "c1")
	assert.Equal(t, ledger.ActivationSettled, c.ActivationStatus)
}

func TestConfirmProof_Idempotent(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()
	p.seedClient("c1", "u1", ledger.StatusActive, ledger.ActivationActive, "1000", "1200")
	proof, err := p.proofSvc.Submit(ctx, session("u1"), screenshot("a.png"))
	require.NoError(t, err)

	op := session("op", models.RoleOperator)
	_, err = p.proofSvc.Confirm(ctx, op, proof.ID)
	require.NoError(t, err)
	again, err := p.proofSvc.Confirm(ctx, op, proof.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ProofConfirmed, again.Status)

	totals := ledger.SumProofs(models.ProofLines(mustList(t, p, "c1")))
	assert.True(t, totals.Confirmed.Equal(dec("100")))
	assert.True(t, totals.Pending.IsZero())
	assert.Equal(t, []notifier.Kind{notifier.ProofSubmitted, notifier.ProofConfirmed}, p.notes.kinds())

	_, err = p.proofSvc.Confirm(ctx, op, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListAllProofs_RejectsUnknownStatus(t *testing.T) {
	p := newPortal(t)
	_, err := p.proofSvc.ListAll(context.Background(), "paid")
	assert.True(t, ledger.IsValidation(err))
}

func mustList(t *testing.T, p *portal, clientID string) []models.PaymentProof {
	t.Helper()
	out, err := p.proofs.ListByClient(context.Background(), clientID)
	require.NoError(t, err)
	return out
}
