package services

import (
	"context"
	"testing"

	"fx-client-portal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_UnsetKeysShowPlaceholder(t *testing.T) {
	p := newPortal(t)

	view, err := p.settingsSvc.Get(context.Background())
	require.NoError(t, err)
	for _, k := range ledger.SettingKeys {
		assert.Equal(t, ledger.NotConfigured, view.Values[k], k)
	}
	assert.Empty(t, view.Versions)
}

func TestSettings_SaveWritesOnlyChanges(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()

	view, err := p.settingsSvc.Save(ctx, map[string]string{
		ledger.SettingMpesaName:   " FX Desk ",
		ledger.SettingMpesaNumber: "",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "FX Desk", view.Values[ledger.SettingMpesaName])
	assert.Equal(t, ledger.NotConfigured, view.Values[ledger.SettingMpesaNumber])
	assert.Equal(t, int64(1), view.Versions[ledger.SettingMpesaName])
	assert.Equal(t, 1, p.settings.saves)
	assert.Equal(t, []string{"admin_settings:UPDATE"}, p.bus.collections())

	_, err = p.settingsSvc.Save(ctx, map[string]string{ledger.SettingMpesaName: "FX Desk"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.settings.saves, "unchanged values are not written")
}

func TestSettings_VersionConflict(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()

	_, err := p.settingsSvc.Save(ctx, map[string]string{ledger.SettingCryptoWallet: "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"}, nil)
	require.NoError(t, err)
	_, err = p.settingsSvc.Save(ctx, map[string]string{ledger.SettingCryptoWallet: "TNewWallet"}, map[string]int64{ledger.SettingCryptoWallet: 1})
	require.NoError(t, err)

	_, err = p.settingsSvc.Save(ctx, map[string]string{ledger.SettingCryptoWallet: "TLostUpdate"}, map[string]int64{ledger.SettingCryptoWallet: 1})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	values, err := p.settingsSvc.Resolved(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TNewWallet", values[ledger.SettingCryptoWallet])
}

func TestSettings_UnknownKey(t *testing.T) {
	p := newPortal(t)

	_, err := p.settingsSvc.Save(context.Background(), map[string]string{"bank_iban": "DE00"}, nil)
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Unknown setting", verr.Fields["bank_iban"])
	assert.Zero(t, p.settings.saves)
}

func TestSettings_FormRoundTripKeepsUnsetKeys(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()

	form, err := p.settingsSvc.Get(ctx)
	require.NoError(t, err)
	form.Values[ledger.SettingMpesaName] = "FX Desk"

	view, err := p.settingsSvc.Save(ctx, form.Values, form.Versions)
	require.NoError(t, err)
	assert.Equal(t, "FX Desk", view.Values[ledger.SettingMpesaName])
	assert.Equal(t, ledger.NotConfigured, view.Values[ledger.SettingCryptoWallet])

	require.Len(t, p.settings.rows, 1)
	assert.Equal(t, "FX Desk", p.settings.rows[ledger.SettingMpesaName].Value)
	assert.Equal(t, []string{"admin_settings:UPDATE"}, p.bus.collections())

	// Saving the returned form again writes nothing.
	_, err = p.settingsSvc.Save(ctx, view.Values, view.Versions)
	require.NoError(t, err)
	assert.Equal(t, 1, p.settings.saves)
}
