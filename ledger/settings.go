package ledger

import (
	"sort"
	"strings"
)

const (
	SettingMpesaName     = "mpesa_name"
	SettingMpesaNumber   = "mpesa_number"
	SettingCryptoNetwork = "crypto_network"
	SettingCryptoWallet  = "crypto_wallet_address"
)

// NotConfigured stands in for a payment destination key nobody has set.
const NotConfigured = "Not configured"

// SettingKeys is the fixed set of editable keys, in display order.
var SettingKeys = []string{
	SettingMpesaName,
	SettingMpesaNumber,
	SettingCryptoNetwork,
	SettingCryptoWallet,
}

func IsSettingKey(key string) bool {
	for _, k := range SettingKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Resolve fills every known key, substituting NotConfigured for missing or
// blank values.
func Resolve(stored map[string]string) map[string]string {
	out := make(map[string]string, len(SettingKeys))
	for _, k := range SettingKeys {
		v := strings.TrimSpace(stored[k])
		if v == "" {
			v = NotConfigured
		}
		out[k] = v
	}
	return out
}

// Diff returns the proposed entries whose value differs from what is stored.
// Unknown keys are rejected before anything is compared. NotConfigured is
// read as an empty value.
func Diff(stored, proposed map[string]string) (map[string]string, error) {
	verr := &ValidationError{}
	for k := range proposed {
		if !IsSettingKey(k) {
			verr.Add(k, "Unknown setting")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	changed := map[string]string{}
	for k, v := range proposed {
		v = strings.TrimSpace(v)
		// A form filled from Resolve echoes the placeholder for unset keys.
		if v == NotConfigured {
			v = ""
		}
		if strings.TrimSpace(stored[k]) == v {
			continue
		}
		changed[k] = v
	}
	return changed, nil
}

// ChangedKeys lists the keys of a diff in a stable order.
func ChangedKeys(diff map[string]string) []string {
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
