package services

import (
	"context"
	"log/slog"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
)

type SettingsView struct {
	Values   map[string]string `json:"values"`
	Versions map[string]int64  `json:"versions"`
}

type SettingsService struct {
	Settings SettingStore
	Bus      changefeed.Bus
	Logger   *slog.Logger
}

func (s *SettingsService) stored(ctx context.Context) (map[string]string, map[string]int64, error) {
	rows, err := s.Settings.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	values := make(map[string]string, len(rows))
	versions := make(map[string]int64, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
		versions[r.Key] = r.Version
	}
	return values, versions, nil
}

// Resolved returns every payment destination, with placeholders for unset keys.
func (s *SettingsService) Resolved(ctx context.Context) (map[string]string, error) {
	values, _, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Resolve(values), nil
}

func (s *SettingsService) Get(ctx context.Context) (*SettingsView, error) {
	values, versions, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{Values: ledger.Resolve(values), Versions: versions}, nil
}

// Save writes only the keys whose value changed. expected carries the
// versions the operator loaded; a key missing from it is written blind.
func (s *SettingsService) Save(ctx context.Context, proposed map[string]string, expected map[string]int64) (*SettingsView, error) {
	values, _, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := ledger.Diff(values, proposed)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return s.Get(ctx)
	}

	want := map[string]int64{}
	for k := range changes {
		if v, ok := expected[k]; ok {
			want[k] = v
		}
	}
	if err := s.Settings.Save(ctx, changes, want, now()); err != nil {
		return nil, err
	}

	keys := ledger.ChangedKeys(changes)
	s.Logger.Info("⚙️ payment settings saved", "keys", keys)
	for _, k := range keys {
		publish(ctx, s.Bus, s.Logger, changefeed.Event{
			Collection: changefeed.CollectionSettings,
			Type:       changefeed.Update,
			ID:         k,
		})
	}
	return s.Get(ctx)
}
