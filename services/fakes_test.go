package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/models"
	"fx-client-portal/notifier"
	"fx-client-portal/store"

	"github.com/shopspring/decimal"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var storeFilterAll = store.ClientFilter{}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// memClients mirrors the gorm store closely enough for service tests.
type memClients struct {
	mu    sync.Mutex
	rows  map[string]*models.Client
	creds *memCredentials
	clock time.Time
}

func newMemClients() *memClients {
	return &memClients{rows: map[string]*models.Client{}, clock: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)}
}

func (m *memClients) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memClients) put(c models.Client) *models.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.LastUpdated.IsZero() {
		c.LastUpdated = m.tick()
	}
	m.rows[c.ID] = &c
	cp := c
	return &cp
}

func (m *memClients) Create(_ context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.LastUpdated = m.tick()
	m.rows[c.ID] = &cp
	return nil
}

func (m *memClients) Get(_ context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) FindByUserID(_ context.Context, userID string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.UserID != nil && *c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memClients) FindUnlinkedByEmail(_ context.Context, email string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.UserID == nil && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memClients) LinkUser(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.UserID != nil {
		return ledger.ErrConflict
	}
	c.UserID = &userID
	c.LastUpdated = m.tick()
	return nil
}

func (m *memClients) List(_ context.Context, f store.ClientFilter) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Client{}
	for _, c := range m.rows {
		if f.Activation != "" && c.ActivationStatus != f.Activation {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memClients) Update(_ context.Context, id string, fields map[string]any, expected *time.Time) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if expected != nil && !expected.Equal(c.LastUpdated) {
		return nil, ledger.ErrConflict
	}
	for k, v := range fields {
		switch k {
		case "starting_balance":
			c.StartingBalance = v.(decimal.Decimal)
		case "account_balance":
			c.AccountBalance = v.(decimal.Decimal)
		case "status":
			c.Status = v.(ledger.ClientStatus)
		case "activation_status":
			c.ActivationStatus = v.(ledger.ActivationStatus)
		case "agreement_accepted":
			c.AgreementAccepted = v.(bool)
		case "agreement_at":
			at := v.(time.Time)
			c.AgreementAt = &at
		}
	}
	c.LastUpdated = m.tick()
	cp := *c
	return &cp, nil
}

func (m *memClients) Delete(_ context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	delete(m.rows, id)
	return c, nil
}

func (m *memClients) ActivatePending(_ context.Context, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id, c := range m.rows {
		if c.ActivationStatus == ledger.ActivationPending && c.Status != ledger.StatusRejected {
			c.ActivationStatus = ledger.ActivationActive
			c.LastUpdated = at
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memClients) ApplyBalance(ctx context.Context, login, server string, balance decimal.Decimal, at time.Time) ([]string, error) {
	users := map[string]bool{}
	if m.creds != nil {
		all, _ := m.creds.ListAll(ctx)
		for _, cr := range all {
			if cr.LoginNumber == login && cr.ServerName == server {
				users[cr.UserID] = true
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id, c := range m.rows {
		if c.UserID != nil && users[*c.UserID] {
			c.AccountBalance = balance
			c.LastUpdated = at
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memProofs struct {
	mu   sync.Mutex
	rows []*models.PaymentProof
}

func (m *memProofs) Create(_ context.Context, p *models.PaymentProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memProofs) Get(_ context.Context, id string) (*models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memProofs) ListByClient(_ context.Context, clientID string) ([]models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PaymentProof{}
	for _, p := range m.rows {
		if p.ClientID == clientID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProofs) ListAll(_ context.Context, status ledger.ProofStatus) ([]models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PaymentProof{}
	for _, p := range m.rows {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProofs) ConfirmPending(_ context.Context, id, operatorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ID != id {
			continue
		}
		if p.Status != ledger.ProofPending {
			return false, nil
		}
		p.Status = ledger.ProofConfirmed
		p.ConfirmedAt = &at
		p.ConfirmedBy = &operatorID
		return true, nil
	}
	return false, ledger.ErrNotFound
}

func (m *memProofs) CountPending(_ context.Context, clientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.rows {
		if p.ClientID == clientID && p.Status == ledger.ProofPending {
			n++
		}
	}
	return n, nil
}

type memCredentials struct {
	mu   sync.Mutex
	rows []models.BrokerCredential
}

func (m *memCredentials) Create(_ context.Context, c *models.BrokerCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memCredentials) Get(_ context.Context, id string) (*models.BrokerCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memCredentials) ListByUser(_ context.Context, userID string) ([]models.BrokerCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BrokerCredential{}
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCredentials) ListAll(_ context.Context) ([]models.BrokerCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BrokerCredential{}, m.rows...), nil
}

func (m *memCredentials) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.rows {
		if c.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

type memSettings struct {
	mu   sync.Mutex
	rows map[string]models.AdminSetting
	// saves counts calls that reached the store.
	saves int
}

func (m *memSettings) All(_ context.Context) ([]models.AdminSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AdminSetting{}
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memSettings) Save(_ context.Context, changes map[string]string, expected map[string]int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string]models.AdminSetting{}
	}
	for k, want := range expected {
		if m.rows[k].Version != want {
			return ledger.ErrConflict
		}
	}
	m.saves++
	for k, v := range changes {
		r := m.rows[k]
		r.Key, r.Value, r.UpdatedAt = k, v, at
		r.Version++
		m.rows[k] = r
	}
	return nil
}

type memAccounts struct {
	mu      sync.Mutex
	rows    map[string]*models.Account
	roles   map[string][]string
	revoked map[string]time.Time
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		rows:    map[string]*models.Account{},
		roles:   map[string][]string{},
		revoked: map[string]time.Time{},
	}
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAccounts) Get(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memAccounts) Roles(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.roles[userID]...), nil
}

func (m *memAccounts) GrantRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles[userID] {
		if r == role {
			return nil
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

func (m *memAccounts) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = expiresAt
	return nil
}

func (m *memAccounts) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func (m *memAccounts) PurgeRevoked(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
			n++
		}
	}
	return n, nil
}

type memBlobs struct {
	keys []string
	err  error
}

func (m *memBlobs) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://cdn.test/" + key, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notifier.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) kinds() []notifier.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []notifier.Kind{}
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type recordingBus struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (b *recordingBus) Publish(_ context.Context, ev changefeed.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Subscribe() (<-chan changefeed.Event, func()) {
	ch := make(chan changefeed.Event)
	return ch, func() {}
}

func (b *recordingBus) collections() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []string{}
	for _, ev := range b.events {
		out = append(out, ev.Collection+":"+string(ev.Type))
	}
	return out
}

// plainSealer stands in for the secretbox sealer.
type plainSealer struct{}

func (plainSealer) Seal(p string) ([]byte, error)  { return []byte("sealed:" + p), nil }
func (plainSealer) Open(b []byte) (string, error) { return strings.TrimPrefix(string(b), "sealed:"), nil }

// portal wires every service over the in-memory stores.
type portal struct {
	clients     *memClients
	proofs      *memProofs
	creds       *memCredentials
	settings    *memSettings
	accounts    *memAccounts
	blobs       *memBlobs
	notes       *recordingNotifier
	bus         *recordingBus
	onboarding  *OnboardingService
	identity    *IdentityService
	dashboard   *DashboardService
	proofSvc    *ProofService
	admin       *ClientAdminService
	settingsSvc *SettingsService
	credSvc     *CredentialService
	balances    *BalanceService
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	p := &portal{
		clients:  newMemClients(),
		proofs:   &memProofs{},
		creds:    &memCredentials{},
		settings: &memSettings{},
		accounts: newMemAccounts(),
		blobs:    &memBlobs{},
		notes:    &recordingNotifier{},
		bus:      &recordingBus{},
	}
	p.clients.creds = p.creds

	p.onboarding = &OnboardingService{Clients: p.clients, Bus: p.bus, Notifier: p.notes, Logger: discard}
	p.identity = &IdentityService{Accounts: p.accounts, Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: time.Hour, Logger: discard}
	p.settingsSvc = &SettingsService{Settings: p.settings, Bus: p.bus, Logger: discard}
	p.dashboard = &DashboardService{Clients: p.clients, Proofs: p.proofs, Settings: p.settingsSvc, Bus: p.bus, Logger: discard}
	p.proofSvc = &ProofService{
		Dashboard: p.dashboard, Clients: p.clients, Proofs: p.proofs, Blobs: p.blobs,
		Bus: p.bus, Notifier: p.notes, Logger: discard,
	}
	p.admin = &ClientAdminService{Clients: p.clients, Proofs: p.proofs, Bus: p.bus, Notifier: p.notes, Logger: discard}
	p.credSvc = &CredentialService{Credentials: p.creds, Sealer: plainSealer{}, Bus: p.bus, Logger: discard}
	p.balances = &BalanceService{Clients: p.clients, Bus: p.bus, Logger: discard}
	return p
}

// seedClient stores a linked client in the given state.
func (p *portal) seedClient(id, userID string, status ledger.ClientStatus, activation ledger.ActivationStatus, starting, current string) *models.Client {
	c := models.Client{
		ID:               id,
		FullName:         "Jane Trader",
		Email:            id + "@example.com",
		WhatsApp:         "+254700000000",
		Platform:         "MetaTrader 5 (MT5)",
		StartingBalance:  dec(starting),
		AccountBalance:   dec(current),
		Status:           status,
		ActivationStatus: activation,
	}
	if userID != "" {
		c.UserID = &userID
	}
	if status == ledger.StatusApproved || status == ledger.StatusActive {
		c.AgreementAccepted = true
	}
	return p.clients.put(c)
}

func session(userID string, roles ...string) *Session {
	return &Session{UserID: userID, Email: userID + "@example.com", Roles: roles, TokenID: "tok-" + userID}
}
