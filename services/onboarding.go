package services

import (
	"context"
	"log/slog"
	"strings"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/metrics"
	"fx-client-portal/models"
	"fx-client-portal/notifier"
	"fx-client-portal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationInput struct {
	FullName       string          `json:"full_name" validate:"required,min=2,max=100"`
	WhatsApp       string          `json:"whatsapp" validate:"required,min=7,max=20"`
	Email          string          `json:"email" validate:"required,email,max=255"`
	Platform       string          `json:"platform" validate:"required,platform"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	AgreedTerms    bool            `json:"agreed_terms" validate:"required"`
}

var applicationMessages = map[string]string{
	"full_name":     "Name must be at least 2 characters",
	"full_name.max": "Name must be at most 100 characters",
	"whatsapp":      "Enter a valid WhatsApp number",
	"email":         "Enter a valid email",
	"platform":      "Select a platform",
	"agreed_terms":  "You must agree to the terms",
}

func (in *ApplicationInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.WhatsApp = strings.TrimSpace(in.WhatsApp)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Platform = strings.TrimSpace(in.Platform)
}

// Validate reports every offending field at once.
func (in *ApplicationInput) Validate() error {
	verr := validateStruct(in, applicationMessages)
	if err := ledger.ValidateCapital("account_balance", in.AccountBalance); err != nil {
		verr.Add("account_balance", ledger.MinimumCapitalMessage)
	}
	return verr.OrNil()
}

type OnboardingService struct {
	Clients  ClientStore
	Bus      changefeed.Bus
	Notifier notifier.Notifier
	Logger   *slog.Logger
}

// Apply validates and records a new application. Nothing is written when
// validation fails. userID links the record right away when the applicant
// is already signed in.
func (s *OnboardingService) Apply(ctx context.Context, in ApplicationInput, userID string) (*models.Client, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	balance := in.AccountBalance.Round(2)
	client := &models.Client{
		ID:               uuid.NewString(),
		FullName:         in.FullName,
		Email:            in.Email,
		WhatsApp:         in.WhatsApp,
		Platform:         in.Platform,
		StartingBalance:  balance,
		AccountBalance:   balance,
		Status:           ledger.StatusNewApplicant,
		ActivationStatus: ledger.ActivationPending,
	}
	if userID != "" {
		client.UserID = &userID
	}

	if err := s.Clients.Create(ctx, client); err != nil {
		s.Logger.Error("❌ failed to store application", "email", in.Email, "err", err)
		return nil, err
	}

	s.Logger.Info("🆕 application received", "client_id", client.ID, "platform", client.Platform)
	metrics.ApplicationReceived()
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionClients,
		Type:       changefeed.Insert,
		ID:         client.ID,
	})
	_ = s.Notifier.Notify(ctx, notifier.Event{
		Kind:           notifier.NewApplication,
		ClientID:       client.ID,
		ClientName:     client.FullName,
		ClientEmail:    client.Email,
		ClientWhatsApp: client.WhatsApp,
		Status:         string(client.Status),
		Amount:         utils.FormatMoney(client.AccountBalance),
	})
	return client, nil
}
