package services

import (
	"context"
	"log/slog"
	"strings"

	"fx-client-portal/changefeed"
	"fx-client-portal/ledger"
	"fx-client-portal/models"

	"github.com/google/uuid"
)

type PasswordSealer interface {
	Seal(plain string) ([]byte, error)
	Open(box []byte) (string, error)
}

type CredentialInput struct {
	BrokerName  string `json:"broker_name" validate:"required,max=100"`
	ServerName  string `json:"server_name" validate:"required,max=100"`
	LoginNumber string `json:"login_number" validate:"required,max=32"`
	Password    string `json:"password" validate:"required,max=128"`
	Platform    string `json:"platform" validate:"required,broker_platform"`
}

var credentialMessages = map[string]string{
	"broker_name":  "Broker name is required",
	"server_name":  "Server name is required",
	"login_number": "Login number is required",
	"password":     "Password is required",
	"platform":     "Select a platform",
}

type CredentialService struct {
	Credentials CredentialStore
	Sealer      PasswordSealer
	Bus         changefeed.Bus
	Logger      *slog.Logger
}

func (s *CredentialService) Submit(ctx context.Context, sess *Session, in CredentialInput) (*models.BrokerCredential, error) {
	in.BrokerName = strings.TrimSpace(in.BrokerName)
	in.ServerName = strings.TrimSpace(in.ServerName)
	in.LoginNumber = strings.TrimSpace(in.LoginNumber)
	in.Platform = strings.TrimSpace(in.Platform)
	if err := validateStruct(&in, credentialMessages).OrNil(); err != nil {
		return nil, err
	}

	sealed, err := s.Sealer.Seal(in.Password)
	if err != nil {
		return nil, err
	}
	cred := &models.BrokerCredential{
		ID:             uuid.NewString(),
		UserID:         sess.UserID,
		BrokerName:     in.BrokerName,
		ServerName:     in.ServerName,
		LoginNumber:    in.LoginNumber,
		SealedPassword: sealed,
		Platform:       in.Platform,
	}
	if err := s.Credentials.Create(ctx, cred); err != nil {
		return nil, err
	}
	s.Logger.Info("🔐 broker credentials submitted", "credential_id", cred.ID, "user_id", sess.UserID, "platform", cred.Platform)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionCredentials,
		Type:       changefeed.Insert,
		ID:         cred.ID,
		UserID:     sess.UserID,
	})
	cred.Password = models.MaskedPassword
	return cred, nil
}

func (s *CredentialService) ListMine(ctx context.Context, sess *Session, reveal bool) ([]models.BrokerCredential, error) {
	creds, err := s.Credentials.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	s.present(creds, reveal)
	return creds, nil
}

func (s *CredentialService) ListAll(ctx context.Context, reveal bool) ([]models.BrokerCredential, error) {
	creds, err := s.Credentials.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s.present(creds, reveal)
	return creds, nil
}

// present fills the display password, masked unless reveal is set.
func (s *CredentialService) present(creds []models.BrokerCredential, reveal bool) {
	for i := range creds {
		creds[i].Password = models.MaskedPassword
		if !reveal {
			continue
		}
		plain, err := s.Sealer.Open(creds[i].SealedPassword)
		if err != nil {
			s.Logger.Error("❌ cannot unseal broker password", "credential_id", creds[i].ID, "err", err)
			continue
		}
		creds[i].Password = plain
	}
}

// Delete removes one credential. Clients may only delete their own.
func (s *CredentialService) Delete(ctx context.Context, sess *Session, id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	cred, err := s.Credentials.Get(ctx, id)
	if err != nil {
		return err
	}
	if cred.UserID != sess.UserID && !sess.IsOperator() {
		return ledger.ErrForbidden
	}
	if err := s.Credentials.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("🗑️ broker credentials deleted", "credential_id", id, "by", sess.UserID)
	publish(ctx, s.Bus, s.Logger, changefeed.Event{
		Collection: changefeed.CollectionCredentials,
		Type:       changefeed.Delete,
		ID:         id,
		UserID:     cred.UserID,
	})
	return nil
}
