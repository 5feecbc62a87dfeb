// Package notifier sends outbound operator alerts. Delivery is best effort:
// callers go through Async so a failing sink never holds up the request
// that raised the event.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Kind string

const (
	NewApplication  Kind = "new_application"
	ClientApproved  Kind = "client_approved"
	ProofSubmitted  Kind = "proof_submitted"
	ProofConfirmed  Kind = "proof_confirmed"
	SundayActivated Kind = "sunday_activation"
)

type Event struct {
	Kind           Kind      `json:"event"`
	ClientID       string    `json:"client_id,omitempty"`
	ClientName     string    `json:"client_name,omitempty"`
	ClientEmail    string    `json:"client_email,omitempty"`
	ClientWhatsApp string    `json:"client_whatsapp,omitempty"`
	Status         string    `json:"status,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Count          int       `json:"count,omitempty"`
	At             time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi delivers to every sink and joins whatever failed.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async hands events to a background goroutine and returns at once.
// Failures are logged and otherwise dropped.
type Async struct {
	Next    Notifier
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewAsync(next Notifier, logger *slog.Logger) *Async {
	return &Async{Next: next, Timeout: 10 * time.Second, Logger: logger}
}

func (a *Async) Notify(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		defer cancel()
		if err := a.Next.Notify(ctx, ev); err != nil {
			a.Logger.Warn("📭 notification not delivered", "event", ev.Kind, "client_id", ev.ClientID, "err", err)
			return
		}
		a.Logger.Debug("📨 notification sent", "event", ev.Kind, "client_id", ev.ClientID)
	}()
	return nil
}
