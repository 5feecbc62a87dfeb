package ledger

import "fmt"

// ClientStatus is the application/engagement axis of a client.
type ClientStatus string

const (
	StatusNewApplicant ClientStatus = "new_applicant"
	StatusApproved     ClientStatus = "approved"
	StatusActive       ClientStatus = "active"
	StatusPaused       ClientStatus = "paused"
	StatusRejected     ClientStatus = "rejected"
)

var clientStatusTransitions = map[ClientStatus][]ClientStatus{
	StatusNewApplicant: {StatusApproved, StatusRejected},
	StatusApproved:     {StatusActive},
	StatusActive:       {StatusPaused, StatusRejected},
	StatusPaused:       {StatusActive, StatusRejected},
	StatusRejected:     nil,
}

func (s ClientStatus) Valid() bool {
	_, ok := clientStatusTransitions[s]
	return ok
}

// FinancialsVisible reports whether balance cards and the settlement section
// may be shown for a client in this status.
func (s ClientStatus) FinancialsVisible() bool {
	return s == StatusApproved || s == StatusActive
}

// CanTransition reports whether s may move to next. Staying put is allowed.
func (s ClientStatus) CanTransition(next ClientStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range clientStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ActivationStatus is the trading-cycle axis of a client, independent of
// ClientStatus.
type ActivationStatus string

const (
	ActivationPending           ActivationStatus = "pending_sunday_activation"
	ActivationActive            ActivationStatus = "active"
	ActivationPendingSettlement ActivationStatus = "pending_settlement"
	ActivationSettled           ActivationStatus = "settled"
)

func (a ActivationStatus) Valid() bool {
	switch a {
	case ActivationPending, ActivationActive, ActivationPendingSettlement, ActivationSettled:
		return true
	}
	return false
}

// Badge is the short label shown on the client dashboard.
func (a ActivationStatus) Badge() string {
	switch a {
	case ActivationPending:
		return "Pending Sunday Activation"
	case ActivationActive:
		return "Active"
	case ActivationPendingSettlement:
		return "Pending Settlement"
	case ActivationSettled:
		return "Settled"
	}
	return string(a)
}

// Trigger names what is asking for an activation change. Some edges may only
// be taken by a specific trigger.
type Trigger string

const (
	TriggerOperator       Trigger = "operator"
	TriggerSundayBatch    Trigger = "sunday_batch"
	TriggerProofSubmitted Trigger = "proof_submitted"
	TriggerProofConfirmed Trigger = "proof_confirmed"
	TriggerNewCycle       Trigger = "new_cycle"
	TriggerRejection      Trigger = "rejection"
)

type activationEdge struct {
	from, to ActivationStatus
}

var activationTriggers = map[activationEdge][]Trigger{
	{ActivationPending, ActivationActive}:            {TriggerSundayBatch},
	{ActivationActive, ActivationPendingSettlement}:  {TriggerOperator, TriggerProofSubmitted},
	{ActivationPendingSettlement, ActivationSettled}: {TriggerOperator, TriggerProofConfirmed, TriggerRejection},
	{ActivationActive, ActivationSettled}:            {TriggerRejection},
	{ActivationSettled, ActivationPending}:           {TriggerNewCycle},
}

// CloseOnRejection returns the activation state a client is left in when it
// is rejected. Trading and open settlements are closed out.
func CloseOnRejection(a ActivationStatus) ActivationStatus {
	if a == ActivationActive || a == ActivationPendingSettlement {
		return ActivationSettled
	}
	return a
}

// CanActivate reports whether trigger t may move a from the current state to
// next. Staying put is always allowed.
func (a ActivationStatus) CanActivate(next ActivationStatus, t Trigger) bool {
	if a == next {
		return a.Valid()
	}
	for _, allowed := range activationTriggers[activationEdge{a, next}] {
		if allowed == t {
			return true
		}
	}
	return false
}

// ValidCombination reports whether the pair may coexist on one client. A
// rejected client is never trading or owing a settlement.
func ValidCombination(s ClientStatus, a ActivationStatus) bool {
	if !s.Valid() || !a.Valid() {
		return false
	}
	if s == StatusRejected {
		return a != ActivationActive && a != ActivationPendingSettlement
	}
	return true
}

// CheckTransition validates a combined change of both axes made by trigger t.
func CheckTransition(fromS ClientStatus, fromA ActivationStatus, toS ClientStatus, toA ActivationStatus, t Trigger) error {
	if !toS.Valid() {
		return NewValidationError("status", "Unknown status")
	}
	if !toA.Valid() {
		return NewValidationError("activation_status", "Unknown activation status")
	}
	if !fromS.CanTransition(toS) {
		return fmt.Errorf("%w: status %s -> %s", ErrInvalidTransition, fromS, toS)
	}
	if !fromA.CanActivate(toA, t) {
		return fmt.Errorf("%w: activation %s -> %s by %s", ErrInvalidTransition, fromA, toA, t)
	}
	if !ValidCombination(toS, toA) {
		return fmt.Errorf("%w: %s cannot be %s", ErrInvalidTransition, toS, toA)
	}
	return nil
}
