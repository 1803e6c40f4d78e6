// Package entryform holds the client-side state of the "new entry" form and
// the adjustment arithmetic that keeps the received amount and received
// interest consistent with the server-declared interest cap and the
// outstanding balance. The server performs the authoritative allocation on
// submission; everything here is a preview of that split.
package entryform

import (
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Form field names, used as keys in the validation error map.
const (
	FieldReceivedAmount   = "receivedAmount"
	FieldReceivedInterest = "receivedInterest"
)

// FieldError is a per-field validation message. Blocking errors must prevent
// submission; informational ones accompany an automatic value adjustment.
type FieldError struct {
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// FormState is the immutable state of one open entry form. Transitions go
// through OnReceivedAmountChange and OnReceivedInterestChange, which return a
// new state and never mutate the receiver.
type FormState struct {
	// ReceivedInterest and ReceivedAmount hold the raw field contents.
	ReceivedInterest string
	ReceivedAmount   string

	// BaseReceivedAmount is the last amount the user typed, as opposed to a
	// value the engine wrote back. Recomputation anchors here so repeated
	// interest edits never stack onto an engine-written amount.
	BaseReceivedAmount decimal.Decimal

	// InterestAdjusting is set while the interest field exceeds the pending
	// interest cap and the amount field is absorbing the excess.
	InterestAdjusting bool

	Errors map[string]FieldError
}

// NewFormState returns the reset state used whenever a fresh loan snapshot
// loads: fields cleared, base amount zeroed, no adjustment in flight.
func NewFormState() FormState {
	return FormState{
		BaseReceivedAmount: decimal.Zero,
		Errors:             map[string]FieldError{},
	}
}

// CanSubmit reports whether the form may be submitted against the given
// snapshot: the loan must be open and no blocking error present.
// Informational errors do not block.
func (s FormState) CanSubmit(snap domain.LoanSnapshot) bool {
	if snap.IsClosed {
		return false
	}
	for _, fe := range s.Errors {
		if fe.Blocking {
			return false
		}
	}
	return true
}
