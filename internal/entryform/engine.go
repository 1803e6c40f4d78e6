package entryform

import (
	"fmt"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// validation is the outcome of one run of the shared validation step.
type validation struct {
	errors map[string]FieldError

	// adjustedReceivedAmount is the amount the form should show; written back
	// into the field only when shouldUpdate is set.
	adjustedReceivedAmount decimal.Decimal
	shouldUpdate           bool
	interestAdjusting      bool
}

// OnReceivedAmountChange handles the user typing into the amount field.
// Outside adjustment mode the typed value becomes the new base amount; while
// the engine is adjusting, the write came from the engine itself and must not
// move the anchor. The raw field value is kept as typed.
func OnReceivedAmountChange(state FormState, snap domain.LoanSnapshot, value string) FormState {
	next := state
	next.ReceivedAmount = value
	if !state.InterestAdjusting {
		next.BaseReceivedAmount = parseAmount(value)
	}

	v := validate(next, snap, false)
	next.Errors = v.errors
	return next
}

// OnReceivedInterestChange handles the user typing into the interest field.
// When the shared step decides the amount field must change (excess rollover,
// or reset after leaving adjustment mode), the computed value is written back
// into ReceivedAmount without touching BaseReceivedAmount.
func OnReceivedInterestChange(state FormState, snap domain.LoanSnapshot, value string) FormState {
	next := state
	next.ReceivedInterest = value

	v := validate(next, snap, true)
	next.Errors = v.errors
	next.InterestAdjusting = v.interestAdjusting
	if v.shouldUpdate {
		next.ReceivedAmount = v.adjustedReceivedAmount.String()
	}
	return next
}

// validate is the shared validation/adjustment step. With isInterestChange it
// applies the cap-and-rollover rule: interest above totalPendingInterest is
// capped and the excess rolls into the amount, anchored to the base amount.
// In every case the resulting amount is checked against the balance.
func validate(state FormState, snap domain.LoanSnapshot, isInterestChange bool) validation {
	receivedInterest := parseAmount(state.ReceivedInterest)
	receivedAmount := parseAmount(state.ReceivedAmount)

	v := validation{
		errors:                 map[string]FieldError{},
		adjustedReceivedAmount: receivedAmount,
		interestAdjusting:      state.InterestAdjusting,
	}

	if isInterestChange {
		if receivedInterest.GreaterThan(snap.TotalPendingInterest) {
			excess := receivedInterest.Sub(snap.TotalPendingInterest)
			v.adjustedReceivedAmount = state.BaseReceivedAmount.Add(excess)
			v.interestAdjusting = true
			v.shouldUpdate = true
			v.errors[FieldReceivedInterest] = FieldError{
				Message: fmt.Sprintf(
					"interest will be capped at %s; excess %s will be added to received amount",
					domain.FormatMoney(snap.TotalPendingInterest),
					domain.FormatMoney(excess),
				),
			}
		} else {
			v.adjustedReceivedAmount = state.BaseReceivedAmount
			// Only push the base back into the field if an adjustment was in
			// flight; otherwise the user may still be typing there.
			v.shouldUpdate = state.InterestAdjusting
			v.interestAdjusting = false
		}
	}

	if v.adjustedReceivedAmount.GreaterThan(snap.BalanceAmount) {
		v.errors[FieldReceivedAmount] = FieldError{
			Message: fmt.Sprintf(
				"total received amount %s cannot exceed balance amount %s",
				domain.FormatMoney(v.adjustedReceivedAmount),
				domain.FormatMoney(snap.BalanceAmount),
			),
			Blocking: true,
		}
	}

	return v
}

// parseAmount parses a raw field value, treating empty or malformed input as
// zero. The form never surfaces parse failures; they read as "nothing
// entered".
func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
