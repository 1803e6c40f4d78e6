package entryform

import (
	"testing"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func snapshot(balance, pending string) domain.LoanSnapshot {
	return domain.LoanSnapshot{
		BalanceAmount:        decimal.RequireFromString(balance),
		TotalPendingInterest: decimal.RequireFromString(pending),
	}
}

func TestOnReceivedInterestChange_WithinCap(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	state = OnReceivedInterestChange(state, snap, "400")

	assert.Empty(t, state.Errors)
	assert.False(t, state.InterestAdjusting)
	assert.Equal(t, "", state.ReceivedAmount, "amount untouched when no adjustment was in flight")
	assert.True(t, state.CanSubmit(snap))
}

func TestOnReceivedInterestChange_ExcessRollsIntoAmount(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	state = OnReceivedInterestChange(state, snap, "700.00")

	assert.True(t, state.InterestAdjusting)
	assert.Equal(t, "200", state.ReceivedAmount)

	fe, ok := state.Errors[FieldReceivedInterest]
	assert.True(t, ok)
	assert.False(t, fe.Blocking)
	assert.Contains(t, fe.Message, "₹500.00")
	assert.Contains(t, fe.Message, "₹200.00")
	assert.True(t, state.CanSubmit(snap), "cap notice is informational")
}

func TestOnReceivedInterestChange_RollsFromBaseNotDisplayed(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	// User typed an amount first; that becomes the anchor.
	state = OnReceivedAmountChange(state, snap, "1000")
	// Repeated over-cap edits recompute from the same base, no stacking.
	state = OnReceivedInterestChange(state, snap, "700")
	assert.Equal(t, "1200", state.ReceivedAmount)
	state = OnReceivedInterestChange(state, snap, "600")
	assert.Equal(t, "1100", state.ReceivedAmount)
	state = OnReceivedInterestChange(state, snap, "800")
	assert.Equal(t, "1300", state.ReceivedAmount)
}

func TestOnReceivedInterestChange_RevertRestoresBase(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	state = OnReceivedInterestChange(state, snap, "700.00")
	assert.Equal(t, "200", state.ReceivedAmount)

	state = OnReceivedInterestChange(state, snap, "300.00")
	assert.Empty(t, state.Errors)
	assert.False(t, state.InterestAdjusting)
	assert.Equal(t, "0", state.ReceivedAmount, "reverting restores the base, not an intermediate value")
}

func TestOnReceivedInterestChange_UnderCapDoesNotClobberTyping(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	// User is mid-way through typing an amount; an under-cap interest edit
	// must not overwrite it when no adjustment was ever active.
	state = OnReceivedAmountChange(state, snap, "15")
	state = OnReceivedInterestChange(state, snap, "100")

	assert.Equal(t, "15", state.ReceivedAmount)
	assert.False(t, state.InterestAdjusting)
}

func TestOnReceivedAmountChange_ExceedsBalance(t *testing.T) {
	snap := snapshot("100.00", "0")
	state := NewFormState()

	state = OnReceivedAmountChange(state, snap, "150")

	fe, ok := state.Errors[FieldReceivedAmount]
	assert.True(t, ok)
	assert.True(t, fe.Blocking)
	assert.Contains(t, fe.Message, "₹150.00")
	assert.Contains(t, fe.Message, "₹100.00")
	assert.False(t, state.CanSubmit(snap))
	assert.Equal(t, "150", state.ReceivedAmount, "raw typed value is kept as-is")
}

func TestOnReceivedAmountChange_BackUnderBalanceClearsError(t *testing.T) {
	snap := snapshot("100.00", "0")
	state := NewFormState()

	state = OnReceivedAmountChange(state, snap, "150")
	assert.False(t, state.CanSubmit(snap))

	state = OnReceivedAmountChange(state, snap, "90")
	assert.Empty(t, state.Errors)
	assert.True(t, state.CanSubmit(snap))
}

func TestOnReceivedInterestChange_RolloverExceedingBalanceBlocks(t *testing.T) {
	snap := snapshot("100.00", "500.00")
	state := NewFormState()

	// Excess of 550 rolls into the amount and trips the balance check.
	state = OnReceivedInterestChange(state, snap, "1050")

	assert.Equal(t, "550", state.ReceivedAmount)
	assert.False(t, state.Errors[FieldReceivedInterest].Blocking)
	assert.True(t, state.Errors[FieldReceivedAmount].Blocking)
	assert.False(t, state.CanSubmit(snap))
}

func TestOnReceivedInterestChange_Idempotent(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	first := OnReceivedInterestChange(state, snap, "700")
	second := OnReceivedInterestChange(first, snap, "700")

	assert.Equal(t, first.ReceivedAmount, second.ReceivedAmount)
	assert.Equal(t, first.BaseReceivedAmount, second.BaseReceivedAmount)
	assert.Equal(t, first.InterestAdjusting, second.InterestAdjusting)
	assert.Equal(t, first.Errors, second.Errors)
}

func TestOnReceivedAmountChange_EngineWriteDoesNotMoveBase(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()

	state = OnReceivedAmountChange(state, snap, "100")
	state = OnReceivedInterestChange(state, snap, "700")
	assert.Equal(t, "300", state.ReceivedAmount)
	// The engine-written 300 is not user intent; base stays at 100.
	assert.True(t, state.BaseReceivedAmount.Equal(decimal.NewFromInt(100)))

	// A genuine user edit while adjusting also leaves the base alone.
	state = OnReceivedAmountChange(state, snap, "400")
	assert.True(t, state.BaseReceivedAmount.Equal(decimal.NewFromInt(100)))

	// Dropping back under the cap restores the user's base.
	state = OnReceivedInterestChange(state, snap, "500")
	assert.Equal(t, "100", state.ReceivedAmount)
}

func TestOnReceivedAmountChange_MalformedInputReadsAsZero(t *testing.T) {
	snap := snapshot("100.00", "50.00")
	state := NewFormState()

	state = OnReceivedAmountChange(state, snap, "12abc")

	assert.Empty(t, state.Errors)
	assert.True(t, state.BaseReceivedAmount.IsZero())
}

func TestCanSubmit_ClosedLoan(t *testing.T) {
	snap := snapshot("0", "0")
	snap.IsClosed = true

	state := NewFormState()
	assert.False(t, state.CanSubmit(snap))
}

func TestNewFormState_Reset(t *testing.T) {
	snap := snapshot("10000.00", "500.00")
	state := NewFormState()
	state = OnReceivedInterestChange(state, snap, "700")
	assert.True(t, state.InterestAdjusting)

	// A fresh snapshot load resets everything.
	state = NewFormState()
	assert.False(t, state.InterestAdjusting)
	assert.True(t, state.BaseReceivedAmount.IsZero())
	assert.Empty(t, state.Errors)
	assert.Equal(t, "", state.ReceivedAmount)
	assert.Equal(t, "", state.ReceivedInterest)
}
