package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/testutil"
)

func TestDayCloseRun_AccruesOverdueInterest(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	dayCloseRepo := testutil.NewMockDayCloseRepository()
	svc := NewDayCloseService(nil, loanRepo, dayCloseRepo)

	// Due loan: 10000 at 4% with next entry date already passed
	due := newEntryTestLoan(decimal.NewFromInt(10000), decimal.Zero, decimal.NewFromInt(4))
	due.NextEntryDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loanRepo.AddLoan(due)

	// Not yet due
	notDue := newEntryTestLoan(decimal.NewFromInt(5000), decimal.Zero, decimal.NewFromInt(2))
	notDue.NextEntryDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loanRepo.AddLoan(notDue)

	run, err := svc.Run(context.Background(), time.Date(2026, 2, 10, 6, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if run.LoansProcessed != 1 {
		t.Errorf("Expected 1 loan processed, got %d", run.LoansProcessed)
	}
	if !run.InterestAccrued.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected 400 interest accrued, got %s", run.InterestAccrued.String())
	}

	updated, _ := loanRepo.GetByID(due.ID)
	if !updated.BalanceInterest.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected balance interest 400, got %s", updated.BalanceInterest.String())
	}
	wantNext := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !updated.NextEntryDate.Equal(wantNext) {
		t.Errorf("Expected next entry date %s, got %s", wantNext, updated.NextEntryDate)
	}

	untouched, _ := loanRepo.GetByID(notDue.ID)
	if !untouched.BalanceInterest.IsZero() {
		t.Errorf("Expected not-due loan untouched, got interest %s", untouched.BalanceInterest.String())
	}
}

func TestDayCloseRun_MultiplePeriodsBehind(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	dayCloseRepo := testutil.NewMockDayCloseRepository()
	svc := NewDayCloseService(nil, loanRepo, dayCloseRepo)

	// Two full periods overdue: accrues twice and the date advances past asOf
	loan := newEntryTestLoan(decimal.NewFromInt(10000), decimal.Zero, decimal.NewFromInt(4))
	loan.NextEntryDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loanRepo.AddLoan(loan)

	run, err := svc.Run(context.Background(), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !run.InterestAccrued.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected 800 interest accrued, got %s", run.InterestAccrued.String())
	}

	updated, _ := loanRepo.GetByID(loan.ID)
	wantNext := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !updated.NextEntryDate.Equal(wantNext) {
		t.Errorf("Expected next entry date %s, got %s", wantNext, updated.NextEntryDate)
	}
}

func TestDayCloseRun_Idempotent(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	dayCloseRepo := testutil.NewMockDayCloseRepository()
	svc := NewDayCloseService(nil, loanRepo, dayCloseRepo)

	asOf := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), asOf); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Same date again, even at a different time of day
	_, err := svc.Run(context.Background(), asOf.Add(5*time.Hour))
	if err != domain.ErrDayCloseAlreadyRun {
		t.Errorf("Expected ErrDayCloseAlreadyRun, got %v", err)
	}
}

func TestDayCloseRun_SkipsClosedLoans(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	dayCloseRepo := testutil.NewMockDayCloseRepository()
	svc := NewDayCloseService(nil, loanRepo, dayCloseRepo)

	loan := newEntryTestLoan(decimal.NewFromInt(10000), decimal.Zero, decimal.NewFromInt(4))
	loan.NextEntryDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loan.Closed = true
	loanRepo.AddLoan(loan)

	run, err := svc.Run(context.Background(), time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if run.LoansProcessed != 0 {
		t.Errorf("Expected no loans processed, got %d", run.LoansProcessed)
	}
}

func TestListRuns_ClampsLimit(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	dayCloseRepo := testutil.NewMockDayCloseRepository()
	svc := NewDayCloseService(nil, loanRepo, dayCloseRepo)

	if _, err := svc.Run(context.Background(), time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	runs, err := svc.ListRuns(0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected 1 run, got %d", len(runs))
	}
}
