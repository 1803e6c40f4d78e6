package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/util"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/websocket"
)

// DayCloseService runs the daily interest accrual batch. For every open loan
// whose next entry date has passed without an entry, the period's interest is
// folded into the carried balance interest and the next entry date advances.
type DayCloseService struct {
	pool           *pgxpool.Pool
	loanRepo       domain.LoanRepository
	dayCloseRepo   domain.DayCloseRepository
	eventPublisher websocket.EventPublisher
}

// NewDayCloseService creates a new DayCloseService
func NewDayCloseService(pool *pgxpool.Pool, loanRepo domain.LoanRepository, dayCloseRepo domain.DayCloseRepository) *DayCloseService {
	return &DayCloseService{
		pool:         pool,
		loanRepo:     loanRepo,
		dayCloseRepo: dayCloseRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *DayCloseService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *DayCloseService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Run executes the day-close batch for asOf's date. Running twice for the
// same date returns domain.ErrDayCloseAlreadyRun.
func (s *DayCloseService) Run(ctx context.Context, asOf time.Time) (*domain.DayCloseRun, error) {
	runDate := util.TruncateToDate(asOf)

	if _, err := s.dayCloseRepo.GetByRunDate(runDate); err == nil {
		return nil, domain.ErrDayCloseAlreadyRun
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	loans, err := s.loanRepo.ListDue(runDate)
	if err != nil {
		return nil, err
	}

	run := &domain.DayCloseRun{
		RunDate:         runDate,
		InterestAccrued: decimal.Zero,
	}

	for _, loan := range loans {
		accrued := s.accrue(loan, runDate)
		if err := s.updateLoan(ctx, loan); err != nil {
			return nil, err
		}
		run.LoansProcessed++
		run.InterestAccrued = run.InterestAccrued.Add(accrued)
	}

	created, err := s.dayCloseRepo.Create(run)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("run_date", runDate.Format("2006-01-02")).
		Int32("loans_processed", created.LoansProcessed).
		Str("interest_accrued", created.InterestAccrued.StringFixed(2)).
		Msg("Day close completed")

	s.publishEvent(websocket.DayCloseCompleted(created))
	return created, nil
}

// accrue folds every overdue servicing period's interest into the loan's
// carried balance interest and advances the next entry date past runDate.
func (s *DayCloseService) accrue(loan *domain.Loan, runDate time.Time) decimal.Decimal {
	total := decimal.Zero
	for !loan.NextEntryDate.After(runDate) {
		accrual := loan.CalculatedInterestAmount()
		loan.BalanceInterest = loan.BalanceInterest.Add(accrual)
		loan.NextEntryDate = util.AddServicingPeriod(loan.NextEntryDate)
		total = total.Add(accrual)
	}
	return total
}

func (s *DayCloseService) updateLoan(ctx context.Context, loan *domain.Loan) error {
	if s.pool == nil {
		// No pool wired (tests)
		return s.loanRepo.UpdateServicingStateTx(nil, loan)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.loanRepo.UpdateServicingStateTx(tx, loan); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListRuns returns the most recent day-close runs
func (s *DayCloseService) ListRuns(limit int32) ([]*domain.DayCloseRun, error) {
	if limit < 1 || limit > domain.MaxPageSize {
		limit = domain.DefaultPageSize
	}
	return s.dayCloseRepo.ListRecent(limit)
}
