package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
)

// DayCloseRepository implements domain.DayCloseRepository using PostgreSQL
type DayCloseRepository struct {
	pool *pgxpool.Pool
}

// NewDayCloseRepository creates a new DayCloseRepository
func NewDayCloseRepository(pool *pgxpool.Pool) *DayCloseRepository {
	return &DayCloseRepository{pool: pool}
}

// Create records a day-close run
func (r *DayCloseRepository) Create(run *domain.DayCloseRun) (*domain.DayCloseRun, error) {
	ctx := context.Background()

	accrued, err := decimalToPgNumeric(run.InterestAccrued)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO day_close_runs (id, run_date, loans_processed, interest_accrued)
		VALUES ($1, $2, $3, $4)
		RETURNING id, run_date, loans_processed, interest_accrued, created_at`,
		run.ID, timeToPgDate(run.RunDate), run.LoansProcessed, accrued)
	return scanDayCloseRun(row)
}

// GetByRunDate retrieves the run for a given date, if any
func (r *DayCloseRepository) GetByRunDate(runDate time.Time) (*domain.DayCloseRun, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT id, run_date, loans_processed, interest_accrued, created_at
		FROM day_close_runs
		WHERE run_date = $1`, timeToPgDate(runDate))
	run, err := scanDayCloseRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListRecent retrieves the most recent runs, newest first
func (r *DayCloseRepository) ListRecent(limit int32) ([]*domain.DayCloseRun, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT id, run_date, loans_processed, interest_accrued, created_at
		FROM day_close_runs
		ORDER BY run_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.DayCloseRun
	for rows.Next() {
		run, err := scanDayCloseRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanDayCloseRun(row pgx.Row) (*domain.DayCloseRun, error) {
	var (
		run       domain.DayCloseRun
		runDate   pgtype.Date
		accrued   pgtype.Numeric
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&run.ID, &runDate, &run.LoansProcessed, &accrued, &createdAt); err != nil {
		return nil, err
	}
	run.RunDate = runDate.Time
	run.InterestAccrued = pgNumericToDecimal(accrued)
	run.CreatedAt = createdAt.Time
	return &run, nil
}
