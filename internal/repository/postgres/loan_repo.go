package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, borrower_name, principal_amount, balance_amount, balance_interest,
	interest_rate_percent, start_date, next_entry_date, closed, closed_at,
	written_off_interest, notes, created_at, updated_at, deleted_at`

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// Create inserts a new loan
func (r *LoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	ctx := context.Background()

	principal, err := decimalToPgNumeric(loan.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	balance, err := decimalToPgNumeric(loan.BalanceAmount)
	if err != nil {
		return nil, err
	}
	balanceInterest, err := decimalToPgNumeric(loan.BalanceInterest)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(loan.InterestRatePercent)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO loans (
			id, borrower_name, principal_amount, balance_amount, balance_interest,
			interest_rate_percent, start_date, next_entry_date, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+loanColumns,
		loan.ID, loan.BorrowerName, principal, balance, balanceInterest,
		rate, timeToPgDate(loan.StartDate), timeToPgDate(loan.NextEntryDate),
		strPtrToPgText(loan.Notes),
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(id uuid.UUID) (*domain.Loan, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE id = $1 AND deleted_at IS NULL`, id)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// List retrieves a page of loans and the total count
func (r *LoanRepository) List(filters domain.LoanListFilters) ([]*domain.Loan, int64, error) {
	ctx := context.Background()

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM loans
		WHERE deleted_at IS NULL AND ($1 OR NOT closed)`, filters.IncludeClosed).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (filters.Page - 1) * filters.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE deleted_at IS NULL AND ($1 OR NOT closed)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, filters.IncludeClosed, filters.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, 0, err
		}
		loans = append(loans, loan)
	}
	return loans, total, rows.Err()
}

// Update updates the editable fields (borrower name, interest rate, notes)
func (r *LoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	ctx := context.Background()

	rate, err := decimalToPgNumeric(loan.InterestRatePercent)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE loans
		SET borrower_name = $2, notes = $3, interest_rate_percent = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+loanColumns,
		loan.ID, loan.BorrowerName, strPtrToPgText(loan.Notes), rate)
	updated, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return updated, nil
}

// UpdateServicingStateTx persists balances and the next entry date within a transaction
func (r *LoanRepository) UpdateServicingStateTx(tx interface{}, loan *domain.Loan) error {
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return errors.New("invalid transaction type")
	}

	balance, err := decimalToPgNumeric(loan.BalanceAmount)
	if err != nil {
		return err
	}
	balanceInterest, err := decimalToPgNumeric(loan.BalanceInterest)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(), `
		UPDATE loans
		SET balance_amount = $2, balance_interest = $3, next_entry_date = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		loan.ID, balance, balanceInterest, timeToPgDate(loan.NextEntryDate))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

// ListDue retrieves open loans whose next entry date is on or before asOf
func (r *LoanRepository) ListDue(asOf time.Time) ([]*domain.Loan, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE deleted_at IS NULL AND NOT closed AND next_entry_date <= $1
		ORDER BY next_entry_date`, timeToPgDate(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// Close marks a loan closed and records any written-off interest
func (r *LoanRepository) Close(id uuid.UUID, closedAt time.Time, writtenOffInterest decimal.Decimal) (*domain.Loan, error) {
	ctx := context.Background()

	writtenOff, err := decimalToPgNumeric(writtenOffInterest)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE loans
		SET closed = TRUE, closed_at = $2, written_off_interest = $3,
			balance_interest = 0, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+loanColumns,
		id, closedAt, writtenOff)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// SoftDelete marks a loan as deleted
func (r *LoanRepository) SoftDelete(id uuid.UUID) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE loans SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		loan            domain.Loan
		principal       pgtype.Numeric
		balance         pgtype.Numeric
		balanceInterest pgtype.Numeric
		rate            pgtype.Numeric
		writtenOff      pgtype.Numeric
		startDate       pgtype.Date
		nextEntryDate   pgtype.Date
		closedAt        pgtype.Timestamptz
		notes           pgtype.Text
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		deletedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&loan.ID, &loan.BorrowerName, &principal, &balance, &balanceInterest,
		&rate, &startDate, &nextEntryDate, &loan.Closed, &closedAt,
		&writtenOff, &notes, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.PrincipalAmount = pgNumericToDecimal(principal)
	loan.BalanceAmount = pgNumericToDecimal(balance)
	loan.BalanceInterest = pgNumericToDecimal(balanceInterest)
	loan.InterestRatePercent = pgNumericToDecimal(rate)
	loan.WrittenOffInterest = pgNumericToDecimal(writtenOff)
	loan.StartDate = startDate.Time
	loan.NextEntryDate = nextEntryDate.Time
	loan.CreatedAt = createdAt.Time
	loan.UpdatedAt = updatedAt.Time
	if closedAt.Valid {
		loan.ClosedAt = &closedAt.Time
	}
	if notes.Valid {
		loan.Notes = &notes.String
	}
	if deletedAt.Valid {
		loan.DeletedAt = &deletedAt.Time
	}
	return &loan, nil
}
