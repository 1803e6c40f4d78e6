package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
)

const entryColumns = `id, loan_id, entry_date, received_date, received_amount, received_interest,
	requested_amount, requested_interest, balance_after, interest_after, receipt_path, created_at`

// EntryRepository implements domain.EntryRepository using PostgreSQL
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create inserts a new entry
func (r *EntryRepository) Create(entry *domain.Entry) (*domain.Entry, error) {
	return r.create(context.Background(), r.pool, entry)
}

// CreateTx inserts a new entry within a transaction
func (r *EntryRepository) CreateTx(tx interface{}, entry *domain.Entry) (*domain.Entry, error) {
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, errors.New("invalid transaction type")
	}
	return r.create(context.Background(), pgxTx, entry)
}

// querier covers pool and transaction alike
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *EntryRepository) create(ctx context.Context, q querier, entry *domain.Entry) (*domain.Entry, error) {
	receivedAmount, err := decimalToPgNumeric(entry.ReceivedAmount)
	if err != nil {
		return nil, err
	}
	receivedInterest, err := decimalToPgNumeric(entry.ReceivedInterest)
	if err != nil {
		return nil, err
	}
	requestedAmount, err := decimalToPgNumeric(entry.RequestedAmount)
	if err != nil {
		return nil, err
	}
	requestedInterest, err := decimalToPgNumeric(entry.RequestedInterest)
	if err != nil {
		return nil, err
	}
	balanceAfter, err := decimalToPgNumeric(entry.BalanceAfter)
	if err != nil {
		return nil, err
	}
	interestAfter, err := decimalToPgNumeric(entry.InterestAfter)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `
		INSERT INTO entries (
			id, loan_id, entry_date, received_date, received_amount, received_interest,
			requested_amount, requested_interest, balance_after, interest_after
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+entryColumns,
		entry.ID, entry.LoanID, timeToPgDate(entry.EntryDate), timePtrToPgDate(entry.ReceivedDate),
		receivedAmount, receivedInterest, requestedAmount, requestedInterest,
		balanceAfter, interestAfter,
	)
	return scanEntry(row)
}

// GetByID retrieves an entry by its ID
func (r *EntryRepository) GetByID(id uuid.UUID) (*domain.Entry, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// GetByLoanID retrieves a page of a loan's entries, newest first, and the total count
func (r *EntryRepository) GetByLoanID(loanID uuid.UUID, filters domain.EntryListFilters) ([]*domain.Entry, int64, error) {
	ctx := context.Background()

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM entries WHERE loan_id = $1`, loanID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (filters.Page - 1) * filters.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE loan_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2 OFFSET $3`, loanID, filters.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// MonthlySummaries aggregates a loan's entries per calendar month, oldest
// first. The closing balance is taken from the month's last entry.
func (r *EntryRepository) MonthlySummaries(loanID uuid.UUID) ([]*domain.MonthlySummary, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT
			EXTRACT(YEAR FROM entry_date)::int AS year,
			EXTRACT(MONTH FROM entry_date)::int AS month,
			COUNT(*) AS entry_count,
			COALESCE(SUM(received_amount), 0) AS principal_received,
			COALESCE(SUM(received_interest), 0) AS interest_received,
			(ARRAY_AGG(balance_after ORDER BY entry_date DESC, created_at DESC))[1] AS closing_balance
		FROM entries
		WHERE loan_id = $1
		GROUP BY 1, 2
		ORDER BY 1, 2`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.MonthlySummary
	for rows.Next() {
		var (
			s                 domain.MonthlySummary
			principalReceived pgtype.Numeric
			interestReceived  pgtype.Numeric
			closingBalance    pgtype.Numeric
		)
		if err := rows.Scan(&s.Year, &s.Month, &s.EntryCount, &principalReceived, &interestReceived, &closingBalance); err != nil {
			return nil, err
		}
		s.PrincipalReceived = pgNumericToDecimal(principalReceived)
		s.InterestReceived = pgNumericToDecimal(interestReceived)
		s.ClosingBalance = pgNumericToDecimal(closingBalance)
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// SetReceiptPath records the storage path of an entry's receipt image
func (r *EntryRepository) SetReceiptPath(id uuid.UUID, path string) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE entries SET receipt_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry             domain.Entry
		entryDate         pgtype.Date
		receivedDate      pgtype.Date
		receivedAmount    pgtype.Numeric
		receivedInterest  pgtype.Numeric
		requestedAmount   pgtype.Numeric
		requestedInterest pgtype.Numeric
		balanceAfter      pgtype.Numeric
		interestAfter     pgtype.Numeric
		receiptPath       pgtype.Text
		createdAt         pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.ID, &entry.LoanID, &entryDate, &receivedDate, &receivedAmount, &receivedInterest,
		&requestedAmount, &requestedInterest, &balanceAfter, &interestAfter, &receiptPath, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry.EntryDate = entryDate.Time
	if receivedDate.Valid {
		entry.ReceivedDate = &receivedDate.Time
	}
	entry.ReceivedAmount = pgNumericToDecimal(receivedAmount)
	entry.ReceivedInterest = pgNumericToDecimal(receivedInterest)
	entry.RequestedAmount = pgNumericToDecimal(requestedAmount)
	entry.RequestedInterest = pgNumericToDecimal(requestedInterest)
	entry.BalanceAfter = pgNumericToDecimal(balanceAfter)
	entry.InterestAfter = pgNumericToDecimal(interestAfter)
	if receiptPath.Valid {
		entry.ReceiptPath = &receiptPath.String
	}
	entry.CreatedAt = createdAt.Time
	return &entry, nil
}
