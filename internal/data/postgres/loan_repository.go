package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/platform/persistence"
)

const loanColumns = `id, member_id, copy_id, issue_date, due_date, return_date, idempotency_key, created_at`

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLoanRepository creates a loan repository bound to the pool.
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{querier: db.Pool(), logger: logger}
}

// WithTx returns a repository that runs every statement on tx.
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{querier: tx, logger: r.logger}
}

// Create inserts a new open loan. The partial unique index on open loans turns a
// lost issuance race into ErrCopyUnavailable instead of a second open loan.
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID,
		l.MemberID,
		l.CopyID,
		l.IssueDate,
		l.DueDate,
		l.ReturnDate,
		l.IdempotencyKey,
		l.CreatedAt,
	)
	if err != nil {
		if constraint, ok := persistence.IsUniqueViolation(err); ok {
			switch constraint {
			case constraintLoanIdempotencyKey:
				return loan.ErrIdempotencyKeyReused{Key: *l.IdempotencyKey}
			case constraintOpenLoanPerCopy:
				return bookcopy.ErrCopyUnavailable{CopyID: l.CopyID, Status: bookcopy.StatusIssued}
			}
		}
		r.logger.Error("Failed to create loan", "loan_id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return r.getOne(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

// LockForUpdate reads the loan and locks its row for the rest of the transaction.
func (r *LoanRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return r.getOne(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
}

// GetByIdempotencyKey finds the loan recorded under key, or nil.
func (r *LoanRepository) GetByIdempotencyKey(ctx context.Context, key string) (*loan.Loan, error) {
	if key == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	l, err := r.scanLoan(r.querier.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get loan by idempotency key", "error", err)
		return nil, fmt.Errorf("failed to get loan by idempotency key: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*loan.Loan, error) {
	l, err := r.scanLoan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to get loan", "loan_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID,
		&l.MemberID,
		&l.CopyID,
		&l.IssueDate,
		&l.DueDate,
		&l.ReturnDate,
		&l.IdempotencyKey,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// MarkReturned sets the return date of an open loan.
func (r *LoanRepository) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error {
	query := `UPDATE loans SET return_date = $1 WHERE id = $2 AND return_date IS NULL`

	result, err := r.querier.Exec(ctx, query, returnDate, id)
	if err != nil {
		r.logger.Error("Failed to mark loan returned", "loan_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark loan returned: %w", err)
	}
	if result.RowsAffected() == 0 {
		return loan.ErrLoanNotFound{LoanID: id}
	}
	return nil
}

// HasOpenLoanForCopy reports whether any loan still holds the copy.
func (r *LoanRepository) HasOpenLoanForCopy(ctx context.Context, copyID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE copy_id = $1 AND return_date IS NULL)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, copyID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check open loans for copy", "copy_id", copyID.String(), "error", err)
		return false, fmt.Errorf("failed to check open loans for copy: %w", err)
	}
	return exists, nil
}

// GetSummary fetches one loan with its member, book and copy details.
func (r *LoanRepository) GetSummary(ctx context.Context, id uuid.UUID, asOf time.Time) (*loan.Summary, error) {
	query, args, err := loanSummaryQuery(asOf).
		Where(goqu.I("l.id").Eq(id.String())).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build loan query: %w", err)
	}

	summaries, err := r.querySummaries(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, loan.ErrLoanNotFound{LoanID: id}
	}
	return summaries[0], nil
}

// List returns loans matching filter, most recently issued first.
func (r *LoanRepository) List(ctx context.Context, filter loan.Filter) ([]*loan.Summary, error) {
	query, args, err := buildLoanListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build loan query: %w", err)
	}
	return r.querySummaries(ctx, query, args)
}

func loanSummaryQuery(asOf time.Time) *goqu.SelectDataset {
	return dialect.From(goqu.T("loans").As("l")).
		Prepared(true).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("l.member_id")))).
		Join(goqu.T("book_copies").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("l.copy_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("c.book_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.member_id"), goqu.I("l.copy_id"),
			goqu.I("l.issue_date"), goqu.I("l.due_date"), goqu.I("l.return_date"), goqu.I("l.created_at"),
			goqu.I("m.name"), goqu.I("m.email"),
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.isbn"),
			goqu.I("c.barcode"), goqu.I("c.status"),
			goqu.L("(l.return_date IS NULL AND l.due_date < ?)", asOf).As("is_overdue"),
		)
}

func buildLoanListQuery(filter loan.Filter) (string, []interface{}, error) {
	ds := loanSummaryQuery(filter.AsOf)

	if filter.MemberID != nil {
		ds = ds.Where(goqu.I("l.member_id").Eq(filter.MemberID.String()))
	}
	if filter.OverdueOnly {
		ds = ds.Where(goqu.I("l.return_date").IsNull(), goqu.I("l.due_date").Lt(filter.AsOf))
	}
	if filter.Returned != nil {
		if *filter.Returned {
			ds = ds.Where(goqu.I("l.return_date").IsNotNull())
		} else {
			ds = ds.Where(goqu.I("l.return_date").IsNull())
		}
	}

	return ds.Order(goqu.I("l.issue_date").Desc(), goqu.I("l.created_at").Desc()).ToSQL()
}

func (r *LoanRepository) querySummaries(ctx context.Context, query string, args []interface{}) ([]*loan.Summary, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	summaries := make([]*loan.Summary, 0)
	for rows.Next() {
		var s loan.Summary
		err := rows.Scan(
			&s.ID, &s.MemberID, &s.CopyID,
			&s.IssueDate, &s.DueDate, &s.ReturnDate, &s.CreatedAt,
			&s.MemberName, &s.MemberEmail,
			&s.BookID, &s.BookTitle, &s.ISBN,
			&s.Barcode, &s.CopyStatus,
			&s.IsOverdue,
		)
		if err != nil {
			r.logger.Error("Failed to scan loan", "error", err)
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over loans: %w", err)
	}
	return summaries, nil
}
