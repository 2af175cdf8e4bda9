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
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const fineColumns = `id, loan_id, amount, paid, paid_date, created_at`

// FineRepository implements the fine.Repository interface for PostgreSQL
type FineRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFineRepository creates a fine repository bound to the pool.
func NewFineRepository(logger *slog.Logger, db *persistence.PostgresDB) fine.Repository {
	return &FineRepository{querier: db.Pool(), logger: logger}
}

// WithTx returns a repository that runs every statement on tx.
func (r *FineRepository) WithTx(tx pgx.Tx) fine.Repository {
	return &FineRepository{querier: tx, logger: r.logger}
}

// Create inserts a fine. A second fine for the same loan is rejected by the
// unique constraint and reported as ErrDuplicateFine.
func (r *FineRepository) Create(ctx context.Context, f *fine.Fine) error {
	query := `
		INSERT INTO fines (` + fineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, f.ID, f.LoanID, f.Amount, f.Paid, f.PaidDate, f.CreatedAt)
	if err != nil {
		if constraint, ok := persistence.IsUniqueViolation(err); ok && constraint == constraintFinePerLoan {
			return fine.ErrDuplicateFine{LoanID: f.LoanID}
		}
		r.logger.Error("Failed to create fine", "loan_id", f.LoanID.String(), "error", err)
		return fmt.Errorf("failed to create fine: %w", err)
	}
	return nil
}

// GetByID retrieves a fine by its ID
func (r *FineRepository) GetByID(ctx context.Context, id uuid.UUID) (*fine.Fine, error) {
	return r.getOne(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1`, id)
}

// LockForUpdate reads the fine and locks its row for the rest of the transaction.
func (r *FineRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*fine.Fine, error) {
	return r.getOne(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1 FOR UPDATE`, id)
}

func (r *FineRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*fine.Fine, error) {
	f, err := scanFine(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fine.ErrFineNotFound{FineID: id}
		}
		r.logger.Error("Failed to get fine", "fine_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get fine: %w", err)
	}
	return f, nil
}

// GetByLoanID returns the loan's fine, or nil when none was assessed.
func (r *FineRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) (*fine.Fine, error) {
	f, err := scanFine(r.querier.QueryRow(ctx, `SELECT `+fineColumns+` FROM fines WHERE loan_id = $1`, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get fine by loan", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to get fine by loan: %w", err)
	}
	return f, nil
}

func scanFine(row pgx.Row) (*fine.Fine, error) {
	var f fine.Fine
	if err := row.Scan(&f.ID, &f.LoanID, &f.Amount, &f.Paid, &f.PaidDate, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// MarkPaid records the payment.
func (r *FineRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidDate time.Time) error {
	query := `UPDATE fines SET paid = TRUE, paid_date = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, paidDate, id)
	if err != nil {
		r.logger.Error("Failed to mark fine paid", "fine_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark fine paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fine.ErrFineNotFound{FineID: id}
	}
	return nil
}

// TotalUnpaidByMember sums the member's unpaid fines across all their loans.
func (r *FineRepository) TotalUnpaidByMember(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(f.amount), 0)
		FROM fines f
		JOIN loans l ON l.id = f.loan_id
		WHERE l.member_id = $1 AND f.paid = FALSE
	`

	var total decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, memberID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum unpaid fines", "member_id", memberID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum unpaid fines: %w", err)
	}
	return total, nil
}

// GetSummary fetches one fine with its loan, member and book details.
func (r *FineRepository) GetSummary(ctx context.Context, id uuid.UUID) (*fine.Summary, error) {
	query, args, err := fineSummaryQuery().Where(goqu.I("f.id").Eq(id.String())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build fine query: %w", err)
	}

	summaries, err := r.querySummaries(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fine.ErrFineNotFound{FineID: id}
	}
	return summaries[0], nil
}

// List returns fines matching filter, unpaid first and newest first within each group.
func (r *FineRepository) List(ctx context.Context, filter fine.Filter) ([]*fine.Summary, error) {
	query, args, err := buildFineListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build fine query: %w", err)
	}
	return r.querySummaries(ctx, query, args)
}

func fineSummaryQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("fines").As("f")).
		Prepared(true).
		Join(goqu.T("loans").As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("f.loan_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("l.member_id")))).
		Join(goqu.T("book_copies").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("l.copy_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("c.book_id")))).
		Select(
			goqu.I("f.id"), goqu.I("f.loan_id"), goqu.I("f.amount"), goqu.I("f.paid"),
			goqu.I("f.paid_date"), goqu.I("f.created_at"),
			goqu.I("l.issue_date"), goqu.I("l.due_date"), goqu.I("l.return_date"),
			goqu.I("m.id"), goqu.I("m.name"), goqu.I("m.email"),
			goqu.I("b.title"), goqu.I("b.isbn"), goqu.I("c.barcode"),
		)
}

func buildFineListQuery(filter fine.Filter) (string, []interface{}, error) {
	ds := fineSummaryQuery()

	if filter.Paid != nil {
		ds = ds.Where(goqu.I("f.paid").Eq(*filter.Paid))
	}
	if filter.MemberID != nil {
		ds = ds.Where(goqu.I("l.member_id").Eq(filter.MemberID.String()))
	}

	return ds.Order(goqu.I("f.paid").Asc(), goqu.I("f.created_at").Desc()).ToSQL()
}

func (r *FineRepository) querySummaries(ctx context.Context, query string, args []interface{}) ([]*fine.Summary, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list fines", "error", err)
		return nil, fmt.Errorf("failed to list fines: %w", err)
	}
	defer rows.Close()

	summaries := make([]*fine.Summary, 0)
	for rows.Next() {
		var s fine.Summary
		err := rows.Scan(
			&s.ID, &s.LoanID, &s.Amount, &s.Paid, &s.PaidDate, &s.CreatedAt,
			&s.IssueDate, &s.DueDate, &s.ReturnDate,
			&s.MemberID, &s.MemberName, &s.MemberEmail,
			&s.BookTitle, &s.ISBN, &s.Barcode,
		)
		if err != nil {
			r.logger.Error("Failed to scan fine", "error", err)
			return nil, fmt.Errorf("failed to scan fine: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over fines: %w", err)
	}
	return summaries, nil
}
