package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fineCols = []string{"id", "loan_id", "amount", "paid", "paid_date", "created_at"}

func TestFineRepository_Create(t *testing.T) {
	ctx := context.Background()
	f, err := fine.New(uuid.New(), decimal.NewFromInt(60), time.Now())
	require.NoError(t, err)

	t.Run("Inserted", func(t *testing.T) {
		mock := newMock(t)
		repo := &FineRepository{querier: mock, logger: discardLogger()}

		mock.ExpectExec("INSERT INTO fines").
			WithArgs(f.ID, f.LoanID, f.Amount, false, f.PaidDate, f.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, f))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SecondFineForLoan", func(t *testing.T) {
		mock := newMock(t)
		repo := &FineRepository{querier: mock, logger: discardLogger()}

		mock.ExpectExec("INSERT INTO fines").
			WithArgs(anyArgs(6)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraintFinePerLoan})

		err := repo.Create(ctx, f)
		var dup fine.ErrDuplicateFine
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, f.LoanID, dup.LoanID)
	})
}

func TestFineRepository_GetByLoanID(t *testing.T) {
	ctx := context.Background()
	loanID := uuid.New()

	mock := newMock(t)
	repo := &FineRepository{querier: mock, logger: discardLogger()}

	mock.ExpectQuery("FROM fines WHERE loan_id").
		WithArgs(loanID).
		WillReturnRows(pgxmock.NewRows(fineCols))

	f, err := repo.GetByLoanID(ctx, loanID)
	require.NoError(t, err)
	assert.Nil(t, f)

	paidOn := shared.DateOf(time.Now())
	mock.ExpectQuery("FROM fines WHERE loan_id").
		WithArgs(loanID).
		WillReturnRows(pgxmock.NewRows(fineCols).
			AddRow(uuid.New(), loanID, decimal.RequireFromString("60.00"), true, &paidOn, time.Now()))

	f, err = repo.GetByLoanID(ctx, loanID)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.Paid)
	assert.Equal(t, "60", f.Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFineRepository_LockForUpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := &FineRepository{querier: mock, logger: discardLogger()}

	id := uuid.New()
	mock.ExpectQuery("FROM fines WHERE id = \\$1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(fineCols))

	_, err := repo.LockForUpdate(context.Background(), id)
	var notFound fine.ErrFineNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, id, notFound.FineID)
}

func TestFineRepository_MarkPaid(t *testing.T) {
	mock := newMock(t)
	repo := &FineRepository{querier: mock, logger: discardLogger()}

	id := uuid.New()
	today := shared.DateOf(time.Now())
	mock.ExpectExec("UPDATE fines SET paid = TRUE").
		WithArgs(today, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkPaid(context.Background(), id, today))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFineRepository_TotalUnpaidByMember(t *testing.T) {
	mock := newMock(t)
	repo := &FineRepository{querier: mock, logger: discardLogger()}

	memberID := uuid.New()
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(f.amount\\), 0\\)").
		WithArgs(memberID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("40.50")))

	total, err := repo.TotalUnpaidByMember(context.Background(), memberID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("40.5")))
}

func TestFineRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := &FineRepository{querier: mock, logger: discardLogger()}

	today := shared.DateOf(time.Now())
	cols := []string{
		"id", "loan_id", "amount", "paid", "paid_date", "created_at",
		"issue_date", "due_date", "return_date",
		"member_id", "name", "email", "title", "isbn", "barcode",
	}
	mock.ExpectQuery(`FROM "fines" AS "f"`).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			uuid.New(), uuid.New(), decimal.NewFromInt(30), false, (*time.Time)(nil), time.Now(),
			today.AddDate(0, 0, -17), today.AddDate(0, 0, -3), &today,
			uuid.New(), "Ada", "ada@example.com", "Dune", "9780441013593", "BC-0001",
		))

	unpaid := false
	summaries, err := repo.List(context.Background(), fine.Filter{Paid: &unpaid})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Ada", summaries[0].MemberName)
	assert.True(t, fine.TotalUnpaid(summaries).Equal(decimal.NewFromInt(30)))
}

func TestBuildFineListQuery(t *testing.T) {
	memberID := uuid.New()
	paid := false

	query, args, err := buildFineListQuery(fine.Filter{Paid: &paid, MemberID: &memberID})
	require.NoError(t, err)
	assert.Contains(t, query, `INNER JOIN "loans" AS "l"`)
	assert.Contains(t, query, `"f"."paid"`)
	assert.Contains(t, query, `"l"."member_id" = $`)
	assert.Contains(t, query, `ORDER BY "f"."paid" ASC, "f"."created_at" DESC`)
	assert.Contains(t, args, memberID.String())
}
