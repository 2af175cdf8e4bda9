package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/platform/persistence"
)

const reservationColumns = `id, member_id, book_id, reserved_at, status`

// ReservationRepository implements the reservation.Repository interface for PostgreSQL
type ReservationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewReservationRepository creates a reservation repository bound to the pool.
func NewReservationRepository(logger *slog.Logger, db *persistence.PostgresDB) reservation.Repository {
	return &ReservationRepository{querier: db.Pool(), logger: logger}
}

// WithTx returns a repository that runs every statement on tx.
func (r *ReservationRepository) WithTx(tx pgx.Tx) reservation.Repository {
	return &ReservationRepository{querier: tx, logger: r.logger}
}

// Create inserts a pending reservation. The partial unique index on pending
// reservations is the backstop for concurrent duplicate requests.
func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query, res.ID, res.MemberID, res.BookID, res.ReservedAt, res.Status)
	if err != nil {
		if constraint, ok := persistence.IsUniqueViolation(err); ok && constraint == constraintPendingReservation {
			return reservation.ErrDuplicateReservation{MemberID: res.MemberID, BookID: res.BookID}
		}
		r.logger.Error("Failed to create reservation", "reservation_id", res.ID.String(), "error", err)
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// LockForUpdate reads the reservation and locks its row for the rest of the transaction.
func (r *ReservationRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*reservation.Reservation, error) {
	res, err := scanReservation(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound{ReservationID: id}
		}
		r.logger.Error("Failed to get reservation", "reservation_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var res reservation.Reservation
	if err := row.Scan(&res.ID, &res.MemberID, &res.BookID, &res.ReservedAt, &res.Status); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatus persists a status change.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status reservation.Status) error {
	result, err := r.querier.Exec(ctx, `UPDATE reservations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		r.logger.Error("Failed to update reservation status",
			"reservation_id", id.String(),
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return reservation.ErrReservationNotFound{ReservationID: id}
	}
	return nil
}

// FindPending returns the member's pending reservation for the book, or nil.
// The row is locked so a concurrent issuance cannot complete it twice.
func (r *ReservationRepository) FindPending(ctx context.Context, memberID, bookID uuid.UUID) (*reservation.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE member_id = $1 AND book_id = $2 AND status = $3
		FOR UPDATE
	`

	res, err := scanReservation(r.querier.QueryRow(ctx, query, memberID, bookID, reservation.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find pending reservation",
			"member_id", memberID.String(),
			"book_id", bookID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to find pending reservation: %w", err)
	}
	return res, nil
}

// ListPendingForBook returns the book's queue, oldest request first.
func (r *ReservationRepository) ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*reservation.Summary, error) {
	query, args, err := reservationSummaryQuery().
		Where(
			goqu.I("r.book_id").Eq(bookID.String()),
			goqu.I("r.status").Eq(string(reservation.StatusPending)),
		).
		Order(goqu.I("r.reserved_at").Asc(), goqu.I("r.id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}
	return r.querySummaries(ctx, query, args)
}

// GetSummary fetches one reservation with member and book details.
func (r *ReservationRepository) GetSummary(ctx context.Context, id uuid.UUID) (*reservation.Summary, error) {
	query, args, err := reservationSummaryQuery().Where(goqu.I("r.id").Eq(id.String())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}

	summaries, err := r.querySummaries(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, reservation.ErrReservationNotFound{ReservationID: id}
	}
	return summaries[0], nil
}

// List returns reservations matching filter, newest first.
func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Summary, error) {
	query, args, err := buildReservationListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build reservation query: %w", err)
	}
	return r.querySummaries(ctx, query, args)
}

func reservationSummaryQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("reservations").As("r")).
		Prepared(true).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("r.member_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
		Select(
			goqu.I("r.id"), goqu.I("r.member_id"), goqu.I("r.book_id"), goqu.I("r.reserved_at"), goqu.I("r.status"),
			goqu.I("m.name"), goqu.I("m.email"), goqu.I("b.title"), goqu.I("b.isbn"),
		)
}

func buildReservationListQuery(filter reservation.Filter) (string, []interface{}, error) {
	ds := reservationSummaryQuery()

	if filter.Status != nil {
		ds = ds.Where(goqu.I("r.status").Eq(string(*filter.Status)))
	}
	if filter.MemberID != nil {
		ds = ds.Where(goqu.I("r.member_id").Eq(filter.MemberID.String()))
	}
	if filter.BookID != nil {
		ds = ds.Where(goqu.I("r.book_id").Eq(filter.BookID.String()))
	}

	return ds.Order(goqu.I("r.reserved_at").Desc()).ToSQL()
}

func (r *ReservationRepository) querySummaries(ctx context.Context, query string, args []interface{}) ([]*reservation.Summary, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reservations", "error", err)
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	summaries := make([]*reservation.Summary, 0)
	for rows.Next() {
		var s reservation.Summary
		err := rows.Scan(
			&s.ID, &s.MemberID, &s.BookID, &s.ReservedAt, &s.Status,
			&s.MemberName, &s.MemberEmail, &s.BookTitle, &s.ISBN,
		)
		if err != nil {
			r.logger.Error("Failed to scan reservation", "error", err)
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reservations: %w", err)
	}
	return summaries, nil
}
