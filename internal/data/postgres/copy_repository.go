package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/platform/persistence"
)

const copyColumns = `id, book_id, barcode, status, updated_at`

// CopyRepository implements the bookcopy.Repository interface for PostgreSQL
type CopyRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCopyRepository creates a copy repository bound to the pool.
func NewCopyRepository(logger *slog.Logger, db *persistence.PostgresDB) bookcopy.Repository {
	return &CopyRepository{querier: db.Pool(), logger: logger}
}

// WithTx returns a repository that runs every statement on tx.
func (r *CopyRepository) WithTx(tx pgx.Tx) bookcopy.Repository {
	return &CopyRepository{querier: tx, logger: r.logger}
}

// GetByID retrieves a copy by its ID
func (r *CopyRepository) GetByID(ctx context.Context, id uuid.UUID) (*bookcopy.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM book_copies WHERE id = $1`
	return r.getOne(ctx, query, id, "get")
}

// LockForUpdate reads the copy with a row lock held until the transaction ends.
func (r *CopyRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*bookcopy.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM book_copies WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id, "lock")
}

func (r *CopyRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*bookcopy.Copy, error) {
	var c bookcopy.Copy
	err := r.querier.QueryRow(ctx, query, id).Scan(&c.ID, &c.BookID, &c.Barcode, &c.Status, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookcopy.ErrCopyNotFound{CopyID: id}
		}
		r.logger.Error("Failed to "+op+" book copy", "copy_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s book copy: %w", op, err)
	}
	return &c, nil
}

// UpdateStatus persists the copy's status.
func (r *CopyRepository) UpdateStatus(ctx context.Context, c *bookcopy.Copy) error {
	query := `UPDATE book_copies SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.querier.Exec(ctx, query, c.Status, c.UpdatedAt, c.ID)
	if err != nil {
		r.logger.Error("Failed to update book copy status",
			"copy_id", c.ID.String(),
			"status", string(c.Status),
			"error", err,
		)
		return fmt.Errorf("failed to update book copy status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bookcopy.ErrCopyNotFound{CopyID: c.ID}
	}
	return nil
}

// Delete removes the copy.
func (r *CopyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM book_copies WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete book copy", "copy_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete book copy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bookcopy.ErrCopyNotFound{CopyID: id}
	}
	return nil
}

// ListAvailableByBook returns the copies of a book that are on the shelf.
func (r *CopyRepository) ListAvailableByBook(ctx context.Context, bookID uuid.UUID) ([]*bookcopy.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM book_copies WHERE book_id = $1 AND status = $2 ORDER BY barcode`

	rows, err := r.querier.Query(ctx, query, bookID, bookcopy.StatusAvailable)
	if err != nil {
		r.logger.Error("Failed to list available copies", "book_id", bookID.String(), "error", err)
		return nil, fmt.Errorf("failed to list available copies: %w", err)
	}
	defer rows.Close()

	copies := make([]*bookcopy.Copy, 0)
	for rows.Next() {
		var c bookcopy.Copy
		if err := rows.Scan(&c.ID, &c.BookID, &c.Barcode, &c.Status, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book copy: %w", err)
		}
		copies = append(copies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over book copies: %w", err)
	}
	return copies, nil
}
