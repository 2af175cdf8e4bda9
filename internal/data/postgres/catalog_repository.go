package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/catalog"
	"github.com/library-circulation/internal/platform/persistence"
)

// CatalogRepository reads members and books.
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCatalogRepository creates a catalog repository bound to the pool.
func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{querier: db.Pool(), logger: logger}
}

// WithTx returns a repository that reads through tx.
func (r *CatalogRepository) WithTx(tx pgx.Tx) catalog.Repository {
	return &CatalogRepository{querier: tx, logger: r.logger}
}

// GetMember retrieves a member by ID.
func (r *CatalogRepository) GetMember(ctx context.Context, id uuid.UUID) (*catalog.Member, error) {
	query := `SELECT id, name, email, role FROM members WHERE id = $1`

	var m catalog.Member
	if err := r.querier.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Email, &m.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMemberNotFound{MemberID: id}
		}
		r.logger.Error("Failed to get member", "member_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// GetBook retrieves a book by ID.
func (r *CatalogRepository) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	query := `SELECT id, isbn, title FROM books WHERE id = $1`

	var b catalog.Book
	if err := r.querier.QueryRow(ctx, query, id).Scan(&b.ID, &b.ISBN, &b.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrBookNotFound{BookID: id}
		}
		r.logger.Error("Failed to get book", "book_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}
