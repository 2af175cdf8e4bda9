// Package circulation runs the lending workflow: issuing and returning copies,
// assessing and settling fines, and reconciling reservations. Every mutation
// executes inside one UnitOfWork so its effects commit or roll back together.
package circulation

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/catalog"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/outbox"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/platform/persistence"
)

// Repositories groups the stores the workflow touches. Outside a unit of work
// they read through the pool.
type Repositories struct {
	Copies       bookcopy.Repository
	Loans        loan.Repository
	Fines        fine.Repository
	Reservations reservation.Repository
	Catalog      catalog.Repository
	Outbox       outbox.Repository
}

func (r Repositories) bind(tx pgx.Tx) Repositories {
	return Repositories{
		Copies:       r.Copies.WithTx(tx),
		Loans:        r.Loans.WithTx(tx),
		Fines:        r.Fines.WithTx(tx),
		Reservations: r.Reservations.WithTx(tx),
		Catalog:      r.Catalog.WithTx(tx),
		Outbox:       r.Outbox.WithTx(tx),
	}
}

// UnitOfWork exposes the repositories bound to a single transaction.
type UnitOfWork interface {
	Copies() bookcopy.Repository
	Loans() loan.Repository
	Fines() fine.Repository
	Reservations() reservation.Repository
	Catalog() catalog.Repository
	Outbox() outbox.Repository
}

// Committer runs fn inside a unit of work, committing when fn returns nil and
// rolling back on error or panic.
type Committer interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// PostgresCommitter opens one pgx transaction per unit of work.
type PostgresCommitter struct {
	db    persistence.TxBeginner
	repos Repositories
}

func NewPostgresCommitter(db persistence.TxBeginner, repos Repositories) *PostgresCommitter {
	return &PostgresCommitter{db: db, repos: repos}
}

func (c *PostgresCommitter) Do(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return persistence.ExecuteTx(ctx, c.db, func(tx pgx.Tx) error {
		return fn(txUnit{repos: c.repos.bind(tx)})
	})
}

type txUnit struct {
	repos Repositories
}

func (u txUnit) Copies() bookcopy.Repository          { return u.repos.Copies }
func (u txUnit) Loans() loan.Repository               { return u.repos.Loans }
func (u txUnit) Fines() fine.Repository               { return u.repos.Fines }
func (u txUnit) Reservations() reservation.Repository { return u.repos.Reservations }
func (u txUnit) Catalog() catalog.Repository          { return u.repos.Catalog }
func (u txUnit) Outbox() outbox.Repository            { return u.repos.Outbox }
