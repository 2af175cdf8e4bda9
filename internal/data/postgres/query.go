// Package postgres provides PostgreSQL implementations of the circulation
// repositories. Every repository runs against the pool by default and against
// a transaction after WithTx, so a unit of work can span several of them.
package postgres

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

// dialect builds the dynamic listing queries; fixed statements stay as plain SQL.
var dialect = goqu.Dialect("postgres")

// Constraint names from migrations/postgres.
const (
	constraintLoanIdempotencyKey = "loans_idempotency_key_key"
	constraintOpenLoanPerCopy    = "uq_loans_open_copy"
	constraintFinePerLoan        = "fines_loan_id_key"
	constraintPendingReservation = "uq_reservations_pending"
)
