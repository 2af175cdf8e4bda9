package circulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/domain/shared"
)

// ReservationManager keeps the per-book reservation queues.
type ReservationManager struct {
	committer Committer
	repos     Repositories
	clock     shared.Clock
	logger    *slog.Logger
}

func NewReservationManager(logger *slog.Logger, committer Committer, repos Repositories, clock shared.Clock) *ReservationManager {
	return &ReservationManager{committer: committer, repos: repos, clock: clock, logger: logger}
}

// Create queues a member for a book. A member holds at most one pending
// reservation per book.
func (m *ReservationManager) Create(ctx context.Context, cmd ReserveCommand) (*reservation.Reservation, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}

	now := m.clock()
	var created *reservation.Reservation
	err := m.committer.Do(ctx, func(uow UnitOfWork) error {
		if _, err := uow.Catalog().GetMember(ctx, cmd.MemberID); err != nil {
			return err
		}
		if _, err := uow.Catalog().GetBook(ctx, cmd.BookID); err != nil {
			return err
		}

		existing, err := uow.Reservations().FindPending(ctx, cmd.MemberID, cmd.BookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return reservation.ErrDuplicateReservation{MemberID: cmd.MemberID, BookID: cmd.BookID}
		}

		created = reservation.New(cmd.MemberID, cmd.BookID, now)
		if err := uow.Reservations().Create(ctx, created); err != nil {
			return err
		}
		return record(ctx, uow, reservationEvent(shared.EventReservationCreated, created, now))
	})
	if err != nil {
		m.logger.Warn("Reservation rejected",
			"member_id", cmd.MemberID.String(),
			"book_id", cmd.BookID.String(),
			"error", err,
		)
		return nil, err
	}

	m.logger.Info("Reservation created", "reservation", created.String())
	return created, nil
}

// Cancel withdraws a reservation from any state. Cancelling twice is harmless.
func (m *ReservationManager) Cancel(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return m.transition(ctx, id, shared.EventReservationCancelled, func(r *reservation.Reservation) (bool, error) {
		if err := authorize(ctx, r.MemberID, "cancel another member's reservation"); err != nil {
			return false, err
		}
		return r.Cancel(), nil
	})
}

// Complete marks a reservation fulfilled outside the issuance flow.
func (m *ReservationManager) Complete(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return m.transition(ctx, id, shared.EventReservationCompleted, func(r *reservation.Reservation) (bool, error) {
		return r.Complete()
	})
}

func (m *ReservationManager) transition(
	ctx context.Context,
	id uuid.UUID,
	eventType shared.EventType,
	apply func(*reservation.Reservation) (bool, error),
) (*reservation.Reservation, error) {
	if err := validateID("reservation_id", id); err != nil {
		return nil, err
	}

	now := m.clock()
	var current *reservation.Reservation
	err := m.committer.Do(ctx, func(uow UnitOfWork) error {
		var err error
		current, err = uow.Reservations().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}

		changed, err := apply(current)
		if err != nil || !changed {
			return err
		}
		if err := uow.Reservations().UpdateStatus(ctx, current.ID, current.Status); err != nil {
			return err
		}
		return record(ctx, uow, reservationEvent(eventType, current, now))
	})
	if err != nil {
		m.logger.Warn("Reservation update rejected",
			"reservation_id", id.String(),
			"event", string(eventType),
			"error", err,
		)
		return nil, err
	}

	m.logger.Info("Reservation updated", "reservation", current.String())
	return current, nil
}

// ListPendingForBook returns a book's queue in fulfilment order.
func (m *ReservationManager) ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*reservation.Summary, error) {
	return m.repos.Reservations.ListPendingForBook(ctx, bookID)
}

// List returns reservations matching filter, newest first.
func (m *ReservationManager) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Summary, error) {
	return m.repos.Reservations.List(ctx, filter)
}

// Get returns one reservation with member and book details.
func (m *ReservationManager) Get(ctx context.Context, id uuid.UUID) (*reservation.Summary, error) {
	return m.repos.Reservations.GetSummary(ctx, id)
}

func reservationEvent(eventType shared.EventType, r *reservation.Reservation, at time.Time) *shared.CirculationEvent {
	event := shared.NewEvent(eventType, r.ID, at)
	event.ReservationID, event.MemberID, event.BookID = &r.ID, &r.MemberID, &r.BookID
	return event
}
