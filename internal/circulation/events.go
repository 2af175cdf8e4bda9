package circulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/identity"
	"github.com/library-circulation/internal/domain/outbox"
	"github.com/library-circulation/internal/domain/shared"
)

// record stamps event with the request's correlation id and caller, then writes
// it to the outbox of the current unit of work.
func record(ctx context.Context, uow UnitOfWork, event *shared.CirculationEvent) error {
	event.CorrelationID = shared.CorrelationIDFrom(ctx)
	if caller, ok := identity.FromContext(ctx); ok {
		event.ActorID = caller.MemberID.String()
	}

	message, err := outbox.NewMessage(event)
	if err != nil {
		return err
	}
	if err := uow.Outbox().Create(ctx, message); err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}
	return nil
}

// authorize fails when the caller in ctx may not act for ownerID. Calls without
// a caller come from trusted internal code.
func authorize(ctx context.Context, ownerID uuid.UUID, action string) error {
	caller, ok := identity.FromContext(ctx)
	if !ok || caller.CanActFor(ownerID) {
		return nil
	}
	return shared.ErrForbidden{Action: action}
}
