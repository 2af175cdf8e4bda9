package service

import (
	"context"

	"github.com/library-circulation/internal/domain/shared"
)

// ProjectionService folds a circulation event into a read model.
type ProjectionService interface {
	Project(ctx context.Context, event *shared.CirculationEvent) error
}
