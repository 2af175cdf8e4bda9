package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/history"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByEventID(ctx context.Context, eventID string) (*history.Entry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*history.Entry, error) {
	args := m.Called(ctx, memberID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) CountByMemberID(ctx context.Context, memberID string) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHistoryRepository) GetByLoanID(ctx context.Context, loanID string) ([]*history.Entry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func returnedEvent() *shared.CirculationEvent {
	loanID, memberID := uuid.New(), uuid.New()
	event := shared.NewEvent(shared.EventLoanReturned, loanID, time.Date(2024, 3, 21, 9, 0, 0, 0, time.UTC))
	event.LoanID = &loanID
	event.MemberID = &memberID
	event.DaysOverdue = 6
	event.CorrelationID = "corr-42"
	return event
}

func TestHistoryProjector_Project(t *testing.T) {
	recordedAt := time.Date(2024, 3, 21, 9, 0, 5, 0, time.UTC)

	t.Run("StoresEntry", func(t *testing.T) {
		repo := new(MockHistoryRepository)
		projector := NewHistoryProjector(testLogger(), repo)
		projector.now = func() time.Time { return recordedAt }

		event := returnedEvent()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(e *history.Entry) bool {
			return e.EventID == event.EventID.String() &&
				e.Type == shared.EventLoanReturned &&
				e.LoanID == event.LoanID.String() &&
				e.MemberID == event.MemberID.String() &&
				e.DaysOverdue == 6 &&
				e.CorrelationID == "corr-42" &&
				e.RecordedAt.Equal(recordedAt)
		})).Return(nil).Once()

		require.NoError(t, projector.Project(context.Background(), event))
		repo.AssertExpectations(t)
	})

	t.Run("ReplayIsSuccess", func(t *testing.T) {
		repo := new(MockHistoryRepository)
		projector := NewHistoryProjector(testLogger(), repo)

		event := returnedEvent()
		repo.On("Create", mock.Anything, mock.Anything).
			Return(history.ErrDuplicateEntry{EventID: event.EventID.String()}).Once()

		assert.NoError(t, projector.Project(context.Background(), event))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		repo := new(MockHistoryRepository)
		projector := NewHistoryProjector(testLogger(), repo)

		storeErr := errors.New("no reachable servers")
		repo.On("Create", mock.Anything, mock.Anything).Return(storeErr).Once()

		err := projector.Project(context.Background(), returnedEvent())
		require.Error(t, err)
		assert.ErrorIs(t, err, storeErr)
	})
}
