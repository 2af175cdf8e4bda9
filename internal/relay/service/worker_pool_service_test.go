package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProjectionService mocks the ProjectionService interface
type MockProjectionService struct {
	mock.Mock
}

func (m *MockProjectionService) Project(ctx context.Context, event *shared.CirculationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolProjectionService_Project(t *testing.T) {
	event := shared.NewEvent(shared.EventFinePaid, uuid.New(), time.Now())
	event.CorrelationID = "corr1"

	tests := []struct {
		name          string
		result        error
		expectedError string
	}{
		{name: "successful projection"},
		{name: "projection error", result: errors.New("projection error"), expectedError: "projection error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockProjectionService{}
			workerPoolService, err := NewWorkerPoolProjectionService(mockBaseService, WorkerPoolConfig{Size: 2}, testLogger())
			require.NoError(t, err)
			defer workerPoolService.Shutdown()

			mockBaseService.On("Project", mock.Anything, mock.MatchedBy(func(e *shared.CirculationEvent) bool {
				return e.EventID == event.EventID
			})).Return(tt.result).Once()

			err = workerPoolService.Project(context.Background(), event)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProjectionService_Concurrency(t *testing.T) {
	mockBaseService := &MockProjectionService{}
	workerPoolService, err := NewWorkerPoolProjectionService(mockBaseService, WorkerPoolConfig{Size: 5}, testLogger())
	require.NoError(t, err)
	defer workerPoolService.Shutdown()

	var counter int64
	mockBaseService.On("Project", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&counter, 1)
	}).Return(nil)

	numEvents := 10
	var wg sync.WaitGroup
	wg.Add(numEvents)
	for i := 0; i < numEvents; i++ {
		go func() {
			defer wg.Done()
			event := shared.NewEvent(shared.EventLoanIssued, uuid.New(), time.Now())
			assert.NoError(t, workerPoolService.Project(context.Background(), event))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(numEvents), atomic.LoadInt64(&counter))
	assert.Equal(t, 5, workerPoolService.Capacity())
}

func TestWorkerPoolProjectionService_ContextCancelled(t *testing.T) {
	mockBaseService := &MockProjectionService{}
	workerPoolService, err := NewWorkerPoolProjectionService(mockBaseService, WorkerPoolConfig{Size: 1}, testLogger())
	require.NoError(t, err)
	defer workerPoolService.Shutdown()

	release := make(chan struct{})
	mockBaseService.On("Project", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = workerPoolService.Project(ctx, shared.NewEvent(shared.EventLoanIssued, uuid.New(), time.Now()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
