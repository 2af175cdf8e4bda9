package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/library-circulation/internal/api/middleware"
	"github.com/library-circulation/internal/circulation"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/history"
	"github.com/library-circulation/internal/domain/identity"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Issue(ctx context.Context, cmd circulation.IssueCommand) (*circulation.IssueResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.IssueResult), args.Error(1)
}

func (m *MockLoanService) Return(ctx context.Context, loanID uuid.UUID) (*circulation.ReturnResult, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.ReturnResult), args.Error(1)
}

func (m *MockLoanService) List(ctx context.Context, filter loan.Filter) ([]*loan.Summary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*loan.Summary), args.Error(1)
}

func (m *MockLoanService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*loan.Summary, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*loan.Summary), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, loanID uuid.UUID) (*circulation.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.LoanDetail), args.Error(1)
}

type MockFineService struct {
	mock.Mock
}

func (m *MockFineService) Assess(ctx context.Context, loanID uuid.UUID) (*circulation.AssessResult, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.AssessResult), args.Error(1)
}

func (m *MockFineService) Pay(ctx context.Context, fineID uuid.UUID) (*circulation.PayResult, error) {
	args := m.Called(ctx, fineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.PayResult), args.Error(1)
}

func (m *MockFineService) TotalUnpaid(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFineService) List(ctx context.Context, filter fine.Filter) ([]*fine.Summary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fine.Summary), args.Error(1)
}

func (m *MockFineService) Get(ctx context.Context, fineID uuid.UUID) (*fine.Summary, error) {
	args := m.Called(ctx, fineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fine.Summary), args.Error(1)
}

func (m *MockFineService) ListForMember(ctx context.Context, memberID uuid.UUID) (*circulation.MemberFines, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.MemberFines), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Create(ctx context.Context, cmd circulation.ReserveCommand) (*reservation.Reservation, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) Complete(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*reservation.Summary, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Summary), args.Error(1)
}

func (m *MockReservationService) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Summary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Summary), args.Error(1)
}

func (m *MockReservationService) Get(ctx context.Context, id uuid.UUID) (*reservation.Summary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Summary), args.Error(1)
}

type MockCopyService struct {
	mock.Mock
}

func (m *MockCopyService) ChangeStatus(ctx context.Context, cmd circulation.ChangeCopyStatusCommand) (*bookcopy.Copy, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bookcopy.Copy), args.Error(1)
}

func (m *MockCopyService) Delete(ctx context.Context, copyID uuid.UUID) error {
	args := m.Called(ctx, copyID)
	return args.Error(0)
}

func (m *MockCopyService) Get(ctx context.Context, copyID uuid.UUID) (*bookcopy.Copy, error) {
	args := m.Called(ctx, copyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bookcopy.Copy), args.Error(1)
}

func (m *MockCopyService) ListAvailableForBook(ctx context.Context, bookID uuid.UUID) (*circulation.AvailableCopies, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*circulation.AvailableCopies), args.Error(1)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) MemberTimeline(ctx context.Context, memberID uuid.UUID, page, perPage int) ([]*history.Entry, int64, error) {
	args := m.Called(ctx, memberID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*history.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockHistoryService) LoanTimeline(ctx context.Context, loanID uuid.UUID) ([]*history.Entry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter returns a router that authenticates every request as caller,
// or not at all when caller is nil.
func setupTestRouter(caller *identity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.IdentityKey, *caller)
			c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), *caller))
		})
	}
	return r
}

func librarian() *identity.Identity {
	return &identity.Identity{MemberID: uuid.New(), Role: identity.RoleLibrarian}
}

func member(id uuid.UUID) *identity.Identity {
	return &identity.Identity{MemberID: id, Role: identity.RoleMember}
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope and then its data field into dst.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) Response {
	t.Helper()
	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	if dst != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, dst))
	}
	return envelope.Response
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *ErrorInfo {
	t.Helper()
	var response Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	return response.Error
}

func serveWithHeader(router *gin.Engine, method, path, body, header, value string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, value)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func rawData(t *testing.T, rr *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope.Data
}
