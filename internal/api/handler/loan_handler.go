package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/service"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/shared"
)

// IdempotencyKeyHeader lets clients retry POST /issues safely
const IdempotencyKeyHeader = "Idempotency-Key"

// LoanHandler handles HTTP requests for issuing and returning copies
type LoanHandler struct {
	loanService service.LoanService
	logger      *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(logger *slog.Logger, loanService service.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// Issue lends a copy to a member. A replayed idempotency key answers 200 with
// the original loan instead of 201.
func (h *LoanHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := decodeStrict(c, &req); err != nil {
		h.logger.Warn("Invalid issue request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if headerKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); headerKey != "" {
		if req.IdempotencyKey != "" && strings.TrimSpace(req.IdempotencyKey) != headerKey {
			RespondError(c, h.logger, "issue copy",
				shared.NewValidationError("idempotency_key", "body and "+IdempotencyKeyHeader+" header disagree"))
			return
		}
		req.IdempotencyKey = headerKey
	}

	cmd, err := req.toCommand()
	if err != nil {
		RespondError(c, h.logger, "issue copy", err)
		return
	}

	result, err := h.loanService.Issue(c.Request.Context(), cmd)
	if err != nil {
		RespondError(c, h.logger, "issue copy", err)
		return
	}

	response := IssueResponse{
		Loan:     mapLoanToResponse(result.Loan),
		Replayed: result.Replayed,
	}
	if result.CompletedReservationID != nil {
		response.CompletedReservationID = result.CompletedReservationID.String()
	}

	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// Return closes a loan and reports lateness and any fine created
func (h *LoanHandler) Return(c *gin.Context) {
	loanID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "return copy", err)
		return
	}

	result, err := h.loanService.Return(c.Request.Context(), loanID)
	if err != nil {
		RespondError(c, h.logger, "return copy", err)
		return
	}

	RespondOK(c, ReturnResponse{
		Loan:        mapLoanToResponse(result.Loan),
		DaysOverdue: result.DaysOverdue,
		FineCreated: result.FineCreated,
		Fine:        mapOptionalFine(result.Fine),
	})
}

// List returns loans filtered by member_id, overdue and returned
func (h *LoanHandler) List(c *gin.Context) {
	var filter loan.Filter
	var err error

	if filter.MemberID, err = queryID(c, "member_id"); err != nil {
		RespondError(c, h.logger, "list loans", err)
		return
	}
	if filter.Returned, err = queryBool(c, "returned"); err != nil {
		RespondError(c, h.logger, "list loans", err)
		return
	}
	overdue, err := queryBool(c, "overdue")
	if err != nil {
		RespondError(c, h.logger, "list loans", err)
		return
	}
	filter.OverdueOnly = overdue != nil && *overdue

	if filter.MemberID, err = scopeMember(c, filter.MemberID); err != nil {
		RespondError(c, h.logger, "list loans", err)
		return
	}

	loans, err := h.loanService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, "list loans", err)
		return
	}
	RespondOK(c, mapLoanSummaries(loans))
}

// GetByID returns one loan with its fine
func (h *LoanHandler) GetByID(c *gin.Context) {
	loanID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get loan", err)
		return
	}

	detail, err := h.loanService.Get(c.Request.Context(), loanID)
	if err != nil {
		RespondError(c, h.logger, "get loan", err)
		return
	}
	if err := ensureOwner(c, detail.MemberID, "view another member's loan"); err != nil {
		RespondError(c, h.logger, "get loan", err)
		return
	}

	response := mapLoanSummaryToResponse(detail.Summary)
	response.Fine = mapOptionalFine(detail.Fine)
	RespondOK(c, response)
}

// ListForMember returns every loan of the member in the path
func (h *LoanHandler) ListForMember(c *gin.Context) {
	memberID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "list member loans", err)
		return
	}
	if err := ensureOwner(c, memberID, "view another member's loans"); err != nil {
		RespondError(c, h.logger, "list member loans", err)
		return
	}

	loans, err := h.loanService.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		RespondError(c, h.logger, "list member loans", err)
		return
	}
	RespondOK(c, mapLoanSummaries(loans))
}
