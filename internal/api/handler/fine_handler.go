package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/service"
	"github.com/library-circulation/internal/domain/fine"
)

// FineHandler handles HTTP requests for fines
type FineHandler struct {
	fineService service.FineService
	logger      *slog.Logger
}

// NewFineHandler creates a new fine handler
func NewFineHandler(logger *slog.Logger, fineService service.FineService) *FineHandler {
	return &FineHandler{
		fineService: fineService,
		logger:      logger,
	}
}

// Calculate assesses an open overdue loan. 201 when a fine was created, 200
// when the loan is not overdue yet.
func (h *FineHandler) Calculate(c *gin.Context) {
	loanID, err := pathID(c, "loanId")
	if err != nil {
		RespondError(c, h.logger, "calculate fine", err)
		return
	}

	result, err := h.fineService.Assess(c.Request.Context(), loanID)
	if err != nil {
		RespondError(c, h.logger, "calculate fine", err)
		return
	}

	response := AssessResponse{
		DaysOverdue: result.DaysOverdue,
		Amount:      result.Amount.StringFixed(2),
		Fine:        mapOptionalFine(result.Fine),
	}
	if result.Fine == nil {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// Pay settles a fine
func (h *FineHandler) Pay(c *gin.Context) {
	fineID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "pay fine", err)
		return
	}

	result, err := h.fineService.Pay(c.Request.Context(), fineID)
	if err != nil {
		RespondError(c, h.logger, "pay fine", err)
		return
	}

	RespondOK(c, PayResponse{
		Fine:        mapFineToResponse(result.Fine),
		AlreadyPaid: result.AlreadyPaid,
	})
}

// List returns fines filtered by paid and member_id, unpaid first
func (h *FineHandler) List(c *gin.Context) {
	var filter fine.Filter
	var err error

	if filter.Paid, err = queryBool(c, "paid"); err != nil {
		RespondError(c, h.logger, "list fines", err)
		return
	}
	if filter.MemberID, err = queryID(c, "member_id"); err != nil {
		RespondError(c, h.logger, "list fines", err)
		return
	}

	fines, err := h.fineService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, "list fines", err)
		return
	}
	RespondOK(c, mapFineSummaries(fines))
}

// GetByID returns one fine with its loan details
func (h *FineHandler) GetByID(c *gin.Context) {
	fineID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get fine", err)
		return
	}

	summary, err := h.fineService.Get(c.Request.Context(), fineID)
	if err != nil {
		RespondError(c, h.logger, "get fine", err)
		return
	}
	if err := ensureOwner(c, summary.MemberID, "view another member's fine"); err != nil {
		RespondError(c, h.logger, "get fine", err)
		return
	}
	RespondOK(c, mapFineSummaryToResponse(summary))
}

// ListForMember returns a member's fines and unpaid total
func (h *FineHandler) ListForMember(c *gin.Context) {
	memberID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "list member fines", err)
		return
	}
	if err := ensureOwner(c, memberID, "view another member's fines"); err != nil {
		RespondError(c, h.logger, "list member fines", err)
		return
	}

	statement, err := h.fineService.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		RespondError(c, h.logger, "list member fines", err)
		return
	}
	RespondOK(c, MemberFinesResponse{
		Fines:       mapFineSummaries(statement.Fines),
		TotalUnpaid: statement.TotalUnpaid.StringFixed(2),
	})
}
