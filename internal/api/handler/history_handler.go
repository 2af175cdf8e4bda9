package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/service"
)

// HistoryHandler serves member and loan timelines
type HistoryHandler struct {
	historyService service.HistoryService
	logger         *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(logger *slog.Logger, historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		logger:         logger,
	}
}

// GetByMemberID retrieves a paginated member timeline, newest first
func (h *HistoryHandler) GetByMemberID(c *gin.Context) {
	memberID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get member history", err)
		return
	}
	if err := ensureOwner(c, memberID, "view another member's history"); err != nil {
		RespondError(c, h.logger, "get member history", err)
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.historyService.MemberTimeline(
		c.Request.Context(),
		memberID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		RespondError(c, h.logger, "get member history", err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

// GetByLoanID returns every event recorded against a loan
func (h *HistoryHandler) GetByLoanID(c *gin.Context) {
	loanID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get loan history", err)
		return
	}

	entries, err := h.historyService.LoanTimeline(c.Request.Context(), loanID)
	if err != nil {
		RespondError(c, h.logger, "get loan history", err)
		return
	}
	RespondOK(c, entries)
}
