package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/service"
	"github.com/library-circulation/internal/circulation"
)

// CopyHandler handles HTTP requests for physical copies
type CopyHandler struct {
	copyService service.CopyService
	logger      *slog.Logger
}

// NewCopyHandler creates a new copy handler
func NewCopyHandler(logger *slog.Logger, copyService service.CopyService) *CopyHandler {
	return &CopyHandler{
		copyService: copyService,
		logger:      logger,
	}
}

// GetByID returns one copy
func (h *CopyHandler) GetByID(c *gin.Context) {
	copyID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get copy", err)
		return
	}

	bookCopy, err := h.copyService.Get(c.Request.Context(), copyID)
	if err != nil {
		RespondError(c, h.logger, "get copy", err)
		return
	}
	RespondOK(c, mapCopyToResponse(bookCopy))
}

// ChangeStatus marks a copy AVAILABLE, LOST or DAMAGED
func (h *CopyHandler) ChangeStatus(c *gin.Context) {
	copyID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "change copy status", err)
		return
	}

	var req ChangeCopyStatusRequest
	if err := decodeStrict(c, &req); err != nil {
		h.logger.Warn("Invalid copy status request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.copyService.ChangeStatus(c.Request.Context(), circulation.ChangeCopyStatusCommand{
		CopyID: copyID,
		Status: req.Status,
	})
	if err != nil {
		RespondError(c, h.logger, "change copy status", err)
		return
	}
	RespondOK(c, mapCopyToResponse(updated))
}

// Delete removes a copy that is not on loan
func (h *CopyHandler) Delete(c *gin.Context) {
	copyID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "delete copy", err)
		return
	}

	if err := h.copyService.Delete(c.Request.Context(), copyID); err != nil {
		RespondError(c, h.logger, "delete copy", err)
		return
	}
	RespondOK(c, gin.H{"id": copyID.String(), "deleted": true})
}

// ListAvailable returns the shelf copies of the book in the path
func (h *CopyHandler) ListAvailable(c *gin.Context) {
	bookID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "list available copies", err)
		return
	}

	available, err := h.copyService.ListAvailableForBook(c.Request.Context(), bookID)
	if err != nil {
		RespondError(c, h.logger, "list available copies", err)
		return
	}

	copies := make([]CopyResponse, 0, len(available.Copies))
	for _, bookCopy := range available.Copies {
		copies = append(copies, mapCopyToResponse(bookCopy))
	}
	RespondOK(c, AvailableCopiesResponse{
		BookID: available.BookID.String(),
		Count:  available.Count,
		Copies: copies,
	})
}
