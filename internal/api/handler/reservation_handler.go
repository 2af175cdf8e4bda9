package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/service"
	"github.com/library-circulation/internal/domain/reservation"
)

// ReservationHandler handles HTTP requests for reservations
type ReservationHandler struct {
	reservationService service.ReservationService
	logger             *slog.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(logger *slog.Logger, reservationService service.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

// Create queues a member for a book. Members may only reserve for themselves.
func (h *ReservationHandler) Create(c *gin.Context) {
	var req ReserveRequest
	if err := decodeStrict(c, &req); err != nil {
		h.logger.Warn("Invalid reservation request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		RespondError(c, h.logger, "create reservation", err)
		return
	}
	if err := ensureOwner(c, cmd.MemberID, "reserve for another member"); err != nil {
		RespondError(c, h.logger, "create reservation", err)
		return
	}

	created, err := h.reservationService.Create(c.Request.Context(), cmd)
	if err != nil {
		RespondError(c, h.logger, "create reservation", err)
		return
	}
	RespondCreated(c, mapReservationToResponse(created))
}

// Cancel withdraws a reservation
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "cancel reservation", err)
		return
	}

	cancelled, err := h.reservationService.Cancel(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, "cancel reservation", err)
		return
	}
	RespondOK(c, mapReservationToResponse(cancelled))
}

// Complete marks a reservation fulfilled
func (h *ReservationHandler) Complete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "complete reservation", err)
		return
	}

	completed, err := h.reservationService.Complete(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, "complete reservation", err)
		return
	}
	RespondOK(c, mapReservationToResponse(completed))
}

// List returns reservations filtered by status, member_id and book_id
func (h *ReservationHandler) List(c *gin.Context) {
	var filter reservation.Filter
	var err error

	if raw := c.Query("status"); raw != "" {
		status, err := reservation.ParseStatus(raw)
		if err != nil {
			RespondError(c, h.logger, "list reservations", err)
			return
		}
		filter.Status = &status
	}
	if filter.MemberID, err = queryID(c, "member_id"); err != nil {
		RespondError(c, h.logger, "list reservations", err)
		return
	}
	if filter.BookID, err = queryID(c, "book_id"); err != nil {
		RespondError(c, h.logger, "list reservations", err)
		return
	}
	if filter.MemberID, err = scopeMember(c, filter.MemberID); err != nil {
		RespondError(c, h.logger, "list reservations", err)
		return
	}

	reservations, err := h.reservationService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, "list reservations", err)
		return
	}
	RespondOK(c, mapReservationSummaries(reservations))
}

// GetByID returns one reservation
func (h *ReservationHandler) GetByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "get reservation", err)
		return
	}

	summary, err := h.reservationService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, "get reservation", err)
		return
	}
	if err := ensureOwner(c, summary.MemberID, "view another member's reservation"); err != nil {
		RespondError(c, h.logger, "get reservation", err)
		return
	}
	RespondOK(c, mapReservationSummaryToResponse(summary))
}

// ListForBook returns a book's pending queue, oldest first
func (h *ReservationHandler) ListForBook(c *gin.Context) {
	bookID, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, "list book reservations", err)
		return
	}

	queue, err := h.reservationService.ListPendingForBook(c.Request.Context(), bookID)
	if err != nil {
		RespondError(c, h.logger, "list book reservations", err)
		return
	}
	RespondOK(c, mapReservationSummaries(queue))
}
