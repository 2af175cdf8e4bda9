package handler

import (
	"time"

	"github.com/library-circulation/internal/circulation"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/domain/shared"
)

// IssueRequest represents a request to lend a copy
type IssueRequest struct {
	MemberID       string `json:"member_id"`
	CopyID         string `json:"copy_id"`
	DueDate        string `json:"due_date"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (r IssueRequest) toCommand() (circulation.IssueCommand, error) {
	p := newIDParser()
	cmd := circulation.IssueCommand{
		MemberID:       p.parse("member_id", r.MemberID),
		CopyID:         p.parse("copy_id", r.CopyID),
		DueDate:        r.DueDate,
		IdempotencyKey: r.IdempotencyKey,
	}
	return cmd, p.err()
}

// ReserveRequest represents a request to join a book's queue
type ReserveRequest struct {
	MemberID string `json:"member_id"`
	BookID   string `json:"book_id"`
}

func (r ReserveRequest) toCommand() (circulation.ReserveCommand, error) {
	p := newIDParser()
	cmd := circulation.ReserveCommand{
		MemberID: p.parse("member_id", r.MemberID),
		BookID:   p.parse("book_id", r.BookID),
	}
	return cmd, p.err()
}

// ChangeCopyStatusRequest represents an administrative status change
type ChangeCopyStatusRequest struct {
	Status string `json:"status"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	CopyID     string `json:"copy_id"`
	IssueDate  string `json:"issue_date"`
	DueDate    string `json:"due_date"`
	ReturnDate string `json:"return_date,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// LoanSummaryResponse is a loan row in listings
type LoanSummaryResponse struct {
	LoanResponse
	MemberName  string        `json:"member_name"`
	MemberEmail string        `json:"member_email"`
	BookID      string        `json:"book_id"`
	BookTitle   string        `json:"book_title"`
	ISBN        string        `json:"isbn"`
	Barcode     string        `json:"barcode"`
	CopyStatus  string        `json:"copy_status"`
	IsOverdue   bool          `json:"is_overdue"`
	Fine        *FineResponse `json:"fine,omitempty"`
}

// IssueResponse is returned by POST /issues
type IssueResponse struct {
	Loan                   LoanResponse `json:"loan"`
	Replayed               bool         `json:"replayed"`
	CompletedReservationID string       `json:"completed_reservation_id,omitempty"`
}

// ReturnResponse is returned by PUT /issues/:id/return
type ReturnResponse struct {
	Loan        LoanResponse  `json:"loan"`
	DaysOverdue int           `json:"days_overdue"`
	FineCreated bool          `json:"fine_created"`
	Fine        *FineResponse `json:"fine,omitempty"`
}

// FineResponse represents a fine in API responses
type FineResponse struct {
	ID        string `json:"id"`
	LoanID    string `json:"loan_id"`
	Amount    string `json:"amount"`
	Paid      bool   `json:"paid"`
	PaidDate  string `json:"paid_date,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FineSummaryResponse is a fine row in listings
type FineSummaryResponse struct {
	FineResponse
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
	ReturnDate  string `json:"return_date,omitempty"`
	MemberID    string `json:"member_id"`
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
	BookTitle   string `json:"book_title"`
	ISBN        string `json:"isbn"`
	Barcode     string `json:"barcode"`
}

// AssessResponse is returned by POST /fines/calculate/:loanId
type AssessResponse struct {
	DaysOverdue int           `json:"days_overdue"`
	Amount      string        `json:"amount"`
	Fine        *FineResponse `json:"fine,omitempty"`
}

// PayResponse is returned by PUT /fines/:id/pay
type PayResponse struct {
	Fine        FineResponse `json:"fine"`
	AlreadyPaid bool         `json:"already_paid"`
}

// MemberFinesResponse is a member's fine statement
type MemberFinesResponse struct {
	Fines       []FineSummaryResponse `json:"fines"`
	TotalUnpaid string                `json:"total_unpaid"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	BookID     string `json:"book_id"`
	ReservedAt string `json:"reserved_at"`
	Status     string `json:"status"`
}

// ReservationSummaryResponse is a reservation row in listings
type ReservationSummaryResponse struct {
	ReservationResponse
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
	BookTitle   string `json:"book_title"`
	ISBN        string `json:"isbn"`
}

// CopyResponse represents a book copy in API responses
type CopyResponse struct {
	ID        string `json:"id"`
	BookID    string `json:"book_id"`
	Barcode   string `json:"barcode"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// AvailableCopiesResponse lists the shelf copies of a book
type AvailableCopiesResponse struct {
	BookID string         `json:"book_id"`
	Count  int            `json:"count"`
	Copies []CopyResponse `json:"copies"`
}

func formatDate(t time.Time) string {
	return t.Format(shared.DateLayout)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func mapLoanToResponse(l *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:         l.ID.String(),
		MemberID:   l.MemberID.String(),
		CopyID:     l.CopyID.String(),
		IssueDate:  formatDate(l.IssueDate),
		DueDate:    formatDate(l.DueDate),
		ReturnDate: formatOptionalDate(l.ReturnDate),
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
}

func mapLoanSummaryToResponse(s *loan.Summary) LoanSummaryResponse {
	return LoanSummaryResponse{
		LoanResponse: mapLoanToResponse(&s.Loan),
		MemberName:   s.MemberName,
		MemberEmail:  s.MemberEmail,
		BookID:       s.BookID.String(),
		BookTitle:    s.BookTitle,
		ISBN:         s.ISBN,
		Barcode:      s.Barcode,
		CopyStatus:   s.CopyStatus,
		IsOverdue:    s.IsOverdue,
	}
}

func mapLoanSummaries(summaries []*loan.Summary) []LoanSummaryResponse {
	loans := make([]LoanSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		loans = append(loans, mapLoanSummaryToResponse(s))
	}
	return loans
}

func mapFineToResponse(f *fine.Fine) FineResponse {
	return FineResponse{
		ID:        f.ID.String(),
		LoanID:    f.LoanID.String(),
		Amount:    f.Amount.StringFixed(2),
		Paid:      f.Paid,
		PaidDate:  formatOptionalDate(f.PaidDate),
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}

func mapOptionalFine(f *fine.Fine) *FineResponse {
	if f == nil {
		return nil
	}
	response := mapFineToResponse(f)
	return &response
}

func mapFineSummaryToResponse(s *fine.Summary) FineSummaryResponse {
	return FineSummaryResponse{
		FineResponse: mapFineToResponse(&s.Fine),
		IssueDate:    formatDate(s.IssueDate),
		DueDate:      formatDate(s.DueDate),
		ReturnDate:   formatOptionalDate(s.ReturnDate),
		MemberID:     s.MemberID.String(),
		MemberName:   s.MemberName,
		MemberEmail:  s.MemberEmail,
		BookTitle:    s.BookTitle,
		ISBN:         s.ISBN,
		Barcode:      s.Barcode,
	}
}

func mapFineSummaries(summaries []*fine.Summary) []FineSummaryResponse {
	fines := make([]FineSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		fines = append(fines, mapFineSummaryToResponse(s))
	}
	return fines
}

func mapReservationToResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID.String(),
		MemberID:   r.MemberID.String(),
		BookID:     r.BookID.String(),
		ReservedAt: r.ReservedAt.Format(time.RFC3339),
		Status:     string(r.Status),
	}
}

func mapReservationSummaries(summaries []*reservation.Summary) []ReservationSummaryResponse {
	reservations := make([]ReservationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		reservations = append(reservations, mapReservationSummaryToResponse(s))
	}
	return reservations
}

func mapReservationSummaryToResponse(s *reservation.Summary) ReservationSummaryResponse {
	return ReservationSummaryResponse{
		ReservationResponse: mapReservationToResponse(&s.Reservation),
		MemberName:          s.MemberName,
		MemberEmail:         s.MemberEmail,
		BookTitle:           s.BookTitle,
		ISBN:                s.ISBN,
	}
}

func mapCopyToResponse(c *bookcopy.Copy) CopyResponse {
	response := CopyResponse{
		ID:      c.ID.String(),
		BookID:  c.BookID.String(),
		Barcode: c.Barcode,
		Status:  string(c.Status),
	}
	if !c.UpdatedAt.IsZero() {
		response.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return response
}
