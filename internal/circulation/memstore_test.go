package circulation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/catalog"
	"github.com/library-circulation/internal/domain/fine"
	"github.com/library-circulation/internal/domain/loan"
	"github.com/library-circulation/internal/domain/outbox"
	"github.com/library-circulation/internal/domain/reservation"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memState is everything the in-memory store holds. Values, not pointers, so a
// snapshot is a plain map copy and callers cannot change rows without a write.
type memState struct {
	members      map[uuid.UUID]catalog.Member
	books        map[uuid.UUID]catalog.Book
	copies       map[uuid.UUID]bookcopy.Copy
	loans        map[uuid.UUID]loan.Loan
	fines        map[uuid.UUID]fine.Fine
	reservations map[uuid.UUID]reservation.Reservation
	outbox       []outbox.Message
}

func (s memState) clone() memState {
	c := memState{
		members:      make(map[uuid.UUID]catalog.Member, len(s.members)),
		books:        make(map[uuid.UUID]catalog.Book, len(s.books)),
		copies:       make(map[uuid.UUID]bookcopy.Copy, len(s.copies)),
		loans:        make(map[uuid.UUID]loan.Loan, len(s.loans)),
		fines:        make(map[uuid.UUID]fine.Fine, len(s.fines)),
		reservations: make(map[uuid.UUID]reservation.Reservation, len(s.reservations)),
		outbox:       append([]outbox.Message(nil), s.outbox...),
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.copies {
		c.copies[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.fines {
		c.fines[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// memStore implements every repository plus UnitOfWork and Committer over
// memState. Do restores the pre-call state when fn fails, mirroring a rollback.
type memStore struct {
	memState
	failures map[string]error
	// staleKeyLookups makes that many idempotency key lookups miss, as a
	// read that ran before a concurrent issuance committed would.
	staleKeyLookups int
	commits         int
	rollbacks       int
}

func newMemStore() *memStore {
	return &memStore{
		memState: memState{
			members:      map[uuid.UUID]catalog.Member{},
			books:        map[uuid.UUID]catalog.Book{},
			copies:       map[uuid.UUID]bookcopy.Copy{},
			loans:        map[uuid.UUID]loan.Loan{},
			fines:        map[uuid.UUID]fine.Fine{},
			reservations: map[uuid.UUID]reservation.Reservation{},
		},
		failures: map[string]error{},
	}
}

func (s *memStore) failOn(op string, err error) { s.failures[op] = err }

func (s *memStore) fail(op string) error { return s.failures[op] }

func (s *memStore) Do(_ context.Context, fn func(uow UnitOfWork) error) (err error) {
	snapshot := s.memState.clone()
	defer func() {
		if p := recover(); p != nil {
			s.memState = snapshot
			s.rollbacks++
			panic(p)
		}
		if err != nil {
			s.memState = snapshot
			s.rollbacks++
			return
		}
		s.commits++
	}()
	return fn(s)
}

func (s *memStore) repos() Repositories {
	return Repositories{
		Copies:       memCopies{s},
		Loans:        memLoans{s},
		Fines:        memFines{s},
		Reservations: memReservations{s},
		Catalog:      memCatalog{s},
		Outbox:       memOutbox{s},
	}
}

func (s *memStore) Copies() bookcopy.Repository          { return memCopies{s} }
func (s *memStore) Loans() loan.Repository               { return memLoans{s} }
func (s *memStore) Fines() fine.Repository               { return memFines{s} }
func (s *memStore) Reservations() reservation.Repository { return memReservations{s} }
func (s *memStore) Catalog() catalog.Repository          { return memCatalog{s} }
func (s *memStore) Outbox() outbox.Repository            { return memOutbox{s} }

func (s *memStore) addMember(role string) uuid.UUID {
	id := uuid.New()
	s.members[id] = catalog.Member{ID: id, Name: "member-" + id.String()[:4], Email: id.String()[:4] + "@example.com", Role: role}
	return id
}

func (s *memStore) addBook() uuid.UUID {
	id := uuid.New()
	s.books[id] = catalog.Book{ID: id, ISBN: "978" + id.String()[:7], Title: "book-" + id.String()[:4]}
	return id
}

func (s *memStore) addCopy(bookID uuid.UUID, status bookcopy.Status) uuid.UUID {
	id := uuid.New()
	s.copies[id] = bookcopy.Copy{ID: id, BookID: bookID, Barcode: "BC-" + id.String()[:6], Status: status}
	return id
}

func (s *memStore) eventTypes() []shared.EventType {
	types := make([]shared.EventType, len(s.outbox))
	for i, m := range s.outbox {
		types[i] = m.EventType
	}
	return types
}

// bookcopy.Repository

type memCopies struct{ s *memStore }

func (r memCopies) WithTx(pgx.Tx) bookcopy.Repository { return r }

func (r memCopies) GetByID(_ context.Context, id uuid.UUID) (*bookcopy.Copy, error) {
	if err := r.s.fail("copies.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.s.copies[id]
	if !ok {
		return nil, bookcopy.ErrCopyNotFound{CopyID: id}
	}
	return &c, nil
}

func (r memCopies) LockForUpdate(ctx context.Context, id uuid.UUID) (*bookcopy.Copy, error) {
	return r.GetByID(ctx, id)
}

func (r memCopies) UpdateStatus(_ context.Context, c *bookcopy.Copy) error {
	if err := r.s.fail("copies.UpdateStatus"); err != nil {
		return err
	}
	if _, ok := r.s.copies[c.ID]; !ok {
		return bookcopy.ErrCopyNotFound{CopyID: c.ID}
	}
	r.s.copies[c.ID] = *c
	return nil
}

func (r memCopies) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.s.copies[id]; !ok {
		return bookcopy.ErrCopyNotFound{CopyID: id}
	}
	delete(r.s.copies, id)
	return nil
}

func (r memCopies) ListAvailableByBook(_ context.Context, bookID uuid.UUID) ([]*bookcopy.Copy, error) {
	copies := make([]*bookcopy.Copy, 0)
	for _, c := range r.s.copies {
		if c.BookID == bookID && c.Status == bookcopy.StatusAvailable {
			c := c
			copies = append(copies, &c)
		}
	}
	sort.Slice(copies, func(i, j int) bool { return copies[i].Barcode < copies[j].Barcode })
	return copies, nil
}

// loan.Repository

type memLoans struct{ s *memStore }

func (r memLoans) WithTx(pgx.Tx) loan.Repository { return r }

func (r memLoans) Create(_ context.Context, l *loan.Loan) error {
	if err := r.s.fail("loans.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.loans {
		if existing.CopyID == l.CopyID && existing.IsOpen() {
			return bookcopy.ErrCopyUnavailable{CopyID: l.CopyID, Status: bookcopy.StatusIssued}
		}
		if l.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *l.IdempotencyKey {
			return loan.ErrIdempotencyKeyReused{Key: *l.IdempotencyKey}
		}
	}
	r.s.loans[l.ID] = *l
	return nil
}

func (r memLoans) GetByID(_ context.Context, id uuid.UUID) (*loan.Loan, error) {
	l, ok := r.s.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound{LoanID: id}
	}
	return &l, nil
}

func (r memLoans) LockForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r memLoans) GetByIdempotencyKey(_ context.Context, key string) (*loan.Loan, error) {
	if r.s.staleKeyLookups > 0 {
		r.s.staleKeyLookups--
		return nil, nil
	}
	for _, l := range r.s.loans {
		if l.IdempotencyKey != nil && *l.IdempotencyKey == key {
			return &l, nil
		}
	}
	return nil, nil
}

func (r memLoans) MarkReturned(_ context.Context, id uuid.UUID, returnDate time.Time) error {
	if err := r.s.fail("loans.MarkReturned"); err != nil {
		return err
	}
	l, ok := r.s.loans[id]
	if !ok || !l.IsOpen() {
		return loan.ErrLoanNotFound{LoanID: id}
	}
	l.ReturnDate = &returnDate
	r.s.loans[id] = l
	return nil
}

func (r memLoans) HasOpenLoanForCopy(_ context.Context, copyID uuid.UUID) (bool, error) {
	for _, l := range r.s.loans {
		if l.CopyID == copyID && l.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (r memLoans) summary(l loan.Loan, asOf time.Time) *loan.Summary {
	c := r.s.copies[l.CopyID]
	m := r.s.members[l.MemberID]
	b := r.s.books[c.BookID]
	return &loan.Summary{
		Loan:        l,
		MemberName:  m.Name,
		MemberEmail: m.Email,
		BookID:      b.ID,
		BookTitle:   b.Title,
		ISBN:        b.ISBN,
		Barcode:     c.Barcode,
		CopyStatus:  string(c.Status),
		IsOverdue:   l.IsOverdue(asOf),
	}
}

func (r memLoans) GetSummary(_ context.Context, id uuid.UUID, asOf time.Time) (*loan.Summary, error) {
	l, ok := r.s.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound{LoanID: id}
	}
	return r.summary(l, asOf), nil
}

func (r memLoans) List(_ context.Context, filter loan.Filter) ([]*loan.Summary, error) {
	out := make([]*loan.Summary, 0)
	for _, l := range r.s.loans {
		if filter.MemberID != nil && l.MemberID != *filter.MemberID {
			continue
		}
		if filter.OverdueOnly && !l.IsOverdue(filter.AsOf) {
			continue
		}
		if filter.Returned != nil && *filter.Returned == l.IsOpen() {
			continue
		}
		out = append(out, r.summary(l, filter.AsOf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	return out, nil
}

// fine.Repository

type memFines struct{ s *memStore }

func (r memFines) WithTx(pgx.Tx) fine.Repository { return r }

func (r memFines) Create(_ context.Context, f *fine.Fine) error {
	if err := r.s.fail("fines.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.fines {
		if existing.LoanID == f.LoanID {
			return fine.ErrDuplicateFine{LoanID: f.LoanID}
		}
	}
	r.s.fines[f.ID] = *f
	return nil
}

func (r memFines) GetByID(_ context.Context, id uuid.UUID) (*fine.Fine, error) {
	f, ok := r.s.fines[id]
	if !ok {
		return nil, fine.ErrFineNotFound{FineID: id}
	}
	return &f, nil
}

func (r memFines) LockForUpdate(ctx context.Context, id uuid.UUID) (*fine.Fine, error) {
	return r.GetByID(ctx, id)
}

func (r memFines) GetByLoanID(_ context.Context, loanID uuid.UUID) (*fine.Fine, error) {
	for _, f := range r.s.fines {
		if f.LoanID == loanID {
			return &f, nil
		}
	}
	return nil, nil
}

func (r memFines) MarkPaid(_ context.Context, id uuid.UUID, paidDate time.Time) error {
	f, ok := r.s.fines[id]
	if !ok {
		return fine.ErrFineNotFound{FineID: id}
	}
	f.Paid, f.PaidDate = true, &paidDate
	r.s.fines[id] = f
	return nil
}

func (r memFines) TotalUnpaidByMember(_ context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, f := range r.s.fines {
		if !f.Paid && r.s.loans[f.LoanID].MemberID == memberID {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}

func (r memFines) summary(f fine.Fine) *fine.Summary {
	l := r.s.loans[f.LoanID]
	c := r.s.copies[l.CopyID]
	m := r.s.members[l.MemberID]
	b := r.s.books[c.BookID]
	return &fine.Summary{
		Fine:        f,
		IssueDate:   l.IssueDate,
		DueDate:     l.DueDate,
		ReturnDate:  l.ReturnDate,
		MemberID:    m.ID,
		MemberName:  m.Name,
		MemberEmail: m.Email,
		BookTitle:   b.Title,
		ISBN:        b.ISBN,
		Barcode:     c.Barcode,
	}
}

func (r memFines) GetSummary(_ context.Context, id uuid.UUID) (*fine.Summary, error) {
	f, ok := r.s.fines[id]
	if !ok {
		return nil, fine.ErrFineNotFound{FineID: id}
	}
	return r.summary(f), nil
}

func (r memFines) List(_ context.Context, filter fine.Filter) ([]*fine.Summary, error) {
	out := make([]*fine.Summary, 0)
	for _, f := range r.s.fines {
		if filter.Paid != nil && f.Paid != *filter.Paid {
			continue
		}
		if filter.MemberID != nil && r.s.loans[f.LoanID].MemberID != *filter.MemberID {
			continue
		}
		out = append(out, r.summary(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Paid != out[j].Paid {
			return !out[i].Paid
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// reservation.Repository

type memReservations struct{ s *memStore }

func (r memReservations) WithTx(pgx.Tx) reservation.Repository { return r }

func (r memReservations) Create(_ context.Context, res *reservation.Reservation) error {
	for _, existing := range r.s.reservations {
		if existing.MemberID == res.MemberID && existing.BookID == res.BookID && existing.Status == reservation.StatusPending {
			return reservation.ErrDuplicateReservation{MemberID: res.MemberID, BookID: res.BookID}
		}
	}
	r.s.reservations[res.ID] = *res
	return nil
}

func (r memReservations) GetByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound{ReservationID: id}
	}
	return &res, nil
}

func (r memReservations) LockForUpdate(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r memReservations) UpdateStatus(_ context.Context, id uuid.UUID, status reservation.Status) error {
	if err := r.s.fail("reservations.UpdateStatus"); err != nil {
		return err
	}
	res, ok := r.s.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound{ReservationID: id}
	}
	res.Status = status
	r.s.reservations[id] = res
	return nil
}

func (r memReservations) FindPending(_ context.Context, memberID, bookID uuid.UUID) (*reservation.Reservation, error) {
	for _, res := range r.s.reservations {
		if res.MemberID == memberID && res.BookID == bookID && res.Status == reservation.StatusPending {
			return &res, nil
		}
	}
	return nil, nil
}

func (r memReservations) summary(res reservation.Reservation) *reservation.Summary {
	m := r.s.members[res.MemberID]
	b := r.s.books[res.BookID]
	return &reservation.Summary{Reservation: res, MemberName: m.Name, MemberEmail: m.Email, BookTitle: b.Title, ISBN: b.ISBN}
}

func (r memReservations) ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*reservation.Summary, error) {
	status := reservation.StatusPending
	out, err := r.List(ctx, reservation.Filter{Status: &status, BookID: &bookID})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservedAt.Equal(out[j].ReservedAt) {
			return out[i].ReservedAt.Before(out[j].ReservedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r memReservations) GetSummary(_ context.Context, id uuid.UUID) (*reservation.Summary, error) {
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound{ReservationID: id}
	}
	return r.summary(res), nil
}

func (r memReservations) List(_ context.Context, filter reservation.Filter) ([]*reservation.Summary, error) {
	out := make([]*reservation.Summary, 0)
	for _, res := range r.s.reservations {
		if filter.Status != nil && res.Status != *filter.Status {
			continue
		}
		if filter.MemberID != nil && res.MemberID != *filter.MemberID {
			continue
		}
		if filter.BookID != nil && res.BookID != *filter.BookID {
			continue
		}
		out = append(out, r.summary(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.After(out[j].ReservedAt) })
	return out, nil
}

// catalog.Repository

type memCatalog struct{ s *memStore }

func (r memCatalog) WithTx(pgx.Tx) catalog.Repository { return r }

func (r memCatalog) GetMember(_ context.Context, id uuid.UUID) (*catalog.Member, error) {
	m, ok := r.s.members[id]
	if !ok {
		return nil, catalog.ErrMemberNotFound{MemberID: id}
	}
	return &m, nil
}

func (r memCatalog) GetBook(_ context.Context, id uuid.UUID) (*catalog.Book, error) {
	b, ok := r.s.books[id]
	if !ok {
		return nil, catalog.ErrBookNotFound{BookID: id}
	}
	return &b, nil
}

// outbox.Repository

type memOutbox struct{ s *memStore }

func (r memOutbox) WithTx(pgx.Tx) outbox.Repository { return r }

func (r memOutbox) Create(_ context.Context, m *outbox.Message) error {
	if err := r.s.fail("outbox.Create"); err != nil {
		return err
	}
	m.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, *m)
	return nil
}

func (r memOutbox) GetPending(context.Context, int) ([]*outbox.Message, error) { return nil, nil }

func (r memOutbox) UpdateStatus(context.Context, int64, shared.OutboxStatus) error { return nil }

func (r memOutbox) IncrementAttempts(context.Context, int64) error { return nil }
