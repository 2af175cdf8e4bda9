package history

import (
	"context"
)

// Repository manages history entries with pagination support
type Repository interface {
	// Create stores an entry. Replaying an event id returns ErrDuplicateEntry.
	Create(ctx context.Context, entry *Entry) error
	GetByEventID(ctx context.Context, eventID string) (*Entry, error)
	GetByMemberID(ctx context.Context, memberID string, limit, offset int) ([]*Entry, error)
	CountByMemberID(ctx context.Context, memberID string) (int64, error)
	GetByLoanID(ctx context.Context, loanID string) ([]*Entry, error)
}

// ErrEntryNotFound indicates missing history entry
type ErrEntryNotFound struct {
	EventID string
}

func (e ErrEntryNotFound) Error() string {
	return "history entry not found: " + e.EventID
}

// Is matches any ErrEntryNotFound when the target carries no id.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EventID == "" || t.EventID == e.EventID
}

// ErrDuplicateEntry indicates the event was already projected
type ErrDuplicateEntry struct {
	EventID string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate history entry: " + e.EventID
}

// Is matches any ErrDuplicateEntry when the target carries no id.
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	return t.EventID == "" || t.EventID == e.EventID
}
