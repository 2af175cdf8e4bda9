package circulation

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/bookcopy"
	"github.com/library-circulation/internal/domain/shared"
)

// IssueCommand asks for a copy to be lent to a member until DueDate.
type IssueCommand struct {
	MemberID       uuid.UUID `json:"member_id"`
	CopyID         uuid.UUID `json:"copy_id"`
	DueDate        string    `json:"due_date"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func (c IssueCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MemberID, validation.By(requiredUUID)),
		validation.Field(&c.CopyID, validation.By(requiredUUID)),
		validation.Field(&c.DueDate, validation.Required, validation.Date(shared.DateLayout)),
		validation.Field(&c.IdempotencyKey, validation.By(notBlank), validation.Length(0, 128)),
	)
}

// normalized trims the idempotency key so the stored key and every lookup agree.
func (c IssueCommand) normalized() IssueCommand {
	c.IdempotencyKey = strings.TrimSpace(c.IdempotencyKey)
	return c
}

// ReserveCommand places a member in the queue for a book.
type ReserveCommand struct {
	MemberID uuid.UUID `json:"member_id"`
	BookID   uuid.UUID `json:"book_id"`
}

func (c ReserveCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MemberID, validation.By(requiredUUID)),
		validation.Field(&c.BookID, validation.By(requiredUUID)),
	)
}

// ChangeCopyStatusCommand is an administrative status change.
type ChangeCopyStatusCommand struct {
	CopyID uuid.UUID `json:"copy_id"`
	Status string    `json:"status"`
}

func (c ChangeCopyStatusCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CopyID, validation.By(requiredUUID)),
		validation.Field(&c.Status, validation.Required, validation.By(knownCopyStatus)),
	)
}

// knownCopyStatus accepts any spelling bookcopy.ParseStatus understands.
func knownCopyStatus(value interface{}) error {
	s, _ := value.(string)
	if _, err := bookcopy.ParseStatus(s); err != nil {
		names := make([]string, len(bookcopy.Statuses))
		for i, status := range bookcopy.Statuses {
			names[i] = string(status)
		}
		return errors.New("must be one of: " + strings.Join(names, ", "))
	}
	return nil
}

// notBlank rejects values made only of whitespace. Empty is left to Required.
func notBlank(value interface{}) error {
	if s, _ := value.(string); s != "" && strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

func requiredUUID(value interface{}) error {
	if id, _ := value.(uuid.UUID); id == uuid.Nil {
		return errors.New("is required")
	}
	return nil
}

// validate runs v's rules and converts field failures into the domain
// validation error.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fieldErr := range fieldErrs {
			fields[name] = fieldErr.Error()
		}
		return shared.ErrValidation{Fields: fields}
	}
	return fmt.Errorf("failed to validate command: %w", err)
}

// validateID rejects the nil uuid for single-id operations.
func validateID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return shared.NewValidationError(field, "is required")
	}
	return nil
}
