package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/library-circulation/internal/api/middleware"
	"github.com/library-circulation/internal/domain/shared"
)

// decodeStrict decodes the JSON body into dst, rejecting unknown fields and
// trailing content.
func decodeStrict(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil {
		return errors.New("request body is empty")
	}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// idParser collects uuid parse failures per field.
type idParser struct {
	fields map[string]string
}

func newIDParser() *idParser {
	return &idParser{fields: map[string]string{}}
}

func (p *idParser) parse(field, value string) uuid.UUID {
	if value == "" {
		p.fields[field] = "is required"
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		p.fields[field] = "must be a valid UUID"
		return uuid.Nil
	}
	return id
}

func (p *idParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return shared.ErrValidation{Fields: p.fields}
}

// pathID parses the named path parameter as a uuid.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewValidationError(name, "must be a valid UUID")
	}
	return &id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, shared.NewValidationError(name, fmt.Sprintf("%q is not a boolean", raw))
	}
	return &value, nil
}

// scopeMember restricts a member filter to the caller when the caller is a
// MEMBER. Staff and unauthenticated internal routes pass through unchanged.
func scopeMember(c *gin.Context, requested *uuid.UUID) (*uuid.UUID, error) {
	caller, ok := middleware.GetIdentity(c)
	if !ok || caller.IsStaff() {
		return requested, nil
	}
	if requested == nil {
		return &caller.MemberID, nil
	}
	if *requested != caller.MemberID {
		return nil, shared.ErrForbidden{Action: "view another member's records"}
	}
	return requested, nil
}

// ensureOwner fails when a MEMBER caller reaches for someone else's record.
func ensureOwner(c *gin.Context, ownerID uuid.UUID, action string) error {
	caller, ok := middleware.GetIdentity(c)
	if !ok || caller.CanActFor(ownerID) {
		return nil
	}
	return shared.ErrForbidden{Action: action}
}
