package bookcopy

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/library-circulation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCopy(status Status) *Copy {
	return &Copy{ID: uuid.New(), BookID: uuid.New(), Barcode: "BC-0001", Status: status}
}

func TestParseStatus(t *testing.T) {
	t.Run("AcceptsKnownValuesCaseInsensitively", func(t *testing.T) {
		s, err := ParseStatus(" damaged ")
		require.NoError(t, err)
		assert.Equal(t, StatusDamaged, s)
	})

	t.Run("RejectsUnknownValue", func(t *testing.T) {
		_, err := ParseStatus("BORROWED")
		require.Error(t, err)

		var verr shared.ErrValidation
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields["status"], "AVAILABLE, ISSUED, LOST, DAMAGED")
	})
}

func TestCopy_Issue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("AvailableBecomesIssued", func(t *testing.T) {
		c := newCopy(StatusAvailable)
		require.NoError(t, c.Issue(now))
		assert.Equal(t, StatusIssued, c.Status)
		assert.Equal(t, now, c.UpdatedAt)
	})

	for _, status := range []Status{StatusIssued, StatusLost, StatusDamaged} {
		t.Run("RejectsFrom"+string(status), func(t *testing.T) {
			c := newCopy(status)
			err := c.Issue(now)

			var unavailable ErrCopyUnavailable
			require.True(t, errors.As(err, &unavailable))
			assert.Equal(t, status, unavailable.Status)
			assert.Equal(t, status, c.Status, "status must not change on failure")
			assert.Contains(t, err.Error(), "Current status: "+string(status))

			kind, ok := shared.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, shared.KindBusinessRule, kind)
		})
	}
}

func TestCopy_Release(t *testing.T) {
	now := time.Now()

	c := newCopy(StatusIssued)
	require.NoError(t, c.Release(now))
	assert.Equal(t, StatusAvailable, c.Status)

	err := c.Release(now)
	var transition shared.ErrInvalidTransition
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "AVAILABLE", transition.From)
}

func TestCopy_ChangeStatus(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"AvailableToLost", StatusAvailable, StatusLost, false},
		{"LostToDamaged", StatusLost, StatusDamaged, false},
		{"DamagedToAvailable", StatusDamaged, StatusAvailable, false},
		{"AvailableToIssued", StatusAvailable, StatusIssued, true},
		{"IssuedToLost", StatusIssued, StatusLost, true},
		{"UnknownTarget", StatusAvailable, Status("MISSING"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCopy(tc.from)
			err := c.ChangeStatus(tc.to, now)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tc.from, c.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, c.Status)
		})
	}
}

func TestCopy_EnsureDeletable(t *testing.T) {
	assert.NoError(t, newCopy(StatusDamaged).EnsureDeletable(false))
	assert.ErrorAs(t, newCopy(StatusIssued).EnsureDeletable(false), &ErrCopyInUse{})
	assert.ErrorAs(t, newCopy(StatusAvailable).EnsureDeletable(true), &ErrCopyInUse{})
}

func TestErrCopyNotFound_Is(t *testing.T) {
	id := uuid.New()
	err := ErrCopyNotFound{CopyID: id}

	assert.True(t, errors.Is(err, ErrCopyNotFound{}))
	assert.True(t, errors.Is(err, ErrCopyNotFound{CopyID: id}))
	assert.False(t, errors.Is(err, ErrCopyNotFound{CopyID: uuid.New()}))
}
