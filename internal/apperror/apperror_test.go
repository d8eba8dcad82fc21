package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	errExists := Conflict("reading_exists")
	wrapped := fmt.Errorf("%w: customer 7 period 2025-01", errExists)

	assert.True(t, errors.Is(wrapped, errExists))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "reading_exists", CodeOf(wrapped))
	assert.False(t, errors.Is(wrapped, Conflict("reading_exists")), "sentinels compare by identity")
}

func TestTransactionKeepsClassifiedErrors(t *testing.T) {
	errInvalid := Validation("invalid_amount", "amount")

	assert.Same(t, errInvalid, Transaction(errInvalid))
	assert.Equal(t, "amount", FieldOf(Transaction(errInvalid)))

	raw := errors.New("connection reset")
	err := Transaction(raw)
	assert.Equal(t, KindTransaction, KindOf(err))
	assert.True(t, errors.Is(err, ErrTransaction))
	assert.True(t, errors.Is(err, raw))

	timeout := Transaction(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))

	assert.Nil(t, Transaction(nil))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal_error", CodeOf(errors.New("boom")))
}
