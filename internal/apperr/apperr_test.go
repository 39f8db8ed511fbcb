package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing %d", 7)))
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate")))
	assert.Equal(t, KindAuthorization, KindOf(Authorization("not yours")))
	assert.Equal(t, KindState, KindOf(State("wrong status")))

	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("submit request: %w", Validation("quantity out of range"))
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(err, KindConflict))
}

func TestTransactionPreservesCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Transaction("failed to commit transaction", cause)

	assert.Equal(t, KindTransaction, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadlock detected")
}
