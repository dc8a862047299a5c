package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/wearsim/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidIterations)
	assert.Equal(t, errors.ErrInvalidIterations, err.Code())
	assert.Equal(t, "Invalid iteration count", err.Error())

	assert.Equal(t, "custom", errors.GetErrorMessage("custom"), "Expected unknown codes to echo themselves")
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := errors.New().Wrap(errors.ErrReadTrace, cause)

	assert.Equal(t, errors.ErrReadTrace, err.Code())
	assert.Contains(t, err.Error(), "disk on fire")
	assert.True(t, errors.Is(err, cause), "Expected the cause to stay reachable through Unwrap")
}

func TestWithMessageAndData(t *testing.T) {
	err := errors.New().WithMessage(errors.ErrParseTrace, "row 7 is short")
	assert.Equal(t, "row 7 is short", err.Error())

	err = errors.New().WithData(errors.ErrMissingQuantity, "temperature")
	assert.Contains(t, err.Error(), "temperature")
	assert.Equal(t, "temperature", err.GetData())
}

func TestCodeOf(t *testing.T) {
	err := errors.New().New(errors.ErrUnknownUnit)
	assert.Equal(t, errors.ErrUnknownUnit, errors.CodeOf(err))

	require.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("anonymous")),
		"Expected foreign errors to map to the internal code")
}
