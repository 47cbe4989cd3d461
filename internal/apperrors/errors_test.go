package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeIOFailure, nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := IOFailure("disk full", errors.New("enospc"))
	target := New(ErrCodeIOFailure, "", nil)
	assert.True(t, errors.Is(err, target))
}

func TestIsFatalForDeserializeFailure(t *testing.T) {
	err := DeserializeFailure("corrupt corpus", errors.New("eof"))
	assert.True(t, IsFatal(err))
}

func TestLockPoisonedNotFatal(t *testing.T) {
	err := LockPoisoned(3, errors.New("panic"))
	assert.False(t, IsFatal(err))
	assert.Equal(t, ErrCodeLockPoisoned, Code(err))
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, cause)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatusMapsValidationToBadRequest(t *testing.T) {
	err := InvalidRequest("missing url", nil)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatusMapsIOToInternalServerError(t *testing.T) {
	err := IOFailure("disk full", errors.New("enospc"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}
