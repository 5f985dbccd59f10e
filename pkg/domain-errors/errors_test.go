package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "certificate not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", New(CodeConflict, "duplicate serial"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "missing")
		err := Wrap(inner, CodeInternal, "failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.True(t, errors.Is(err, inner))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:      http.StatusBadRequest,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeInvalidState:    http.StatusConflict,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), string(code))
	}
}
