package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidTransitionNamesBothStatuses(t *testing.T) {
	err := InvalidTransition("appointment", "SCHEDULED", "complete_consultation")

	assert.Contains(t, err.Error(), "SCHEDULED")
	assert.Contains(t, err.Error(), "complete_consultation")
	assert.Equal(t, http.StatusConflict, err.StatusCode())
}

func TestCodeMatchingThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("commit: %w", AlreadyFinalized("draft"))

	assert.True(t, stderrors.Is(wrapped, ErrAlreadyFinalized.New()))
	assert.False(t, stderrors.Is(wrapped, ErrNotFound.New()))
	assert.True(t, HasCode(wrapped, ErrAlreadyFinalized))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("boom")))
	assert.False(t, HasCode(nil, ErrInternal))
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("draft", nil), http.StatusNotFound},
		{Validationf("reason is required"), http.StatusBadRequest},
		{Unauthorizedf("role %s", "NURSE"), http.StatusForbidden},
		{Internal(stderrors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}
