package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/pkg/errors"
)

func respond(err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)
	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{errors.InvalidTransition("appointment", "SCHEDULED", "close"), http.StatusConflict, "InvalidTransition"},
		{errors.AlreadyFinalized("draft"), http.StatusConflict, "AlreadyFinalized"},
		{errors.NotFound("appointment", nil), http.StatusNotFound, "NotFound"},
		{errors.Unauthorizedf("role NURSE cannot close"), http.StatusForbidden, "Unauthorized"},
		{errors.Validationf("reason is required"), http.StatusBadRequest, "ValidationError"},
		{fmt.Errorf("wrapped: %w", errors.NotFound("draft", nil)), http.StatusNotFound, "NotFound"},
	}
	for _, tc := range cases {
		w, body := respond(tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		require.NotNil(t, body.Error)
		assert.Equal(t, tc.code, body.Error.Code)
		assert.False(t, body.Success)
	}
}

func TestRespondWithErrorHidesInternalDetails(t *testing.T) {
	w, body := respond(fmt.Errorf("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
}
