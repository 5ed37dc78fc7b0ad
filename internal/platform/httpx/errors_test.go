package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBad = errors.New("bad thing")

func TestRespondErrorMatchesWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("ctx: %w", errBad), ErrorMapping{Target: errBad, Status: http.StatusBadRequest, Title: "Bad", Expose: true})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "Bad", problem.Title)
	assert.Equal(t, "ctx: bad thing", problem.Detail)
}

func TestRespondErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password leaked"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "leaked")
}
