package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantLogged bool
	}{
		{"Validation", Fail(ErrValidation, "Password does not meet complexity requirements"), http.StatusBadRequest, "Password does not meet complexity requirements", false},
		{"Conflict", Fail(ErrConflict, "Email already registered"), http.StatusBadRequest, "Email already registered", false},
		{"Unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "Could not validate credentials", false},
		{"Not found", Fail(ErrNotFound, "Ticket not found"), http.StatusNotFound, "Ticket not found", false},
		{"Store unavailable", fmt.Errorf("find: %w", docstore.ErrUnavailable), http.StatusServiceUnavailable, "Database connection error", true},
		{"Unexpected", oops.Code("BOOM").With("secret", "s3cr3t").Errorf("pq: relation does not exist"), http.StatusInternalServerError, "Internal server error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(rec, req, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.NotContains(t, rec.Body.String(), "s3cr3t")

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
			}
			assert.Equal(t, tt.wantLogged, logs.Len() > 0)
		})
	}
}

func TestLogErrorIncludesOopsContext(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	err := oops.Code("STORE_UNAVAILABLE").With("collection", "brand").Wrap(errors.New("connection refused"))
	LogError(t.Context(), logger, "query failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "STORE_UNAVAILABLE", entry["code"])
	assert.Contains(t, fmt.Sprint(entry["context"]), "brand")
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	decode := func(body string) error {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		return DecodeJSONBody(rec, req, &p)
	}

	assert.NoError(t, decode(`{"title":"ok"}`))
	assert.ErrorContains(t, decode(``), "must not be empty")
	assert.ErrorContains(t, decode(`{"title":`), "badly-formed")
	assert.ErrorContains(t, decode(`{"title":1}`), `field "title"`)
	assert.ErrorContains(t, decode(`{"nope":1}`), `unknown key "nope"`)
	assert.ErrorContains(t, decode(`{"title":"a"}{"title":"b"}`), "single JSON value")
	assert.ErrorContains(t, decode(`{"title":"`+strings.Repeat("x", 1_100_000)+`"}`), "must not be larger")
}

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body, _ := io.ReadAll(rec.Body)
	assert.JSONEq(t, `{"n":1}`, string(body))

	rec = httptest.NewRecorder()
	WriteJSONResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}
