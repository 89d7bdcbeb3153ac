package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"finay/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("done").
		Data(map[string]int{"n": 1}).
		Header("X-Custom", "yes").
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status expected 201, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("content type %q", got)
	}
	if got := rec.Header().Get("X-Custom"); got != "yes" {
		t.Fatalf("custom header %q", got)
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Message != "done" {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	TooManyRequestsError().Write(rec)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After header")
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Fatalf("error envelope must not claim success")
	}
}

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrAccountNotFound, http.StatusNotFound},
		{core.ErrForbidden, http.StatusForbidden},
		{core.ErrAccountExists, http.StatusConflict},
		{core.ErrInvalidKind, http.StatusUnprocessableEntity},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrInvalidPeriod, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		writeDomainError(rec, req, tc.err)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}
