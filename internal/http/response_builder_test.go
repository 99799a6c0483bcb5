package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"skledger/internal/core"
	"skledger/internal/ledger"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/periods/2025-Q1").
		JSON(map[string]int{"index": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if w.Header().Get("Location") != "/periods/2025-Q1" {
		t.Fatalf("custom header missing")
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["index"] != 2 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &core.ValidationError{Field: "payee", Err: core.ErrMissingPayee}, http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("append: %w", &core.ValidationError{Field: "date", Err: core.ErrMissingDate}), http.StatusUnprocessableEntity},
		{"invalid period", fmt.Errorf("%w: %q", core.ErrInvalidPeriod, "2025"), http.StatusBadRequest},
		{"invalid kind", core.ErrInvalidAccountKind, http.StatusBadRequest},
		{"bad body", errBadRequest, http.StatusBadRequest},
		{"missing entry", fmt.Errorf("%w: 9", core.ErrEntryNotFound), http.StatusNotFound},
		{"save failed", fmt.Errorf("%w: disk", ledger.ErrSaveFailed), http.StatusServiceUnavailable},
		{"load failed", fmt.Errorf("%w: disk", ledger.ErrLoadFailed), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Fatalf("StatusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromErrorBodies(t *testing.T) {
	w := httptest.NewRecorder()
	FromError(&core.ValidationError{Field: "reference", Err: core.ErrMissingReference}).Write(w)
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusUnprocessableEntity || body.Field != "reference" {
		t.Fatalf("status %d body %+v", w.Code, body)
	}

	w = httptest.NewRecorder()
	FromError(errors.New("secret detail")).Write(w)
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "internal error" {
		t.Fatalf("internal details leaked: %q", body.Error)
	}
}
