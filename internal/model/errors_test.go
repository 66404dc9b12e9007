package model

import (
	"fmt"
	"net/http"
	"testing"
)

func TestNewBackendError_Categories(t *testing.T) {
	tests := []struct {
		status       int
		wantCategory string
		wantCode     string
	}{
		{http.StatusNotFound, CategoryNotFound, ErrCodeNotFound},
		{http.StatusUnauthorized, CategoryAuth, ErrCodeUnauthenticated},
		{http.StatusForbidden, CategoryAuth, ErrCodeUnauthenticated},
		{http.StatusBadRequest, CategoryValidation, ErrCodeValidation},
		{http.StatusInternalServerError, CategorySystem, ErrCodeBackend},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := NewBackendError(tt.status, "", "fallback")
			if e.Category != tt.wantCategory || e.Code != tt.wantCode {
				t.Errorf("got (%s, %s), want (%s, %s)", e.Category, e.Code, tt.wantCategory, tt.wantCode)
			}
			if e.Message != "fallback" {
				t.Errorf("Message = %q, want fallback", e.Message)
			}
		})
	}
}

func TestIsNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("get article: %w", NewArticleNotFoundError("x"))
	if !IsNotFound(err) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(NewTransportError("list", fmt.Errorf("dial"))) {
		t.Error("transport error must not be not-found")
	}
}

func TestAPIError_FieldMessages_Sorted(t *testing.T) {
	e := NewValidationError("", map[string]string{"username": "taken", "email": "invalid"})
	got := e.FieldMessages()
	if len(got) != 2 || got[0] != "email: invalid" || got[1] != "username: taken" {
		t.Errorf("FieldMessages() = %v", got)
	}
}

func TestUserMessage_NonAPIError(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Error("nil error should give empty message")
	}
	if UserMessage(fmt.Errorf("boom")) == "boom" {
		t.Error("internal error text must not leak")
	}
}
