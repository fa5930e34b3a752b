package handlers

import (
  "errors"
  "fmt"
  "net/http"
  "strings"
  "testing"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
)

func TestStatusForErrorHidesInternalDetails(t *testing.T) {
  dbErr := fmt.Errorf("Failed to list conversations: %w", errors.New(`pq: relation "conversations" does not exist`))
  status, msg := statusForError(dbErr)
  if status != http.StatusInternalServerError {
    t.Fatalf("expected 500 for a storage failure, got %d", status)
  }
  if msg != "Something went wrong" {
    t.Fatalf("expected the generic message, got %q", msg)
  }
  if strings.Contains(msg, "pq:") {
    t.Fatalf("driver text leaked into the client message: %q", msg)
  }
}

func TestStatusForErrorKeepsValidationMessages(t *testing.T) {
  status, msg := statusForError(apperrors.Invalidf("a message is required"))
  if status != http.StatusBadRequest || msg != "a message is required" {
    t.Fatalf("expected 400 with the validation text, got %d %q", status, msg)
  }

  // Wrapping a validation error must not change its classification.
  wrapped := fmt.Errorf("rename failed: %w", apperrors.Invalidf("a title is required to rename a conversation"))
  status, msg = statusForError(wrapped)
  if status != http.StatusBadRequest || msg != "a title is required to rename a conversation" {
    t.Fatalf("expected the inner validation text at 400, got %d %q", status, msg)
  }
}

func TestStatusForErrorMapsKnownKinds(t *testing.T) {
  if status, _ := statusForError(fmt.Errorf("lookup: %w", apperrors.ErrNotFound)); status != http.StatusNotFound {
    t.Fatalf("expected 404 for not-found, got %d", status)
  }
  cases := []struct {
    kind apperrors.ProviderKind
    want int
  }{
    {apperrors.ProviderRateLimited, http.StatusTooManyRequests},
    {apperrors.ProviderUnauthenticated, http.StatusInternalServerError},
    {apperrors.ProviderUnavailable, http.StatusServiceUnavailable},
  }
  for _, tc := range cases {
    err := apperrors.NewProviderError(tc.kind, "groq", errors.New("upstream"))
    if status, _ := statusForError(err); status != tc.want {
      t.Fatalf("kind %s: expected %d, got %d", tc.kind, tc.want, status)
    }
  }
}

func TestStatusForAuthError(t *testing.T) {
  status, msg := statusForAuthError(apperrors.Invalidf("invalid email or password"))
  if status != http.StatusUnauthorized || msg != "invalid email or password" {
    t.Fatalf("expected 401 with the credential text, got %d %q", status, msg)
  }
  status, msg = statusForAuthError(errors.New("dial tcp: connection refused"))
  if status != http.StatusInternalServerError || msg != "Something went wrong" {
    t.Fatalf("expected the generic 500 for an internal failure, got %d %q", status, msg)
  }
}
