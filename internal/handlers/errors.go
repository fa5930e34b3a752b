package handlers

import (
  "errors"
  "net/http"

  "github.com/amitai-labs/amitai-backend/internal/apperrors"
)

// statusForError maps service failures onto HTTP statuses. Missing and
// not-owned resources are indistinguishable on purpose.
func statusForError(err error) (int, string) {
  if errors.Is(err, apperrors.ErrNotFound) {
    return http.StatusNotFound, "Conversation not found"
  }
  if pErr, ok := apperrors.AsProviderError(err); ok {
    switch pErr.Kind {
    case apperrors.ProviderRateLimited:
      return http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."
    case apperrors.ProviderUnauthenticated:
      return http.StatusInternalServerError, "AI provider is not configured correctly"
    default:
      return http.StatusServiceUnavailable, "Failed to generate response"
    }
  }
  if iErr, ok := apperrors.AsInvalidError(err); ok {
    return http.StatusBadRequest, iErr.Msg
  }
  return http.StatusInternalServerError, "Something went wrong"
}

// statusForAuthError is statusForError with caller mistakes mapped to 401,
// which is what credential and refresh failures deserve.
func statusForAuthError(err error) (int, string) {
  if iErr, ok := apperrors.AsInvalidError(err); ok {
    return http.StatusUnauthorized, iErr.Msg
  }
  return statusForError(err)
}
