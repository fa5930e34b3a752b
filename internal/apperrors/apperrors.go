package apperrors

import (
  "errors"
  "fmt"
)

// ErrNotFound covers both "does not exist" and "not owned by the caller".
// The two cases are deliberately indistinguishable so a request can never be
// used to probe for other users' data.
var ErrNotFound = errors.New("not found")

// InvalidError marks a caller mistake whose message is safe to put in the
// response body. Anything not wrapped this way is treated as an internal
// failure and surfaces as a generic server error, so driver and SQL text
// never reach a client.
type InvalidError struct {
  Msg string
}

func (ie *InvalidError) Error() string {
  return ie.Msg
}

func Invalidf(format string, args ...interface{}) error {
  return &InvalidError{Msg: fmt.Sprintf(format, args...)}
}

// AsInvalidError unwraps err into an *InvalidError if one is in the chain.
func AsInvalidError(err error) (*InvalidError, bool) {
  var ie *InvalidError
  if errors.As(err, &ie) {
    return ie, true
  }
  return nil, false
}

// ProviderKind classifies completion provider failures so callers can tell a
// retryable failure from a configuration one.
type ProviderKind string

const (
  ProviderRateLimited      ProviderKind = "rate_limited"
  ProviderUnauthenticated  ProviderKind = "unauthenticated"
  ProviderUnavailable      ProviderKind = "unavailable"
)

type ProviderError struct {
  Kind     ProviderKind
  Provider string
  Err      error
}

func (pe *ProviderError) Error() string {
  return fmt.Sprintf("%s provider %s: %v", pe.Provider, pe.Kind, pe.Err)
}

func (pe *ProviderError) Unwrap() error {
  return pe.Err
}

func NewProviderError(kind ProviderKind, provider string, err error) *ProviderError {
  return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// AsProviderError unwraps err into a *ProviderError if one is in the chain.
func AsProviderError(err error) (*ProviderError, bool) {
  var pe *ProviderError
  if errors.As(err, &pe) {
    return pe, true
  }
  return nil, false
}
