package inoreader

import (
	"errors"
	"fmt"
)

// ClientError is any failure talking to the API, or a local precondition
// violation detected before a request was sent. StatusCode is zero for the
// latter and for transport failures.
type ClientError struct {
	StatusCode int
	Status     string
	Message    string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// AuthenticationError is a ClientError caused by an expired or rejected token
// (Forbidden false) or by missing entitlement (Forbidden true, HTTP 403).
type AuthenticationError struct {
	ClientError
	Forbidden bool
}

// As lets errors.As match an AuthenticationError as a *ClientError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**ClientError); ok {
		*t = &e.ClientError
		return true
	}
	return false
}

const (
	msgExpired   = "Inoreader authentication expired or was revoked; re-authenticate with 'inoreader-mcp auth login'"
	msgForbidden = "Inoreader denied access (403 Forbidden): the account lacks the entitlement for this operation"
)

func newExpiredError(statusCode int, cause error) *AuthenticationError {
	return &AuthenticationError{
		ClientError: ClientError{
			StatusCode: statusCode,
			Status:     "Unauthorized",
			Message:    msgExpired,
			Err:        cause,
		},
	}
}

func newForbiddenError() *AuthenticationError {
	return &AuthenticationError{
		ClientError: ClientError{
			StatusCode: 403,
			Status:     "Forbidden",
			Message:    msgForbidden,
		},
		Forbidden: true,
	}
}

func newStatusError(statusCode int, status, detail string) *ClientError {
	msg := fmt.Sprintf("Inoreader API error: %d %s", statusCode, status)
	if detail != "" {
		msg += " (" + detail + ")"
	}
	return &ClientError{StatusCode: statusCode, Status: status, Message: msg}
}

// invalidArgument reports a local precondition failure. No request is sent.
func invalidArgument(format string, args ...any) *ClientError {
	return &ClientError{Message: fmt.Sprintf(format, args...)}
}

// IsAuthenticationError reports whether err is an *AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
