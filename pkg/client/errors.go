package client

import (
	"errors"
	"fmt"

	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

// ErrSuperseded is returned by a listing call whose response arrived after a newer
// request for the same resource, filters and page had started.
var ErrSuperseded = errors.New("client: superseded by a newer request")

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a 5xx answer, or any answer whose body is not a valid envelope.
type ServerError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// IsRetryable reports whether err is worth retrying for an idempotent request.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var srvErr *ServerError
	return errors.As(err, &srvErr) && srvErr.Status >= 500
}

// IsValidation reports whether err carries per-field messages to show inline.
func IsValidation(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrValidation.Code)
}

// IsNotFound reports a stale reference.
func IsNotFound(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrNotFound.Code)
}

// IsConflict reports a uniqueness or in-use rejection.
func IsConflict(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrDuplicateName.Code) ||
		appErrors.HasCode(err, appErrors.ErrDuplicateEmail.Code) ||
		appErrors.HasCode(err, appErrors.ErrInUse.Code)
}
