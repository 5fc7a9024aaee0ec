package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorParse marks malformed field input the user can correct.
	ErrorParse ErrorCode = "PARSE_ERROR"
	// ErrorNotFound marks a referenced entity that could not be resolved.
	ErrorNotFound ErrorCode = "NOT_FOUND"
	// ErrorInsufficientStock marks a sale line exceeding available stock.
	ErrorInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"
	// ErrorTransport marks a failed or timed-out external call.
	ErrorTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrorInvalidInput marks an unusable inbound message.
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorInternal marks everything unexpected; detail is logged, never
	// surfaced to the correspondent.
	ErrorInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is the pipeline-wide error shape. Subject names the offending
// entity or field for user-facing messages (an unresolved customer, an
// out-of-stock item).
type Error struct {
	Code    ErrorCode
	Reason  string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func newSubjectError(code ErrorCode, reason, subject string) *Error {
	return &Error{Code: code, Reason: reason, Subject: subject}
}
