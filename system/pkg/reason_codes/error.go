package reasoncodes

import (
	"errors"
	"net/http"
)

// Error is a sentinel error tagged with a reason code. Two Errors match under
// errors.Is when their codes are equal.
type Error struct {
	Code ReasonCode
	Msg  string
}

func New(code ReasonCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the first reason code found in err's chain.
func CodeOf(err error) (ReasonCode, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return "", false
}

// Classify returns the reason code for err. Errors without a code are treated
// as infrastructure failures.
func Classify(err error) (ReasonCode, Category) {
	code, ok := CodeOf(err)
	if !ok {
		return "", CategoryInfrastructure
	}
	return code, code.Category()
}

// IsRetryable reports whether err is worth retrying unchanged. Uncoded errors
// count as infrastructure failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	code, category := Classify(err)
	if code == "" {
		return category == CategoryInfrastructure
	}
	return code.Retryable()
}

func HttpStatus(err error) int {
	code, category := Classify(err)
	switch category {
	case CategoryEncoding:
		return http.StatusBadRequest
	case CategorySemantic:
		return http.StatusUnprocessableEntity
	case CategoryState:
		if code == RecordNotFound || code == UnknownOffset {
			return http.StatusNotFound
		}
		if code == OpenerMismatch {
			return http.StatusForbidden
		}
		return http.StatusConflict
	case CategoryEngine:
		return http.StatusServiceUnavailable
	}
	if code == DispatchError {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
