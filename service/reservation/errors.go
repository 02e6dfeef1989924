package reservation

import "errors"

// errors used by controllers

type ErrCode string

const (
	ErrValidation      ErrCode = "VALIDATION"
	ErrConflict        ErrCode = "CONFLICT"
	ErrPermission      ErrCode = "PERMISSION"
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrItemUnavailable ErrCode = "ITEM_UNAVAILABLE"
	ErrNotFound        ErrCode = "NOT_FOUND"

	// ErrLostRace means a CAS-guarded transition found the row already
	// changed by a concurrent writer. Retryable by the caller.
	ErrLostRace ErrCode = "LOST_RACE"
)

type codedError struct {
	code      ErrCode
	msg       string
	blockedBy string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// BlockedBy returns the username of the reservation owner that caused a
// CONFLICT error, for user-facing feedback.
func BlockedBy(err error) string {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.blockedBy
	}
	return ""
}
