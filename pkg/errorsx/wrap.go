package errorsx

import (
	"errors"
	"log/slog"
)

// ReasonedError wraps an error with a reason code.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// Wrap attaches a reason code to an error (no-op if err is nil or already reasoned).
// The innermost reason wins so the code names the layer that failed first.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Classify picks the reason of the first sentinel that err matches and wraps
// err with it. Unmatched errors get fallback.
func Classify(err error, fallback ReasonCode, table map[error]ReasonCode) error {
	if err == nil {
		return nil
	}
	for target, reason := range table {
		if errors.Is(err, target) {
			return Wrap(err, reason)
		}
	}
	return Wrap(err, fallback)
}

// Reason extracts a reason code from an error, if present.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason returns true if err contains the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

// LogAttr renders the reason of err as the "reason_code" log attribute.
func LogAttr(err error) slog.Attr {
	return slog.String("reason_code", string(Reason(err)))
}
