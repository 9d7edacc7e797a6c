package i2s

import (
	"errors"

	"github.com/harunnryd/parrot/pkg/errorsx"
)

var (
	// ErrConfig covers configurations the format contract or the platform
	// rejects (bad rate, width, slot mode, missing or invalid pin).
	ErrConfig = errors.New("i2s: invalid configuration")
	// ErrUnsupportedRate is returned by drivers that cannot clock the requested rate.
	ErrUnsupportedRate = errors.New("i2s: unsupported sample rate")
	// ErrInvalidPin is returned by drivers for pins outside the chip's range.
	ErrInvalidPin = errors.New("i2s: invalid pin")

	ErrAlreadyBound  = errors.New("i2s: resource already bound")
	ErrDirectionBusy = errors.New("i2s: opposite direction is live")

	ErrAlreadyEnabled = errors.New("i2s: handle already enabled")
	ErrNotEnabled     = errors.New("i2s: handle not enabled")
	ErrClosed         = errors.New("i2s: handle closed")

	// ErrTimeout means a hardware wait exceeded the transfer timeout. Drivers
	// return it (possibly wrapped) from Read and Write.
	ErrTimeout = errors.New("i2s: transfer timeout")
	// ErrHardware wraps every other driver fault.
	ErrHardware = errors.New("i2s: hardware fault")
)

var reasons = []struct {
	err    error
	reason errorsx.ReasonCode
}{
	{ErrTimeout, errorsx.ReasonI2STimeout},
	{ErrDirectionBusy, errorsx.ReasonI2SBusy},
	{ErrAlreadyBound, errorsx.ReasonI2SBound},
	{ErrAlreadyEnabled, errorsx.ReasonI2SEnable},
	{ErrNotEnabled, errorsx.ReasonI2SEnable},
	{ErrConfig, errorsx.ReasonI2SConfig},
	{ErrHardware, errorsx.ReasonI2SHardware},
}

// Reason names the I2S failure class of err for logs. The order matters: a
// stalled transfer is a timeout even when the driver also flagged a fault.
func Reason(err error) errorsx.ReasonCode {
	if err == nil {
		return errorsx.ReasonUnknown
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return errorsx.ReasonI2SHardware
}
