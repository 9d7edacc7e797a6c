package i2s

import "time"

// Driver is the platform side of the interface. Configure programs the
// peripheral for one direction and returns the channel that moves the data.
// Drivers report rejected settings with an error wrapping ErrUnsupportedRate,
// ErrInvalidPin or ErrConfig.
type Driver interface {
	Configure(dir Direction, cfg Config) (Channel, error)
}

// Channel is one configured direction of the peripheral.
//
// Read and Write block until they have moved at least one DMA chunk, or until
// timeout passes without progress, in which case they return the bytes moved
// so far and an error wrapping ErrTimeout. They may move fewer bytes than
// len(p) without error; callers loop.
type Channel interface {
	Enable() error
	Disable() error
	Read(p []byte, timeout time.Duration) (int, error)
	Write(p []byte, timeout time.Duration) (int, error)
	Close() error
}
