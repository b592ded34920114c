package interfaces

import "context"

// Device defines the public interface of a network-attached asset server.
type Device interface {
	// Start brings the station up and begins serving. It blocks until the
	// device is serving or bring-up failed.
	Start(ctx context.Context) error
	// Stop gracefully stops serving.
	Stop() error
	// Status returns the current operational status of the device.
	Status() (string, error)
}
