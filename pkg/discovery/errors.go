package discovery

import "errors"

var (
	// ErrInitialization is returned when the scanner cannot determine the local addresses
	ErrInitialization = errors.New("cannot find local IP address for the machine")
	// ErrNotInitialized is returned by Discover before a successful Initialize
	ErrNotInitialized = errors.New("network scanner is not initialized")
)
