package pkg

import "errors"

// Stub driver errors.
var (
	// ErrNoMemory indicates the pool could not satisfy an allocation.
	ErrNoMemory = errors.New("insufficient memory")

	// ErrNotFound indicates a lookup key matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured indicates the device has no active configuration.
	ErrNotConfigured = errors.New("device not configured")

	// ErrInvalidEndpoint indicates an endpoint address absent from the
	// active configuration.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)
