package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailure marks a failed data source load. It is the only fatal
	// error; the renderer shows the error placeholder when it happens.
	ErrLoadFailure = errors.New("failed to load items")
	// ErrFailed is returned by operations on an engine whose start failed.
	ErrFailed = errors.New("engine failed to start")
	// ErrNotStarted is returned by operations before Start succeeds.
	ErrNotStarted = errors.New("engine not started")
	// ErrClosed is returned by operations after Close.
	ErrClosed = errors.New("engine closed")
	// ErrUnknownField is returned when a toggle names an undeclared field.
	ErrUnknownField = errors.New("unknown field")
)

// LoadError describes a failed load.
type LoadError struct {
	Source string
	// Status is the HTTP status code for HTTP sources, or zero.
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s from %s: %v", ErrLoadFailure, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrLoadFailure.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}
