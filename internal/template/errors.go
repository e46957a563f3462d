package template

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTemplate is returned by reads before the first publish.
	ErrNoTemplate = errors.New("no block template published yet")
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("template cache is closed")
)

// InitError reports a failure to create, size, map or validate the shared region.
type InitError struct {
	Path string
	Op   string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init template cache %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// WriteError reports a template field that does not fit into the shared region.
type WriteError struct {
	Field    string
	Size     int
	Capacity int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write template cache: %s is %d bytes, capacity %d", e.Field, e.Size, e.Capacity)
}
