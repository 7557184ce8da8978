package update

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNoUpdate reports that every tracked category is already current.
// It is informational rather than a failure.
var ErrNoUpdate = errors.New("no update available")

// ErrBusy is returned when an operation starts while another is running.
var ErrBusy = errors.New("an update is already running")

// Failure kinds, matched with errors.Is against an *Error.
var (
	ErrNetwork    = errors.New("network failure")
	ErrExtraction = errors.New("extraction failure")
	ErrFilesystem = errors.New("filesystem failure")
)

// Error is a classified failure of one pipeline step.
type Error struct {
	Kind error // one of ErrNetwork, ErrExtraction, ErrFilesystem
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the failure kind in addition to the wrapped chain.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func networkError(op string, err error) error {
	return &Error{Kind: ErrNetwork, Op: op, Err: err}
}

func extractionError(op string, err error) error {
	return &Error{Kind: ErrExtraction, Op: op, Err: err}
}

func filesystemError(op string, err error) error {
	return &Error{Kind: ErrFilesystem, Op: op, Err: err}
}

// transferError classifies a download failure: local file errors are
// filesystem failures, everything else is a network failure.
func transferError(op string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return filesystemError(op, err)
	}
	return networkError(op, err)
}
