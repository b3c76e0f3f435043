package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution matches every error produced while expanding paths.
	ErrResolution = errors.New("path resolution failed")

	// ErrEmptyInput indicates no input paths were given.
	ErrEmptyInput = errors.New("no input paths")

	// ErrNotFound indicates a literal path does not exist.
	ErrNotFound = errors.New("path does not exist")

	// ErrNoMatch indicates a glob pattern matched no files.
	ErrNoMatch = errors.New("glob pattern matched no files")

	// ErrListing indicates a remote listing request failed.
	ErrListing = errors.New("remote listing failed")

	// ErrUnsupportedScheme indicates a remote scheme without a listing backend.
	ErrUnsupportedScheme = errors.New("unsupported remote scheme")

	// ErrMixedLevels indicates inputs resolved to different partition depths.
	ErrMixedLevels = errors.New("inputs resolve to different directory levels")

	// ErrBadPattern indicates a malformed glob pattern.
	ErrBadPattern = errors.New("malformed glob pattern")
)

// Error describes a failed expansion step.
type Error struct {
	// Op is the failing step ("stat", "walk", "glob", "list", "resolve").
	Op string
	// Path is the input path being expanded, empty for request-level errors.
	Path string
	// Err is the underlying reason, usually one of the sentinel errors.
	Err error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("resolve %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("resolve %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrResolution.
func (e *Error) Is(target error) bool { return target == ErrResolution }
