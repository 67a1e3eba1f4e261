package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileType is returned for an unknown file-type tag, before any I/O.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrUnsupportedBackend is returned by the factories for an unknown backend tag.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrIteratorExhausted is returned by Next after HasNext reported false.
	ErrIteratorExhausted = errors.New("iterator exhausted")

	// ErrBlankDocument marks an item whose parsed text is empty.
	ErrBlankDocument = errors.New("blank document")

	// ErrClosed is returned when an iterator or cursor is used after Close.
	ErrClosed = errors.New("already closed")
)

// BlankDocumentError is recoverable: the item is skipped and the scan goes on.
type BlankDocumentError struct {
	Key string
}

func (e *BlankDocumentError) Error() string {
	return fmt.Sprintf("blank document: %s", e.Key)
}

func (e *BlankDocumentError) Is(target error) bool {
	return target == ErrBlankDocument
}

// ParseError fails one item. The scan continues and the error is reported with the page.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BackendError aborts the whole scan.
type BackendError struct {
	Backend string
	Path    string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err unless it already carries backend context.
func NewBackendError(backend, path string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Backend: backend, Path: path, Err: err}
}

func UnsupportedFileType(tag string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedFileType, tag)
}

func UnsupportedBackend(tag string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedBackend, tag)
}

// Severity tells the paging layer what to do with an error.
type Severity int

const (
	SeverityNone Severity = iota
	// SeveritySkip drops the item silently.
	SeveritySkip
	// SeverityItem reports the item as failed and keeps scanning.
	SeverityItem
	// SeverityFatal aborts the scan.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeveritySkip:
		return "skip"
	case SeverityItem:
		return "item"
	default:
		return "fatal"
	}
}

// Classify maps err to a Severity. Anything unrecognised is fatal.
func Classify(err error) Severity {
	if err == nil {
		return SeverityNone
	}
	if errors.Is(err, ErrBlankDocument) {
		return SeveritySkip
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return SeverityItem
	}
	return SeverityFatal
}

func IsBlankDocument(err error) bool {
	return errors.Is(err, ErrBlankDocument)
}

func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
