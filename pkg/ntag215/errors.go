package ntag215

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide whether an error is
// fatal to an operation or only to a single file.
type ErrorKind int

const (
	KindKeyLoad    ErrorKind = iota + 1 // key material missing, corrupt or wrong size
	KindFormat                          // text capture header or page line malformed
	KindSize                            // image is not ImageSize bytes
	KindHMAC                            // oracle reported an invalid signature
	KindValidation                      // malformed UID or character id input
	KindIO                              // file missing or unwritable
)

func (k ErrorKind) String() string {
	switch k {
	case KindKeyLoad:
		return "key load"
	case KindFormat:
		return "format"
	case KindSize:
		return "size"
	case KindHMAC:
		return "hmac"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "decode nfc"
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", msg, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func pathError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKeyLoadError checks if an error is a key material error.
func IsKeyLoadError(err error) bool { return KindOf(err) == KindKeyLoad }

// IsFormatError checks if an error is a text capture format error.
func IsFormatError(err error) bool { return KindOf(err) == KindFormat }

// IsSizeError checks if an error is an image size error.
func IsSizeError(err error) bool { return KindOf(err) == KindSize }

// IsHMACError checks if an error is an invalid signature error.
func IsHMACError(err error) bool { return KindOf(err) == KindHMAC }

// IsValidationError checks if an error is an input validation error.
func IsValidationError(err error) bool { return KindOf(err) == KindValidation }

// IsIOError checks if an error is a file I/O error.
func IsIOError(err error) bool { return KindOf(err) == KindIO }
