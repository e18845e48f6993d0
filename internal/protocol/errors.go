package protocol

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a decode failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidMagic
	KindUnsupportedVersion
	KindIllegalBodyLength
	KindIncompleteHeader
	KindIncompleteBody
	KindMalformedField
	KindReadFailure
	KindCancelled
)

var (
	ErrInvalidMagic       = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrIllegalBodyLength  = errors.New("protocol: illegal body length")
	ErrIncompleteHeader   = errors.New("protocol: incomplete header")
	ErrIncompleteBody     = errors.New("protocol: incomplete body")
	ErrMalformedField     = errors.New("protocol: malformed field")
	ErrReadFailure        = errors.New("protocol: read failure")
	ErrUnknownProtocol    = errors.New("protocol: unknown protocol")
)

var kindInfo = map[Kind]struct {
	name     string
	reason   string
	sentinel error
}{
	KindInvalidMagic:       {"InvalidMagic", "invalid magic", ErrInvalidMagic},
	KindUnsupportedVersion: {"UnsupportedVersion", "unsupported version", ErrUnsupportedVersion},
	KindIllegalBodyLength:  {"IllegalBodyLength", "illegal body length", ErrIllegalBodyLength},
	KindIncompleteHeader:   {"IncompleteHeader", "incomplete header", ErrIncompleteHeader},
	KindIncompleteBody:     {"IncompleteBody", "truncated data", ErrIncompleteBody},
	KindMalformedField:     {"MalformedField", "decode exception", ErrMalformedField},
	KindReadFailure:        {"ReadFailure", "read failure", ErrReadFailure},
	KindCancelled:          {"Cancelled", "cancelled", context.Canceled},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return "Unknown"
}

// Reason is the human-readable prefix reported for k.
func (k Kind) Reason() string {
	if info, ok := kindInfo[k]; ok {
		return info.reason
	}
	return "unknown failure"
}

// Sentinel returns the package error matched by errors.Is for k.
func (k Kind) Sentinel() error {
	if info, ok := kindInfo[k]; ok {
		return info.sentinel
	}
	return nil
}

// DecodeError is a reported decode failure. It matches its kind's sentinel
// and, when set, the underlying cause.
type DecodeError struct {
	Kind   Kind
	Detail string
	Err    error
}

// Failure builds a DecodeError for kind with a formatted detail.
func Failure(kind Kind, cause error, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: cause}
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return e.Kind.Reason()
	}
	return e.Kind.Reason() + ": " + e.Detail
}

func (e *DecodeError) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.Sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf classifies err. Context cancellation and deadline expiry are
// KindCancelled; errors that are not decode failures are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsCancelled reports whether err ended a decode by cancellation rather than
// by bad data.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}
