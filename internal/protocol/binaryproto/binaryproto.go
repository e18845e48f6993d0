// Package binaryproto implements the Binary log protocol.
//
// A frame is a 7-byte header followed by the body:
//
//	[magic:2 = 0xABCD][version:1 = 1][body_len:4]
//	[message:text][category:text][level:4][timestamp:8]
//
// Integers are little-endian. Text is a 7-bit-group varint byte length
// followed by UTF-8 bytes. The timestamp uses record.EncodeTime.
package binaryproto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/protocol/body"
	"github.com/danmuck/logwire/internal/protocol/frame"
	"github.com/danmuck/logwire/internal/record"
)

// Name identifies the protocol in reports and the registry.
const Name = "Binary"

func init() {
	protocol.Register(Name, func() protocol.Protocol { return New() })
}

// Codec is the Binary protocol. The zero value is not usable; use New.
//
// The reporter is the only mutable state. SetReporter must not be called
// while decodes are running on the same Codec; use WithReporter to give each
// goroutine its own instance instead.
type Codec struct {
	reporter protocol.Reporter
	limits   frame.Limits
}

type Option func(*Codec)

// WithReporter sets the failure reporter at construction.
func WithReporter(fn protocol.Reporter) Option {
	return func(c *Codec) {
		if fn != nil {
			c.reporter = fn
		}
	}
}

// WithMaxBodyLen tightens the accepted body length. Values outside
// (0, frame.MaxBodyLen] fall back to frame.MaxBodyLen.
func WithMaxBodyLen(n int32) Option {
	return func(c *Codec) {
		c.limits = frame.Limits{MaxBodyLen: n}.Normalize()
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{
		reporter: protocol.DefaultReporter(Name),
		limits:   frame.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ protocol.Protocol    = (*Codec)(nil)
	_ protocol.BodyLimiter = (*Codec)(nil)
)

func (c *Codec) Name() string { return Name }

func (c *Codec) SetReporter(fn protocol.Reporter) {
	if fn == nil {
		fn = protocol.DefaultReporter(Name)
	}
	c.reporter = fn
}

// SetMaxBodyLen applies WithMaxBodyLen to an existing codec. Like
// SetReporter it must not race with in-flight decodes.
func (c *Codec) SetMaxBodyLen(n int32) {
	WithMaxBodyLen(n)(c)
}

// Limits returns the decode limits in effect.
func (c *Codec) Limits() frame.Limits {
	return c.limits
}

func (c *Codec) report(err *protocol.DecodeError) error {
	c.reporter(err.Error())
	return err
}

func (c *Codec) reportf(kind protocol.Kind, cause error, format string, args ...any) error {
	return c.report(protocol.Failure(kind, cause, format, args...))
}

var headerKinds = []struct {
	sentinel error
	kind     protocol.Kind
}{
	{frame.ErrInvalidMagic, protocol.KindInvalidMagic},
	{frame.ErrUnsupportedVersion, protocol.KindUnsupportedVersion},
	{frame.ErrIllegalBodyLen, protocol.KindIllegalBodyLength},
	{frame.ErrShortHeader, protocol.KindIncompleteHeader},
}

// headerFailure maps a frame header error onto the protocol taxonomy.
func (c *Codec) headerFailure(err error) error {
	for _, hk := range headerKinds {
		if errors.Is(err, hk.sentinel) {
			detail := strings.TrimPrefix(err.Error(), hk.sentinel.Error())
			detail = strings.TrimPrefix(detail, ": ")
			return c.report(&protocol.DecodeError{Kind: hk.kind, Detail: detail})
		}
	}
	return c.reportf(protocol.KindMalformedField, err, "header: %v", err)
}

// parseBody decodes the record fields in wire order. Bytes after the
// timestamp are ignored.
func parseBody(b []byte) (record.Record, error) {
	r := body.NewReader(b)
	message, err := r.ReadText()
	if err != nil {
		return record.Record{}, fmt.Errorf("message: %w", err)
	}
	category, err := r.ReadText()
	if err != nil {
		return record.Record{}, fmt.Errorf("category: %w", err)
	}
	level, err := r.ReadInt32()
	if err != nil {
		return record.Record{}, fmt.Errorf("level: %w", err)
	}
	ts, err := r.ReadInt64()
	if err != nil {
		return record.Record{}, fmt.Errorf("timestamp: %w", err)
	}
	return record.Record{
		Message:   message,
		Category:  category,
		Level:     level,
		Timestamp: record.DecodeTime(ts),
	}, nil
}

func (c *Codec) decodeBody(b []byte) (record.Record, error) {
	rec, err := parseBody(b)
	if err != nil {
		return record.Record{}, c.reportf(protocol.KindMalformedField, err, "%v", err)
	}
	return rec, nil
}
