package protocol

import (
	"context"
	"io"

	"github.com/danmuck/logwire/internal/record"
	"github.com/rs/zerolog/log"
)

// Protocol encodes and decodes log records in one wire format.
//
// Decode failures are passed to the protocol's Reporter and returned as
// *DecodeError. Cancellation of DecodeStream is returned as the context
// error and is never reported. A single source must not be shared by
// concurrent DecodeStream calls.
type Protocol interface {
	Name() string
	Encode(rec record.Record) []byte
	DecodeBuffer(data []byte) (record.Record, error)
	DecodeStream(ctx context.Context, r io.Reader) (record.Record, error)
	// SetReporter replaces the failure reporter; nil restores the default.
	// It must not race with in-flight decodes on the same instance.
	SetReporter(fn Reporter)
}

// Reporter receives one human-readable line per decode failure.
type Reporter func(msg string)

// DefaultReporter logs "[name] msg" at warn level through the process logger.
func DefaultReporter(name string) Reporter {
	return func(msg string) {
		log.Warn().Str("protocol", name).Msgf("[%s] %s", name, msg)
	}
}

// BodyLimiter is implemented by protocols whose accepted frame size can be
// tightened after construction.
type BodyLimiter interface {
	SetMaxBodyLen(n int32)
}
