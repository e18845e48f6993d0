package binaryproto

import (
	"context"
	"errors"
	"io"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/protocol/frame"
	"github.com/danmuck/logwire/internal/protocol/stream"
	"github.com/danmuck/logwire/internal/record"
)

// DecodeBuffer decodes the frame at the start of data. Bytes past the
// declared body are ignored. The record never aliases data.
func (c *Codec) DecodeBuffer(data []byte) (record.Record, error) {
	if err := frame.CheckPrefix(data); err != nil {
		return record.Record{}, c.headerFailure(err)
	}
	h, err := frame.DecodeHeader(data[:frame.HeaderLen])
	if err != nil {
		return record.Record{}, c.headerFailure(err)
	}
	if err := h.Validate(c.limits); err != nil {
		return record.Record{}, c.headerFailure(err)
	}
	rest := data[frame.HeaderLen:]
	if len(rest) < int(h.BodyLen) {
		return record.Record{}, c.reportf(protocol.KindIncompleteBody, nil,
			"want %d bytes, have %d", h.BodyLen, len(rest))
	}
	return c.decodeBody(rest[:h.BodyLen])
}

// DecodeStream reads exactly one frame from r: the header, then the declared
// body, with no read-ahead. Cancellation of ctx is returned as ctx.Err()
// without being reported.
func (c *Codec) DecodeStream(ctx context.Context, r io.Reader) (record.Record, error) {
	var head [frame.HeaderLen]byte
	n, err := stream.ReadExact(ctx, r, head[:])
	if err != nil {
		return record.Record{}, c.readFailure(ctx, err, "header")
	}
	if n < frame.HeaderLen {
		var cause error
		if n == 0 {
			cause = io.EOF
		}
		return record.Record{}, c.reportf(protocol.KindIncompleteHeader, cause,
			"want %d bytes, got %d", frame.HeaderLen, n)
	}

	h, err := frame.DecodeHeader(head[:])
	if err != nil {
		return record.Record{}, c.headerFailure(err)
	}
	if err := h.Validate(c.limits); err != nil {
		return record.Record{}, c.headerFailure(err)
	}

	buf := make([]byte, h.BodyLen)
	n, err = stream.ReadExact(ctx, r, buf)
	if err != nil {
		return record.Record{}, c.readFailure(ctx, err, "body")
	}
	if n < len(buf) {
		return record.Record{}, c.reportf(protocol.KindIncompleteBody, io.ErrUnexpectedEOF,
			"want %d bytes, got %d", len(buf), n)
	}
	return c.decodeBody(buf)
}

func (c *Codec) readFailure(ctx context.Context, err error, part string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return c.reportf(protocol.KindReadFailure, err, "%s: %v", part, err)
}
