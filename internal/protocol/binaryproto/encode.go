package binaryproto

import (
	"io"

	"github.com/danmuck/logwire/internal/protocol/body"
	"github.com/danmuck/logwire/internal/protocol/frame"
	"github.com/danmuck/logwire/internal/record"
)

// BodySize is the encoded body length of rec.
func BodySize(rec record.Record) int {
	return body.TextSize(rec.Message) + body.TextSize(rec.Category) + 4 + 8
}

// FrameSize is the encoded frame length of rec.
func FrameSize(rec record.Record) int {
	return frame.HeaderLen + BodySize(rec)
}

// Encode returns rec as one frame. Any field values produce a frame; bodies
// above the decode bound are still written and rejected on decode.
func (c *Codec) Encode(rec record.Record) []byte {
	return AppendFrame(make([]byte, 0, FrameSize(rec)), rec)
}

// AppendFrame appends the frame for rec to dst.
func AppendFrame(dst []byte, rec record.Record) []byte {
	start := len(dst)
	dst = frame.AppendHeader(dst, frame.NewHeader(0))
	dst = body.AppendText(dst, rec.Message)
	dst = body.AppendText(dst, rec.Category)
	dst = body.AppendInt32(dst, rec.Level)
	dst = body.AppendInt64(dst, record.EncodeTime(rec.Timestamp))
	frame.PutHeader(dst[start:], frame.NewHeader(len(dst)-start-frame.HeaderLen))
	return dst
}

// WriteFrame writes the frame for rec to w in a single Write call.
func (c *Codec) WriteFrame(w io.Writer, rec record.Record) error {
	_, err := w.Write(c.Encode(rec))
	return err
}
