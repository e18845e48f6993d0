package stream

import (
	"context"
	"errors"
	"io"
	"time"
)

const (
	// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
	maxEmptyReads = 100
	// maxScratch caps the helper buffer used for sources without deadlines.
	maxScratch = 64 << 10
)

// DeadlineReader is a source whose blocked reads can be interrupted, such as
// net.Conn or *os.File pipes.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// ReadExact keeps reading into buf until it is full or r reports io.EOF,
// and returns the number of bytes obtained. A short count with a nil error
// means the source ended early.
//
// ctx is checked before every read request. A read blocked in r is abandoned
// once ctx is done: deadline-capable sources get an expired deadline, other
// sources are read on a helper goroutine into private scratch memory, so buf
// is never written after ReadExact returns. An abandoned helper lingers until
// its pending Read returns; r must not be reused after a cancelled call.
//
// Errors are ctx.Err() on cancellation, io.ErrNoProgress on a stalled source,
// or any non-EOF error from r.
func ReadExact(ctx context.Context, r io.Reader, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ctx.Err()
	}
	if ctx.Done() == nil {
		return readLoop(ctx, buf, r.Read)
	}
	if dr, ok := r.(DeadlineReader); ok {
		return readDeadline(ctx, dr, buf)
	}
	ar := &asyncReader{ctx: ctx, r: r, scratch: make([]byte, min(len(buf), maxScratch))}
	return readLoop(ctx, buf, ar.read)
}

// readDeadline interrupts dr with an expired deadline when ctx ends. If that
// fires after the last read already succeeded, the deadline is cleared again
// so the next read on dr is not failed by a finished call.
func readDeadline(ctx context.Context, dr DeadlineReader, buf []byte) (int, error) {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = dr.SetReadDeadline(time.Unix(1, 0))
		close(fired)
	})
	n, err := readLoop(ctx, buf, dr.Read)
	if !stop() && err == nil {
		<-fired
		_ = dr.SetReadDeadline(time.Time{})
	}
	return n, err
}

func readLoop(ctx context.Context, buf []byte, read func([]byte) (int, error)) (int, error) {
	n := 0
	empty := 0
	for n < len(buf) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m, err := read(buf[n:])
		n += m
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return n, ctxErr
			}
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if m > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxEmptyReads {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}

type readResult struct {
	n   int
	err error
}

// asyncReader turns one blocking Read into a cancellable request.
type asyncReader struct {
	ctx     context.Context
	r       io.Reader
	scratch []byte
}

func (a *asyncReader) read(p []byte) (int, error) {
	if len(p) > len(a.scratch) {
		p = p[:len(a.scratch)]
	}
	scratch := a.scratch[:len(p)]
	done := make(chan readResult, 1)
	go func() {
		n, err := a.r.Read(scratch)
		done <- readResult{n: n, err: err}
	}()
	select {
	case res := <-done:
		copy(p, scratch[:res.n])
		return res.n, res.err
	case <-a.ctx.Done():
		return 0, a.ctx.Err()
	}
}

// Prepend returns a reader that yields prefix before reading from r. When r
// supports read deadlines so does the result.
func Prepend(prefix []byte, r io.Reader) io.Reader {
	p := &prefixed{prefix: prefix, r: r}
	if dr, ok := r.(DeadlineReader); ok {
		return &prefixedDeadline{prefixed: p, dr: dr}
	}
	return p
}

type prefixed struct {
	prefix []byte
	r      io.Reader
}

func (p *prefixed) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.r.Read(b)
}

type prefixedDeadline struct {
	*prefixed
	dr DeadlineReader
}

func (p *prefixedDeadline) SetReadDeadline(t time.Time) error {
	return p.dr.SetReadDeadline(t)
}
