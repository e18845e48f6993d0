package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/logwire/internal/observability"
	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/protocol/stream"
)

var (
	ErrAlreadyStarted = errors.New("receiver: already started")
	ErrFrameTimeout   = errors.New("receiver: frame timeout")
)

// Stream end labels reported to metrics.
const (
	EndEOF     = "eof"
	EndStopped = "stopped"
	EndError   = "error"
	EndTimeout = "timeout"
)

// StreamReceiver decodes consecutive frames from one source until the source
// ends cleanly, the receiver is stopped, or a frame fails to decode. A failed
// frame leaves the stream misaligned, so decoding does not resume after it.
type StreamReceiver struct {
	proto        protocol.Protocol
	src          counter
	source       string
	frameTimeout time.Duration

	mu      sync.Mutex
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	records atomic.Uint64
}

var _ Receiver = (*StreamReceiver)(nil)

type Option func(*StreamReceiver)

// WithSource sets the metrics label for the stream. Defaults to "stream".
func WithSource(source string) Option {
	return func(r *StreamReceiver) {
		if source != "" {
			r.source = source
		}
	}
}

// WithFrameTimeout bounds the time from the first byte of a frame to its
// last. Zero waits forever. Idle time between frames is never bounded.
func WithFrameTimeout(d time.Duration) Option {
	return func(r *StreamReceiver) {
		if d > 0 {
			r.frameTimeout = d
		}
	}
}

func NewStream(proto protocol.Protocol, src io.Reader, opts ...Option) *StreamReceiver {
	r := &StreamReceiver{
		proto:   proto,
		src:     newCounter(src),
		source:  "stream",
		handler: nopHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StreamReceiver) SetHandler(h Handler) {
	if h == nil {
		h = nopHandler
	}
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// Start decodes in the background until Stop, ctx cancellation or the end of
// the stream. The outcome is available from Wait.
func (r *StreamReceiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		err := r.run(ctx)
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	}()
	return nil
}

// Stop cancels decoding and waits for the background loop to exit. It is
// safe to call more than once and before Start.
func (r *StreamReceiver) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Wait blocks until the loop started by Start exits and returns the decode
// or read error that ended it. A clean end of stream, Stop and cancellation
// return nil.
func (r *StreamReceiver) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Run is Start followed by Wait.
func (r *StreamReceiver) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}

// Records returns the number of records delivered so far.
func (r *StreamReceiver) Records() uint64 {
	return r.records.Load()
}

func (r *StreamReceiver) currentHandler() Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

func (r *StreamReceiver) run(ctx context.Context) error {
	end := observability.StreamOpened(r.source)
	name := r.proto.Name()
	for {
		start := r.src.Count()

		// Peek one byte so a source that closes between frames ends cleanly
		// instead of surfacing as an incomplete header.
		var first [1]byte
		n, err := stream.ReadExact(ctx, r.src, first[:])
		if err != nil {
			if ctx.Err() != nil {
				end(EndStopped)
				return nil
			}
			end(EndError)
			return fmt.Errorf("receiver: read: %w", err)
		}
		if n == 0 {
			end(EndEOF)
			return nil
		}

		frameCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.frameTimeout > 0 {
			frameCtx, cancel = context.WithTimeout(ctx, r.frameTimeout)
		}
		rec, err := r.proto.DecodeStream(frameCtx, stream.Prepend(first[:], r.src))
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				end(EndStopped)
				return nil
			case errors.Is(err, context.DeadlineExceeded):
				observability.RecordFrame(name, protocol.KindCancelled.String(), 0)
				end(EndTimeout)
				return fmt.Errorf("%w after %s", ErrFrameTimeout, r.frameTimeout)
			default:
				observability.RecordFrame(name, protocol.KindOf(err).String(), 0)
				end(EndError)
				return err
			}
		}

		observability.RecordFrame(name, observability.OutcomeOK, int(r.src.Count()-start))
		r.records.Add(1)
		r.currentHandler()(rec)
	}
}

type counter interface {
	io.Reader
	Count() int64
}

// newCounter wraps src to track consumed bytes. Deadline support of src
// stays visible to stream.ReadExact.
func newCounter(src io.Reader) counter {
	c := &countingReader{r: src}
	if dr, ok := src.(stream.DeadlineReader); ok {
		return &countingDeadline{countingReader: c, dr: dr}
	}
	return c
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) Count() int64 {
	return c.n.Load()
}

type countingDeadline struct {
	*countingReader
	dr stream.DeadlineReader
}

func (c *countingDeadline) SetReadDeadline(t time.Time) error {
	return c.dr.SetReadDeadline(t)
}
