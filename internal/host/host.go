// Package host runs one stream receiver per accepted TCP connection and logs
// every record it receives.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/logwire/internal/config"
	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/receiver"
	"github.com/danmuck/logwire/internal/record"
	"github.com/danmuck/logwire/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNotStarted = errors.New("host: not started")

// Host accepts producer connections and decodes their frames.
type Host struct {
	cfg    config.HostConfig
	logger zerolog.Logger

	mu      sync.Mutex
	handler receiver.Handler
	ln      net.Listener
	cancel  context.CancelFunc
	served  chan error

	connsMu sync.Mutex
	conns   map[string]net.Conn
	wg      sync.WaitGroup

	active  atomic.Int64
	records atomic.Uint64
}

var _ receiver.Receiver = (*Host)(nil)

type Option func(*Host)

// WithLogger replaces the process logger for connection and record lines.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

func New(cfg config.HostConfig, opts ...Option) *Host {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = config.DefaultHostConfig().ListenAddr
	}
	if strings.TrimSpace(cfg.Protocol) == "" {
		cfg.Protocol = protocol.DefaultName
	}
	h := &Host{
		cfg:    cfg,
		logger: log.Logger,
		conns:  make(map[string]net.Conn),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("host", cfg.Name).Logger()
	return h
}

// SetHandler adds a consumer called after each record is logged.
func (h *Host) SetHandler(fn receiver.Handler) {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
}

// Start listens on the configured address and serves until Stop or ctx is
// done.
func (h *Host) Start(ctx context.Context) error {
	if _, err := protocol.Lookup(h.cfg.Protocol); err != nil {
		return err
	}
	h.mu.Lock()
	if h.ln != nil {
		h.mu.Unlock()
		return fmt.Errorf("host: already started on %s", h.ln.Addr())
	}
	h.mu.Unlock()

	ln, err := transport.Listen(h.cfg.ListenAddr, h.cfg.Transport())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	served := make(chan error, 1)

	h.mu.Lock()
	h.ln, h.cancel, h.served = ln, cancel, served
	h.mu.Unlock()

	h.logger.Info().Str("addr", ln.Addr().String()).Str("protocol", h.cfg.Protocol).Msg("host listening")
	go func() {
		served <- h.Serve(ctx, ln)
	}()
	return nil
}

// Stop closes the listener and every connection, then waits for their
// receivers to exit.
func (h *Host) Stop() error {
	h.mu.Lock()
	cancel, served := h.cancel, h.served
	h.mu.Unlock()
	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	err := <-served
	served <- err
	return err
}

// Run starts the host and blocks until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return h.Stop()
}

// Addr returns the bound listener address, or nil before Start.
func (h *Host) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

// Active returns the number of open producer connections.
func (h *Host) Active() int64 {
	return h.active.Load()
}

// Records returns the number of records received across all connections.
func (h *Host) Records() uint64 {
	return h.records.Load()
}

// Serve accepts connections on ln until ctx is done. It returns nil on
// shutdown and the accept error otherwise.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		h.closeAllConns()
		_ = ln.Close()
	}()
	defer h.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		id := uuid.NewString()
		h.trackConn(id, conn)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handleConn(ctx, id, conn)
		}()
	}
}

func (h *Host) handleConn(ctx context.Context, id string, conn net.Conn) {
	defer conn.Close()
	defer h.untrackConn(id)

	logger := h.logger.With().Str("conn", id).Str("remote", conn.RemoteAddr().String()).Logger()
	active := h.active.Add(1)
	logger.Info().Int64("active", active).Msg("producer connected")

	proto, err := h.newProtocol(logger)
	if err != nil {
		h.active.Add(-1)
		logger.Error().Err(err).Msg("protocol unavailable")
		return
	}

	rcv := receiver.NewStream(proto, conn,
		receiver.WithSource("tcp"),
		receiver.WithFrameTimeout(h.cfg.FrameTimeout),
	)
	rcv.SetHandler(func(rec record.Record) {
		h.records.Add(1)
		logRecord(logger, rec)
		if fn := h.currentHandler(); fn != nil {
			fn(rec)
		}
	})
	err = rcv.Run(ctx)

	remaining := h.active.Add(-1)
	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.Uint64("records", rcv.Records()).Int64("active", remaining).Msg("producer disconnected")
}

// newProtocol builds a codec private to one connection, reporting through
// the connection logger.
func (h *Host) newProtocol(logger zerolog.Logger) (protocol.Protocol, error) {
	proto, err := protocol.Lookup(h.cfg.Protocol)
	if err != nil {
		return nil, err
	}
	if limiter, ok := proto.(protocol.BodyLimiter); ok && h.cfg.MaxBodyLen > 0 {
		limiter.SetMaxBodyLen(h.cfg.MaxBodyLen)
	}
	name := proto.Name()
	proto.SetReporter(func(msg string) {
		logger.Warn().Str("protocol", name).Msgf("[%s] %s", name, msg)
	})
	return proto, nil
}

func (h *Host) currentHandler() receiver.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler
}

func (h *Host) trackConn(id string, conn net.Conn) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	h.conns[id] = conn
}

func (h *Host) untrackConn(id string) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	delete(h.conns, id)
}

func (h *Host) closeAllConns() {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()
	for id, conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, id)
	}
}
