// Package sender writes encoded records to a log host over TCP or TLS.
package sender

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/logwire/internal/protocol"
	_ "github.com/danmuck/logwire/internal/protocol/binaryproto"
	"github.com/danmuck/logwire/internal/record"
	"github.com/danmuck/logwire/internal/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired = errors.New("sender: host address required")
	ErrClosed          = errors.New("sender: closed")
)

type Config struct {
	Address  string
	Protocol string
	// MaxConnectAttempts bounds dial retries; zero retries until ctx ends.
	MaxConnectAttempts int
	Transport          transport.Config
}

func DefaultConfig() Config {
	return Config{
		Protocol:           protocol.DefaultName,
		MaxConnectAttempts: 5,
		Transport:          transport.DefaultConfig(),
	}
}

// Sender owns one connection to a host. Sends are serialized so frames never
// interleave on the wire.
type Sender struct {
	cfg   Config
	proto protocol.Protocol
	rng   *rand.Rand

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func New(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if strings.TrimSpace(cfg.Protocol) == "" {
		cfg.Protocol = protocol.DefaultName
	}
	proto, err := protocol.Lookup(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	cfg.Transport = cfg.Transport.WithDefaults()
	return &Sender{
		cfg:   cfg,
		proto: proto,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Connect dials the host, retrying with backoff. It is a no-op when a
// connection is already open.
func (s *Sender) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Sender) connectLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.conn != nil {
		return nil
	}
	var attempt int
	for {
		attempt++
		conn, err := transport.Dial(ctx, s.cfg.Address, s.cfg.Transport)
		if err == nil {
			s.conn = conn
			log.Debug().Str("addr", s.cfg.Address).Int("attempt", attempt).Msg("sender connected")
			return nil
		}
		log.Warn().Err(err).Str("addr", s.cfg.Address).Int("attempt", attempt).Msg("sender dial failed")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.shouldRetry(attempt) {
			return err
		}
		if err := transport.SleepBackoff(ctx, s.cfg.Transport.Backoff, attempt, s.rng); err != nil {
			return err
		}
	}
}

func (s *Sender) shouldRetry(attempt int) bool {
	if s.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < s.cfg.MaxConnectAttempts
}

// Send encodes rec as one frame and writes it, connecting first if needed.
// A failed write drops the connection so the next Send redials.
func (s *Sender) Send(ctx context.Context, rec record.Record) error {
	return s.write(ctx, s.proto.Encode(rec))
}

// SendAll writes recs back to back as one write.
func (s *Sender) SendAll(ctx context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	var buf []byte
	for _, rec := range recs {
		buf = append(buf, s.proto.Encode(rec)...)
	}
	return s.write(ctx, buf)
}

func (s *Sender) write(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectLocked(ctx); err != nil {
		return err
	}
	deadline := time.Now().Add(s.cfg.Transport.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	if _, err := s.conn.Write(frame); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Close closes the connection. Later sends fail with ErrClosed.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
