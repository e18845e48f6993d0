// Package receiver turns byte streams into records for a host.
package receiver

import (
	"context"

	"github.com/danmuck/logwire/internal/record"
)

// Handler consumes one decoded record.
type Handler func(rec record.Record)

// Receiver delivers records to its handler between Start and Stop.
type Receiver interface {
	SetHandler(h Handler)
	Start(ctx context.Context) error
	Stop() error
}

// Nop is the receiver used when nothing is configured. It never delivers.
type Nop struct {
	handler Handler
}

var _ Receiver = (*Nop)(nil)

func (n *Nop) SetHandler(h Handler) {
	n.handler = h
}

func (n *Nop) Start(context.Context) error { return nil }

func (n *Nop) Stop() error { return nil }

func nopHandler(record.Record) {}
