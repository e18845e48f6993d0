package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/receiver"
	"github.com/danmuck/logwire/internal/record"
	"github.com/danmuck/logwire/internal/sender"
	"github.com/danmuck/logwire/internal/transport"
)

func runSend(args []string, stdin io.Reader) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	cfg := sender.DefaultConfig()
	fs.StringVar(&cfg.Address, "addr", "127.0.0.1:7400", "logwired address")
	fs.IntVar(&cfg.MaxConnectAttempts, "attempts", cfg.MaxConnectAttempts, "dial attempts, 0 retries forever")
	input := fs.String("input", "", "forward the records of a frame file instead of -message")
	var tc transport.TLSConfig
	fs.StringVar(&tc.CAFile, "tls-ca", "", "CA bundle trusted for the host certificate (enables TLS)")
	fs.StringVar(&tc.CertFile, "tls-cert", "", "client certificate for mutual TLS")
	fs.StringVar(&tc.KeyFile, "tls-key", "", "client key for mutual TLS")
	fs.StringVar(&tc.ServerName, "tls-server-name", "", "expected host certificate name")
	var rf recordFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if tc.CAFile != "" || tc.CertFile != "" {
		tc.Enabled = true
		tc.Mutual = tc.CertFile != ""
	}
	cfg.Transport.TLS = tc

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recs []record.Record
	var err error
	if *input != "" {
		recs, err = readFrames(ctx, *input, stdin)
	} else {
		recs, err = rf.records(time.Now())
	}
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	s, err := sender.New(cfg)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer s.Close()
	if err := s.SendAll(ctx, recs); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func readFrames(ctx context.Context, path string, stdin io.Reader) ([]record.Record, error) {
	src, err := openFrames(path, stdin)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	p, err := protocol.Default()
	if err != nil {
		return nil, err
	}
	var recs []record.Record
	rcv := receiver.NewStream(p, src, receiver.WithSource("send"))
	rcv.SetHandler(func(rec record.Record) { recs = append(recs, rec) })
	if err := rcv.Run(ctx); err != nil {
		return nil, err
	}
	return recs, nil
}
