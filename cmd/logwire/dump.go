package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/receiver"
	"github.com/danmuck/logwire/internal/record"
)

func runDump(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	proto := fs.String("protocol", protocol.DefaultName, "frame protocol")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("dump: expected one FILE argument")
	}
	p, err := protocol.Lookup(*proto)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	src, err := openFrames(fs.Arg(0), stdin)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rcv := receiver.NewStream(p, src, receiver.WithSource("dump"))
	rcv.SetHandler(func(rec record.Record) {
		fmt.Fprintln(stdout, rec.String())
	})
	if err := rcv.Run(ctx); err != nil {
		return fmt.Errorf("dump: after %d records: %w", rcv.Records(), err)
	}
	return nil
}
