package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/protocol/binaryproto"
)

func runEncode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	output := fs.String("o", "", "output frame file (required)")
	truncate := fs.Bool("truncate", false, "replace the file instead of appending")
	var rf recordFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return fmt.Errorf("encode: -o is required")
	}
	recs, err := rf.records(time.Now())
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	w, err := createFrames(*output, *truncate)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	codec := binaryproto.New()
	var written int
	for _, rec := range recs {
		if err := codec.WriteFrame(w, rec); err != nil {
			_ = w.Close()
			return fmt.Errorf("encode: write frame: %w", err)
		}
		written += binaryproto.FrameSize(rec)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %d %s frames (%d bytes) to %s\n", len(recs), protocol.DefaultName, written, *output)
	return nil
}
