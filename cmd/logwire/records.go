package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/logwire/internal/record"
)

// recordFlags are shared by encode and send.
type recordFlags struct {
	message  string
	category string
	level    int
	at       string
	count    int
}

func (f *recordFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.message, "message", "", "record message")
	fs.StringVar(&f.category, "category", "logwire", "record category")
	fs.IntVar(&f.level, "level", int(record.LevelInformation), "record level (0 trace .. 6 none)")
	fs.StringVar(&f.at, "time", "", "record timestamp, RFC3339 (default now)")
	fs.IntVar(&f.count, "count", 1, "number of frames to write")
}

func (f *recordFlags) records(now time.Time) ([]record.Record, error) {
	if f.count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", f.count)
	}
	at := now
	if raw := strings.TrimSpace(f.at); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse -time: %w", err)
		}
		at = t
	}
	out := make([]record.Record, f.count)
	for i := range out {
		out[i] = record.New(f.message, f.category, int32(f.level), at)
	}
	return out, nil
}
