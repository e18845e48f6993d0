package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/logwire/internal/config"
	"github.com/danmuck/logwire/internal/host"
	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/record"
	"github.com/danmuck/logwire/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeThenDump(t *testing.T) {
	for _, name := range []string{"frames.bin", "frames.bin.zst"} {
		t.Run(name, func(t *testing.T) {
			testlog.Start(t)
			path := filepath.Join(t.TempDir(), name)
			var out bytes.Buffer

			require.NoError(t, run("encode", []string{
				"-o", path, "-message", "boot", "-category", "sys", "-level", "2",
				"-time", "2026-10-19T10:00:00Z", "-count", "2",
			}, nil, &out))
			assert.Contains(t, out.String(), "wrote 2 Binary frames")

			require.NoError(t, run("encode", []string{
				"-o", path, "-message", "halt", "-category", "sys", "-level", "5",
				"-time", "2026-10-19T10:05:00Z",
			}, nil, &out))

			out.Reset()
			require.NoError(t, run("dump", []string{path}, nil, &out))
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, "2026-10-19T10:00:00Z [info] sys: boot", lines[0])
			assert.Equal(t, lines[0], lines[1])
			assert.Equal(t, "2026-10-19T10:05:00Z [critical] sys: halt", lines[2])
		})
	}
}

func TestEncodeTruncate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "frames.bin")
	var out bytes.Buffer
	require.NoError(t, run("encode", []string{"-o", path, "-message", "a", "-count", "3"}, nil, &out))
	require.NoError(t, run("encode", []string{"-o", path, "-message", "b", "-truncate"}, nil, &out))

	out.Reset()
	require.NoError(t, run("dump", []string{path}, nil, &out))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestEncodeValidation(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	assert.ErrorContains(t, run("encode", []string{"-message", "x"}, nil, &out), "-o is required")
	path := filepath.Join(t.TempDir(), "frames.bin")
	assert.ErrorContains(t, run("encode", []string{"-o", path, "-count", "0"}, nil, &out), "count must be positive")
	assert.ErrorContains(t, run("encode", []string{"-o", path, "-time", "yesterday"}, nil, &out), "parse -time")
}

func TestDumpReportsBadFrame(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "frames.bin")
	var out bytes.Buffer
	require.NoError(t, run("encode", []string{"-o", path, "-message", "ok", "-count", "2"}, nil, &out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	second := len(data) / 2
	data[second+2] = 9
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out.Reset()
	err = run("dump", []string{path}, nil, &out)
	require.ErrorIs(t, err, protocol.ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), "after 1 records")
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestDumpStdin(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "frames.bin")
	var out bytes.Buffer
	require.NoError(t, run("encode", []string{"-o", path, "-message", "piped"}, nil, &out))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run("dump", []string{"-"}, bytes.NewReader(data), &out))
	assert.Contains(t, out.String(), "piped")
}

func TestUnknownCommand(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	assert.ErrorContains(t, run("replay", nil, nil, &out), "unknown command")
	require.NoError(t, run("help", nil, nil, &out))
	assert.Contains(t, out.String(), "usage: logwire")
}

func TestSendToHost(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultHostConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	h := host.New(cfg, host.WithLogger(zerolog.Nop()))
	got := make(chan record.Record, 8)
	h.SetHandler(func(rec record.Record) { got <- rec })
	require.NoError(t, h.Start(context.Background()))
	defer h.Stop()

	path := filepath.Join(t.TempDir(), "frames.bin.zst")
	var out bytes.Buffer
	require.NoError(t, run("encode", []string{"-o", path, "-message", "from-file", "-count", "2"}, nil, &out))

	addr := h.Addr().String()
	require.NoError(t, run("send", []string{"-addr", addr, "-message", "direct", "-level", "3"}, nil, &out))
	require.NoError(t, run("send", []string{"-addr", addr, "-input", path}, nil, &out))

	var messages []string
	for len(messages) < 3 {
		select {
		case rec := <-got:
			messages = append(messages, rec.Message)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %v", messages)
		}
	}
	assert.ElementsMatch(t, []string{"direct", "from-file", "from-file"}, messages)
}
