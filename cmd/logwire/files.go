package main

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}

type zstdFile struct {
	*zstd.Encoder
	f *os.File
}

func (z *zstdFile) Close() error {
	if err := z.Encoder.Close(); err != nil {
		_ = z.f.Close()
		return err
	}
	return z.f.Close()
}

// createFrames opens path for appending frames. Each call on a .zst file
// adds one zstd frame; readers decode the concatenation as one stream.
func createFrames(path string, truncate bool) (io.WriteCloser, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &zstdFile{Encoder: enc, f: f}, nil
}

type zstdReader struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdReader) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// openFrames opens path for reading frames, or stdin for "-".
func openFrames(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &zstdReader{Decoder: dec, f: f}, nil
}
