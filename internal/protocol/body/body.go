package body

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Text fields are prefixed with their byte length as an unsigned 7-bit-group
// varint (low group first, high bit set on every byte but the last). The
// prefix is at most five bytes and never exceeds math.MaxInt32.
const MaxPrefixLen = 5

var (
	ErrShortPrefix    = errors.New("body: short length prefix")
	ErrPrefixOverflow = errors.New("body: length prefix overflow")
	ErrShortText      = errors.New("body: short text value")
	ErrShortInt       = errors.New("body: short integer value")
)

// TextSize is the encoded size of s including its prefix.
func TextSize(s string) int {
	return prefixSize(uint64(len(s))) + len(s)
}

func prefixSize(n uint64) int {
	size := 1
	for n >= 0x80 {
		n >>= 7
		size++
	}
	return size
}

func AppendText(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func AppendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func AppendInt64(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

// Reader walks body fields in order with explicit bounds checks. It never
// reads past the slice it was given.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// ReadText reads one length-prefixed text field. The returned string does
// not alias the underlying buffer.
func (r *Reader) ReadText() (string, error) {
	rest := r.buf[r.off:]
	limit := rest
	if len(limit) > MaxPrefixLen {
		limit = limit[:MaxPrefixLen]
	}
	n, used := binary.Uvarint(limit)
	switch {
	case used == 0 && len(limit) == MaxPrefixLen:
		return "", fmt.Errorf("%w: more than %d prefix bytes", ErrPrefixOverflow, MaxPrefixLen)
	case used == 0:
		return "", fmt.Errorf("%w at offset %d", ErrShortPrefix, r.off)
	case used < 0:
		return "", fmt.Errorf("%w at offset %d", ErrPrefixOverflow, r.off)
	case n > math.MaxInt32:
		return "", fmt.Errorf("%w: length %d", ErrPrefixOverflow, n)
	}
	start := r.off + used
	if uint64(len(r.buf)-start) < n {
		return "", fmt.Errorf("%w: want %d bytes, have %d", ErrShortText, n, len(r.buf)-start)
	}
	end := start + int(n)
	s := string(r.buf[start:end])
	r.off = end
	return s, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: want 4 bytes, have %d", ErrShortInt, r.Remaining())
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	if r.Remaining() < 8 {
		return 0, fmt.Errorf("%w: want 8 bytes, have %d", ErrShortInt, r.Remaining())
	}
	v := int64(binary.LittleEndian.Uint64(r.buf[r.off : r.off+8]))
	r.off += 8
	return v, nil
}
