package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed header layout: [magic:2][version:1][body_len:4], little-endian.
const (
	HeaderLen = 7

	Magic   uint16 = 0xABCD
	Version uint8  = 1

	// MaxBodyLen bounds the declared body length (10 MiB).
	MaxBodyLen int32 = 10 * 1024 * 1024
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrIllegalBodyLen     = errors.New("frame: illegal body length")
)

// Header is the fixed wire header.
type Header struct {
	Magic   uint16
	Version uint8
	BodyLen int32
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxBodyLen int32
}

func DefaultLimits() Limits {
	return Limits{MaxBodyLen: MaxBodyLen}
}

// Normalize clamps l into the range the wire format allows.
func (l Limits) Normalize() Limits {
	if l.MaxBodyLen <= 0 || l.MaxBodyLen > MaxBodyLen {
		l.MaxBodyLen = MaxBodyLen
	}
	return l
}

// NewHeader returns the current-version header for a body of n bytes.
func NewHeader(n int) Header {
	return Header{Magic: Magic, Version: Version, BodyLen: int32(n)}
}

func EncodeHeader(h Header) []byte {
	return AppendHeader(make([]byte, 0, HeaderLen), h)
}

func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, h.Magic)
	dst = append(dst, h.Version)
	return binary.LittleEndian.AppendUint32(dst, uint32(h.BodyLen))
}

// PutHeader writes h into the first HeaderLen bytes of b.
func PutHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint16(b[0:2], h.Magic)
	b[2] = h.Version
	binary.LittleEndian.PutUint32(b[3:7], uint32(h.BodyLen))
}

// DecodeHeader parses a complete fixed header without validating it.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortHeader, len(b), HeaderLen)
	}
	return Header{
		Magic:   binary.LittleEndian.Uint16(b[0:2]),
		Version: b[2],
		BodyLen: int32(binary.LittleEndian.Uint32(b[3:7])),
	}, nil
}

// CheckPrefix validates whatever part of the header b holds: magic once two
// bytes are present, version once three are. A valid but short prefix yields
// ErrShortHeader.
func CheckPrefix(b []byte) error {
	if len(b) >= 2 {
		if magic := binary.LittleEndian.Uint16(b[0:2]); magic != Magic {
			return magicError(magic)
		}
	}
	if len(b) >= 3 && b[2] != Version {
		return versionError(b[2])
	}
	if len(b) < HeaderLen {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortHeader, len(b), HeaderLen)
	}
	return nil
}

// Validate checks magic, version and the body length bound, in that order.
func (h Header) Validate(limits Limits) error {
	if h.Magic != Magic {
		return magicError(h.Magic)
	}
	if h.Version != Version {
		return versionError(h.Version)
	}
	limits = limits.Normalize()
	if h.BodyLen <= 0 || h.BodyLen > limits.MaxBodyLen {
		return fmt.Errorf("%w: %d, max %d", ErrIllegalBodyLen, h.BodyLen, limits.MaxBodyLen)
	}
	return nil
}

func magicError(got uint16) error {
	return fmt.Errorf("%w: 0x%04X, want 0x%04X", ErrInvalidMagic, got, Magic)
}

func versionError(got uint8) error {
	return fmt.Errorf("%w: %d, want %d", ErrUnsupportedVersion, got, Version)
}
