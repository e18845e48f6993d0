package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	in := NewHeader(1234)
	buf := EncodeHeader(in)
	if len(buf) != HeaderLen {
		t.Fatalf("header length: got %d want %d", len(buf), HeaderLen)
	}
	out, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if out != in {
		t.Fatalf("header mismatch: got=%+v want=%+v", out, in)
	}
	if err := out.Validate(DefaultLimits()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestHeaderWireLayoutIsLittleEndian(t *testing.T) {
	got := EncodeHeader(NewHeader(0x01020304))
	want := []byte{0xCD, 0xAB, 0x01, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("wire layout: got % X want % X", got, want)
	}

	put := make([]byte, HeaderLen)
	PutHeader(put, NewHeader(0x01020304))
	if !bytes.Equal(put, want) {
		t.Fatalf("put layout: got % X want % X", put, want)
	}
}

func TestDecodeHeaderShortIsDeterministic(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		want error
	}{
		{"bad magic wins over bad version", Header{Magic: 0x1234, Version: 9, BodyLen: 0}, ErrInvalidMagic},
		{"bad version wins over bad length", Header{Magic: Magic, Version: 2, BodyLen: 0}, ErrUnsupportedVersion},
		{"zero length", Header{Magic: Magic, Version: Version, BodyLen: 0}, ErrIllegalBodyLen},
		{"negative length", Header{Magic: Magic, Version: Version, BodyLen: -5}, ErrIllegalBodyLen},
		{"over max", Header{Magic: Magic, Version: Version, BodyLen: MaxBodyLen + 1}, ErrIllegalBodyLen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate(DefaultLimits())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateAcceptsMaxBody(t *testing.T) {
	if err := NewHeader(int(MaxBodyLen)).Validate(DefaultLimits()); err != nil {
		t.Fatalf("max body rejected: %v", err)
	}
}

func TestValidateRespectsTighterLimit(t *testing.T) {
	err := NewHeader(2048).Validate(Limits{MaxBodyLen: 1024})
	if !errors.Is(err, ErrIllegalBodyLen) {
		t.Fatalf("expected ErrIllegalBodyLen, got %v", err)
	}
}

func TestLimitsNormalizeClampsToWireMax(t *testing.T) {
	if got := (Limits{MaxBodyLen: MaxBodyLen * 2}).Normalize().MaxBodyLen; got != MaxBodyLen {
		t.Fatalf("expected clamp to %d, got %d", MaxBodyLen, got)
	}
	if got := (Limits{}).Normalize().MaxBodyLen; got != MaxBodyLen {
		t.Fatalf("expected zero limit to default, got %d", got)
	}
}

func TestCheckPrefix(t *testing.T) {
	if err := CheckPrefix([]byte{0x12, 0x34}); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
	if err := CheckPrefix([]byte{0xCD, 0xAB, 0x02}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if err := CheckPrefix([]byte{0xCD, 0xAB, 0x01, 0x05}); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	if err := CheckPrefix([]byte{0xCD}); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader for one byte, got %v", err)
	}
	if err := CheckPrefix(EncodeHeader(NewHeader(1))); err != nil {
		t.Fatalf("full header rejected: %v", err)
	}
}
