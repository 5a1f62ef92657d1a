package serial

import (
	"encoding/hex"
	"strings"
)

// Encoding determines how a frame payload is interpreted before
// transmission.
type Encoding string

const (
	// EncodingText transmits the payload bytes as-is.
	EncodingText Encoding = "text"
	// EncodingHex decodes the payload from hex pairs before transmission.
	EncodingHex Encoding = "hex"
)

// Frame is a single unit of bytes sent over the port in one write.
type Frame struct {
	Encoding Encoding
	Payload  []byte
}

// Bytes returns the raw bytes to transmit. For hex frames the payload
// is decoded first; malformed hex yields an EncodingError and nothing
// should be written.
func (f Frame) Bytes() ([]byte, error) {
	switch f.Encoding {
	case EncodingText, "":
		return f.Payload, nil
	case EncodingHex:
		return DecodeHex(string(f.Payload))
	default:
		return nil, newErrorf(KindInvalidArgument, "write", "unsupported encoding: %q", string(f.Encoding))
	}
}

// DecodeHex converts a hex-pair text representation into raw bytes.
// Whitespace between pairs is ignored.
func DecodeHex(input string) ([]byte, error) {
	filtered := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, input)

	if len(filtered)%2 != 0 {
		return nil, newError(KindEncodingError, "write", "hex input must have an even number of digits")
	}
	decoded, err := hex.DecodeString(filtered)
	if err != nil {
		return nil, &Error{Kind: KindEncodingError, Op: "write", Msg: "invalid hex digit", Err: err}
	}
	return decoded, nil
}

// EncodeHex renders bytes as space-separated upper-case hex pairs, the
// diagnostic form shown next to raw reads.
func EncodeHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(data) * 3)
	const digits = "0123456789ABCDEF"
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0f])
	}
	return b.String()
}
