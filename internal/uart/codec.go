package uart

import (
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Reader reads protocol primitives from an underlying stream. Every method
// blocks until all of its bytes have been read or the stream fails.
type Reader struct {
	r   io.Reader
	buf [1]byte
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadByte reads exactly one byte.
func (r *Reader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadUint16 reads a 16-bit value sent low byte first.
func (r *Reader) ReadUint16() (uint16, error) {
	low, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	high, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(high)<<8 | uint16(low), nil
}

// ReadUint32 reads a 32-bit value sent as two 16-bit halves, low half first.
func (r *Reader) ReadUint32() (uint32, error) {
	low, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	high, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	return uint32(high)<<16 | uint32(low), nil
}

// ReadLegacyUint32 reads a 32-bit value written by Writer.WriteUint32. The
// high half on the wire holds bits 8-23 of the value, so only values below
// 2^24 survive the round trip.
func (r *Reader) ReadLegacyUint32() (uint32, error) {
	low, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	high, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	return uint32(high>>8)<<16 | uint32(low), nil
}

// ReadBool reads a single byte flag. Any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadBytes reads a byte payload prefixed by its 16-bit length.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadString reads text prefixed by its 16-bit length. Each byte is one
// ISO-8859-1 code point.
func (r *Reader) ReadString() (string, error) {
	raw, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// Writer writes protocol primitives to an underlying stream. Writer does not
// buffer; wrap the stream if needed.
type Writer struct {
	w   io.Writer
	buf [1]byte
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteByte writes exactly one byte.
func (w *Writer) WriteByte(c byte) error {
	w.buf[0] = c
	_, err := w.w.Write(w.buf[:])
	return err
}

// WriteUint16 writes v low byte first, one byte at a time.
func (w *Writer) WriteUint16(v uint16) error {
	if err := w.WriteByte(byte(v)); err != nil {
		return err
	}
	return w.WriteByte(byte(v >> 8))
}

// WriteUint32 writes v as two 16-bit halves: the low 16 bits followed by v
// shifted right by 8. This is the layout deployed clients were built
// against; it differs from what ReadUint32 expects for values of 2^16 and
// above. Use ReadLegacyUint32 to read it back.
func (w *Writer) WriteUint32(v uint32) error {
	if err := w.WriteUint16(uint16(v)); err != nil {
		return err
	}
	return w.WriteUint16(uint16(v >> 8))
}

// WriteBool writes a single byte flag.
func (w *Writer) WriteBool(v bool) error {
	var b byte
	if v {
		b = 1
	}
	return w.WriteByte(b)
}

// WriteBytes writes data prefixed by its 16-bit length. Payloads larger than
// MaxPayload are rejected; callers are expected to clamp.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("%d bytes: %w", len(data), ErrPayloadTooLarge)
	}
	if err := w.WriteUint16(uint16(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.w.Write(data)
	return err
}

// WriteString writes s as ISO-8859-1 text prefixed by its 16-bit length.
func (w *Writer) WriteString(s string) error {
	raw, err := EncodeText(s)
	if err != nil {
		return err
	}
	return w.WriteBytes(raw)
}

// EncodeText converts s to ISO-8859-1. It fails with ErrUnrepresentable if s
// holds characters outside of the charset or isn't valid UTF-8.
func EncodeText(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%q: %w", s, ErrUnrepresentable)
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", s, ErrUnrepresentable)
	}
	return []byte(raw), nil
}

// DecodeChar converts an ISO-8859-1 code point to a rune.
func DecodeChar(c byte) rune {
	return charmap.ISO8859_1.DecodeByte(c)
}
