// Package wire implements the chunked framing codec used on the daemon's
// local front-end socket. The framing is deliberately analogous to the
// RFC6242 NETCONF 1.1 chunked transport framing the rest of this module uses
// for its upstream NETCONF-over-SSH connections (see internal/ncclient), but
// it frames a single JSON document per message rather than an XML stream.
//
// Chunk:       "\n#" DECIMAL-LENGTH "\n" PAYLOAD
// Terminator:  "\n##\n"
package wire

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// maxLengthDigits bounds the decimal chunk-length field at 10 digits, per the
// framing grammar (§4.1): "length... exceeds 10 digits" is a decode failure.
const maxLengthDigits = 10

// ErrNoMessage is returned for any framing failure; the caller (the per-client
// worker loop) treats it uniformly as "no message" and closes the client.
var ErrNoMessage = errors.New("no message")

// Decoder reads framed JSON messages from an underlying byte stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads one complete framed message and returns the concatenation of
// its chunk payloads as a single JSON document string. Any framing violation
// — an unexpected byte, a zero or over-long length, an early close, or a
// short chunk read — yields ErrNoMessage; the caller must treat the
// connection as unusable and close it.
func (d *Decoder) Decode() (string, error) {
	var body []byte

	for {
		if err := d.expect('\n'); err != nil {
			return "", ErrNoMessage
		}
		if err := d.expect('#'); err != nil {
			return "", ErrNoMessage
		}

		b, err := d.r.ReadByte()
		if err != nil {
			return "", ErrNoMessage
		}

		if b == '#' {
			// "\n##\n" terminator.
			if err := d.expect('\n'); err != nil {
				return "", ErrNoMessage
			}
			return string(body), nil
		}

		length, err := d.readChunkLength(b)
		if err != nil {
			return "", err
		}

		chunk := make([]byte, length)
		if _, err := io.ReadFull(d.r, chunk); err != nil {
			return "", ErrNoMessage
		}
		body = append(body, chunk...)
	}
}

// readChunkLength consumes the decimal length field, given its first digit
// already read as first, and the terminating '\n'.
func (d *Decoder) readChunkLength(first byte) (int, error) {
	if first < '1' || first > '9' {
		// Leading zero or non-digit: not a valid chunk-size (RFC6242 forbids
		// a leading zero and the grammar requires at least one digit 1-9).
		return 0, ErrNoMessage
	}

	digits := []byte{first}
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, ErrNoMessage
		}
		if b == '\n' {
			break
		}
		if b < '0' || b > '9' {
			return 0, ErrNoMessage
		}
		digits = append(digits, b)
		if len(digits) > maxLengthDigits {
			return 0, ErrNoMessage
		}
	}

	n, err := strconv.Atoi(string(digits))
	if err != nil || n <= 0 {
		return 0, ErrNoMessage
	}
	return n, nil
}

func (d *Decoder) expect(want byte) error {
	b, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	if b != want {
		return errors.Errorf("wire: expected %q, got %q", want, b)
	}
	return nil
}

// Encoder writes framed JSON messages to an underlying byte stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes s as a single chunk followed by the terminator, as one
// logical write: "\n#" len(s) "\n" s "\n##\n".
func (e *Encoder) Encode(s string) error {
	buf := make([]byte, 0, len(s)+16)
	buf = append(buf, '\n', '#')
	buf = append(buf, []byte(strconv.Itoa(len(s)))...)
	buf = append(buf, '\n')
	buf = append(buf, []byte(s)...)
	buf = append(buf, '\n', '#', '#', '\n')

	_, err := e.w.Write(buf)
	return err
}
