// Copyright 2018 Andrew Fort
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package rfc6242 implements the NETCONF transport framing used between this
// daemon and the managed device over SSH: the legacy "]]>]]>" end-of-message
// marker used before capabilities are exchanged, and the RFC6242 chunked
// framing ("\n#N\n" ... "\n##\n") used once both peers advertise
// urn:ietf:params:netconf:base:1.1.
//
// Unlike a streaming XML tokenizer, this Decoder hands back one complete
// message per ReadMessage call; the caller unmarshals the whole document and
// inspects its root element to decide whether it received a hello,
// rpc-reply or notification. That trade simplifies the framing logic at the
// cost of not interleaving partially-received messages, which NETCONF never
// does in practice.
package rfc6242

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var tokenEOM = []byte("]]>]]>")

// maximumAllowedChunkSize is the RFC6242 section 4.2 "maximum allowed
// chunk-size".
const maximumAllowedChunkSize = 4294967295

// Decoder reads framed NETCONF messages from an SSH channel.
type Decoder struct {
	r       *bufio.Reader
	chunked bool
}

// NewDecoder creates a Decoder reading from r, starting in legacy
// end-of-message framing mode.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// EnableChunkedFraming switches the decoder to RFC6242 chunked framing. It
// must be called once both peers' hello messages have advertised base:1.1,
// and only between messages.
func (d *Decoder) EnableChunkedFraming() {
	d.chunked = true
}

// ReadMessage reads one complete framed message and returns its content.
func (d *Decoder) ReadMessage() (string, error) {
	if d.chunked {
		return d.readChunked()
	}
	return d.readLegacy()
}

func (d *Decoder) readLegacy() (string, error) {
	var body []byte
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return "", errors.Wrap(err, "rfc6242: reading legacy-framed message")
		}
		body = append(body, b)
		if len(body) >= len(tokenEOM) && bytesHaveSuffix(body, tokenEOM) {
			return string(body[:len(body)-len(tokenEOM)]), nil
		}
	}
}

func (d *Decoder) readChunked() (string, error) {
	var body []byte
	for {
		if err := d.expect('\n'); err != nil {
			return "", err
		}
		if err := d.expect('#'); err != nil {
			return "", err
		}

		b, err := d.r.ReadByte()
		if err != nil {
			return "", errors.Wrap(err, "rfc6242: reading chunk header")
		}

		if b == '#' {
			if err := d.expect('\n'); err != nil {
				return "", err
			}
			return string(body), nil
		}

		length, err := d.readChunkLength(b)
		if err != nil {
			return "", err
		}

		chunk := make([]byte, length)
		if _, err := io.ReadFull(d.r, chunk); err != nil {
			return "", errors.Wrap(err, "rfc6242: reading chunk data")
		}
		body = append(body, chunk...)
	}
}

func (d *Decoder) readChunkLength(first byte) (int, error) {
	if first < '1' || first > '9' {
		return 0, errors.New("rfc6242: invalid chunk-size")
	}
	digits := []byte{first}
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(err, "rfc6242: reading chunk-size")
		}
		if b == '\n' {
			break
		}
		if b < '0' || b > '9' {
			return 0, errors.New("rfc6242: invalid chunk-size digit")
		}
		digits = append(digits, b)
		if len(digits) > 10 {
			return 0, errors.New("rfc6242: chunk-size too long")
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil || n <= 0 {
		return 0, errors.New("rfc6242: invalid chunk-size value")
	}
	return n, nil
}

func (d *Decoder) expect(want byte) error {
	b, err := d.r.ReadByte()
	if err != nil {
		return errors.Wrap(err, "rfc6242: framing")
	}
	if b != want {
		return errors.Errorf("rfc6242: expected %q, got %q", want, b)
	}
	return nil
}

func bytesHaveSuffix(b, suffix []byte) bool {
	if len(b) < len(suffix) {
		return false
	}
	for i := range suffix {
		if b[len(b)-len(suffix)+i] != suffix[i] {
			return false
		}
	}
	return true
}

// Encoder writes framed NETCONF messages to an SSH channel.
type Encoder struct {
	w            io.Writer
	chunked      bool
	maxChunkSize uint32
}

// NewEncoder creates an Encoder writing to w, starting in legacy
// end-of-message framing mode.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, maxChunkSize: maximumAllowedChunkSize}
}

// EnableChunkedFraming switches the encoder to RFC6242 chunked framing.
func (e *Encoder) EnableChunkedFraming() {
	e.chunked = true
}

// WriteMessage writes msg as one complete framed message.
func (e *Encoder) WriteMessage(msg string) error {
	if e.chunked {
		return e.writeChunked([]byte(msg))
	}
	return e.writeLegacy([]byte(msg))
}

func (e *Encoder) writeLegacy(b []byte) error {
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	_, err := e.w.Write(tokenEOM)
	return err
}

func (e *Encoder) writeChunked(b []byte) error {
	n := 0
	for n < len(b) {
		chunksize := len(b) - n
		if uint32(chunksize) > e.maxChunkSize {
			chunksize = int(e.maxChunkSize)
		}
		if _, err := e.w.Write([]byte("\n#" + strconv.Itoa(chunksize) + "\n")); err != nil {
			return err
		}
		if _, err := e.w.Write(b[n : n+chunksize]); err != nil {
			return err
		}
		n += chunksize
	}
	_, err := e.w.Write([]byte("\n##\n"))
	return err
}
