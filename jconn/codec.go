package jconn

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gordian-engine/jdwp"
)

// Handshake is the exchange both sides send once,
// before any packets, when a JDWP session starts.
const Handshake = "JDWP-Handshake"

// EncodeHeader writes h into dst, which must be at least
// [jdwp.HeaderLength] bytes long.
//
// All integers are big endian.
// Commands carry cmdSet and cmd in the last two bytes;
// replies carry the error code there instead.
func EncodeHeader(dst []byte, h jdwp.Header) {
	_ = dst[jdwp.HeaderLength-1]

	binary.BigEndian.PutUint32(dst[0:4], uint32(h.Length))
	binary.BigEndian.PutUint32(dst[4:8], uint32(h.ID))
	dst[8] = h.Flags
	if h.IsCommand() {
		dst[9] = h.CmdSet
		dst[10] = h.Cmd
	} else {
		binary.BigEndian.PutUint16(dst[9:11], h.ErrorCode)
	}
}

// DecodeHeader parses a header from the first [jdwp.HeaderLength] bytes of b.
// It returns a [jdwp.InvalidHeaderError] if the declared length
// is too short to contain the header.
func DecodeHeader(b []byte) (jdwp.Header, error) {
	if len(b) < jdwp.HeaderLength {
		return jdwp.Header{}, fmt.Errorf(
			"header needs %d bytes, got %d", jdwp.HeaderLength, len(b),
		)
	}

	h := jdwp.Header{
		Length: int32(binary.BigEndian.Uint32(b[0:4])),
		ID:     int32(binary.BigEndian.Uint32(b[4:8])),
		Flags:  b[8],
	}
	if h.IsCommand() {
		h.CmdSet = b[9]
		h.Cmd = b[10]
	} else {
		h.ErrorCode = binary.BigEndian.Uint16(b[9:11])
	}

	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// WriteHandshake writes the session handshake to w.
func WriteHandshake(w io.Writer) error {
	if _, err := io.WriteString(w, Handshake); err != nil {
		return fmt.Errorf("failed to write handshake: %w", err)
	}
	return nil
}

// ReadHandshake reads the session handshake from r,
// returning an error if the peer sent something else.
func ReadHandshake(r io.Reader) error {
	buf := make([]byte, len(Handshake))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("failed to read handshake: %w", err)
	}
	if !bytes.Equal(buf, []byte(Handshake)) {
		return fmt.Errorf("unexpected handshake %q", buf)
	}
	return nil
}
