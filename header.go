package jdwp

import (
	"fmt"
	"math"
)

const (
	// HeaderLength is the size of the fixed packet header on the wire.
	HeaderLength = 11

	// MaxLength is the largest total packet length the header can declare.
	MaxLength = math.MaxInt32

	// FlagReply is set in [Header.Flags] for reply packets.
	FlagReply uint8 = 0x80
)

// Header is the decoded fixed header of a packet.
//
// CmdSet and Cmd are only meaningful for commands,
// and ErrorCode only for replies.
type Header struct {
	ID int32

	// Total packet length, including the header itself.
	Length int32

	Flags uint8

	CmdSet uint8
	Cmd    uint8

	ErrorCode uint16
}

// CommandHeader returns the header for a command packet
// carrying payloadLen bytes of payload.
// It does not validate the resulting length.
func CommandHeader(id int32, cmdSet, cmd uint8, payloadLen int64) Header {
	return Header{
		ID:     id,
		Length: clampLength(payloadLen),
		CmdSet: cmdSet,
		Cmd:    cmd,
	}
}

// ReplyHeader returns the header for a reply packet
// carrying payloadLen bytes of payload.
// It does not validate the resulting length.
func ReplyHeader(id int32, errorCode uint16, payloadLen int64) Header {
	return Header{
		ID:        id,
		Length:    clampLength(payloadLen),
		Flags:     FlagReply,
		ErrorCode: errorCode,
	}
}

// clampLength converts a payload length into a total length,
// mapping anything unrepresentable to -1 so that Validate rejects it.
func clampLength(payloadLen int64) int32 {
	total := payloadLen + HeaderLength
	if payloadLen < 0 || total > MaxLength {
		return -1
	}
	return int32(total)
}

// IsCommand reports whether the header belongs to a command packet.
func (h Header) IsCommand() bool {
	return h.Flags&FlagReply == 0
}

// PayloadLength is the number of payload bytes following the header.
func (h Header) PayloadLength() int64 {
	return int64(h.Length) - HeaderLength
}

// Validate returns an [InvalidHeaderError] if h.Length
// is shorter than the fixed header.
func (h Header) Validate() error {
	if h.Length < HeaderLength {
		return InvalidHeaderError{Length: int64(h.Length)}
	}
	return nil
}

// String returns a compact description suitable for logs.
func (h Header) String() string {
	if h.IsCommand() {
		return fmt.Sprintf(
			"command(id=%d, cmd=%d/%d, len=%d)", h.ID, h.CmdSet, h.Cmd, h.Length,
		)
	}
	return fmt.Sprintf(
		"reply(id=%d, err=%d, len=%d)", h.ID, h.ErrorCode, h.Length,
	)
}
