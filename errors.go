package jdwp

import (
	"fmt"

	"github.com/gordian-engine/jdwp/jpayload"
)

// InvalidHeaderError describes a header whose declared length
// cannot hold the fixed header, or cannot be represented on the wire.
//
// The packet constructors panic with this error;
// [NewEphemeral] and [Header.Validate] return it.
type InvalidHeaderError struct {
	Length int64
}

func (e InvalidHeaderError) Error() string {
	return fmt.Sprintf(
		"invalid packet length %d: must be in range [%d, %d]",
		e.Length, HeaderLength, MaxLength,
	)
}

// IsUnavailable reports whether err indicates that a packet's payload
// is permanently gone, as opposed to an I/O failure.
func IsUnavailable(err error) bool {
	return jpayload.IsUnavailable(err)
}
