package jconn

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// PendingCommands tracks command IDs that are awaiting a reply,
// so that replies can be matched to the commands that caused them.
//
// IDs are stored in a fixed window of slots indexed by ID modulo the window.
// Debuggers allocate IDs sequentially,
// so a window larger than the number of in-flight commands never collides.
//
// PendingCommands is not safe for concurrent use.
type PendingCommands struct {
	inFlight *bitset.BitSet
	ids      []int32
}

// NewPendingCommands returns a PendingCommands with the given window size.
// It panics if window is zero.
func NewPendingCommands(window uint) *PendingCommands {
	if window == 0 {
		panic(fmt.Errorf("BUG: PendingCommands window must be positive"))
	}
	return &PendingCommands{
		inFlight: bitset.New(window),
		ids:      make([]int32, window),
	}
}

func (p *PendingCommands) slot(id int32) uint {
	return uint(uint32(id)) % uint(len(p.ids))
}

// Track records that a command with the given ID was sent.
// It returns an error if the ID's slot is still occupied
// by an unanswered command.
func (p *PendingCommands) Track(id int32) error {
	s := p.slot(id)
	if p.inFlight.Test(s) {
		return fmt.Errorf(
			"cannot track command %d: slot held by unanswered command %d",
			id, p.ids[s],
		)
	}
	p.inFlight.Set(s)
	p.ids[s] = id
	return nil
}

// Resolve marks the command with the given ID as answered.
// It reports whether that command was being tracked.
func (p *PendingCommands) Resolve(id int32) bool {
	s := p.slot(id)
	if !p.inFlight.Test(s) || p.ids[s] != id {
		return false
	}
	p.inFlight.Clear(s)
	return true
}

// Len is the number of commands awaiting a reply.
func (p *PendingCommands) Len() int {
	return int(p.inFlight.Count())
}
