// Package jconn reads and writes JDWP packets on a single connection stream.
//
// [Reader] is the owner of the shared receive stream.
// Each call to [*Reader.Next] first shuts down the previously returned packet,
// draining whatever part of its payload the caller left unread,
// so that the stream is always positioned at a header when decoding begins.
// Packets returned by Next are ephemeral: callers who need a payload
// after the following Next call must take the packet offline first.
package jconn
