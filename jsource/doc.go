// Package jsource contains the byte source types that payload providers read from.
//
// A connection's receive side is a single forward-only stream shared by
// every packet read from it. The types here let a payload borrow a bounded
// region of that stream ([Slice]), replay a payload that lives somewhere
// seekable ([Rewindable]), and hand the stream back at a well-defined
// position ([Discard]).
//
// [ReceiveStream] is the narrow view of a transport stream used by the
// connection layer. Both net.Conn values and QUIC receive streams
// (through [WrapQUICReceiveStream]) satisfy it.
package jsource
