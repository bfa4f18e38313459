package jsource

import (
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

// ReceiveStream is the receive side of a transport stream
// carrying JDWP packets.
//
// A [net.Conn] satisfies ReceiveStream directly.
// Use [WrapQUICReceiveStream] for a QUIC stream,
// or [NoDeadlines] for a plain reader such as a capture file.
type ReceiveStream interface {
	Read([]byte) (int, error)

	SetReadDeadline(time.Time) error
}

// ReadCanceler is implemented by streams
// whose receive side can be aborted, signaling the sender to stop.
type ReadCanceler interface {
	CancelRead(code uint64)
}

// WrapQUICReceiveStream wraps s into a QUICReceiveStreamAdapter,
// satisfying the [ReceiveStream] interface.
func WrapQUICReceiveStream(s quic.ReceiveStream) QUICReceiveStreamAdapter {
	return QUICReceiveStreamAdapter{s: s}
}

// QUICReceiveStreamAdapter wraps a [quic.ReceiveStream]
// to satisfy the [ReceiveStream] interface.
// Use [WrapQUICReceiveStream] to create an instance.
type QUICReceiveStreamAdapter struct {
	s quic.ReceiveStream
}

var (
	_ ReceiveStream = QUICReceiveStreamAdapter{}
	_ ReadCanceler  = QUICReceiveStreamAdapter{}
)

func (a QUICReceiveStreamAdapter) Read(p []byte) (int, error) {
	return a.s.Read(p)
}

func (a QUICReceiveStreamAdapter) SetReadDeadline(t time.Time) error {
	return a.s.SetReadDeadline(t)
}

// CancelRead aborts the receive side of the underlying QUIC stream.
// Code must fit in 62 bits.
func (a QUICReceiveStreamAdapter) CancelRead(code uint64) {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	a.s.CancelRead(quic.StreamErrorCode(code))
}

// NoDeadlines adapts a plain reader to [ReceiveStream].
// SetReadDeadline on the returned value is a no-op.
func NoDeadlines(r io.Reader) ReceiveStream {
	return noDeadlines{r: r}
}

type noDeadlines struct {
	r io.Reader
}

func (n noDeadlines) Read(p []byte) (int, error) { return n.r.Read(p) }

func (noDeadlines) SetReadDeadline(time.Time) error { return nil }
