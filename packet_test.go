package jdwp_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/gordian-engine/jdwp"
	"github.com/gordian-engine/jdwp/internal/jtest"
	"github.com/gordian-engine/jdwp/jpayload"
	"github.com/gordian-engine/jdwp/jsource"
	"github.com/gordian-engine/jdwp/jsource/jsourcetest"
	"github.com/stretchr/testify/require"
)

func readPayload(t *testing.T, pkt *jdwp.Packet) []byte {
	t.Helper()

	var got []byte
	require.NoError(t, pkt.WithPayload(context.Background(), func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	}))
	return got
}

func TestNewEphemeral_smallCommand(t *testing.T) {
	t.Parallel()

	f := jpayload.NewFactory(jpayload.FactoryConfig{MaxInMemoryLength: 1024})
	h := jdwp.CommandHeader(1, 3, 7, 5)

	pkt, err := jdwp.NewEphemeral(context.Background(), h, bytes.NewReader([]byte("hello")), f)
	require.NoError(t, err)

	require.Equal(t, int32(1), pkt.ID())
	require.Equal(t, int32(jdwp.HeaderLength+5), pkt.Length())
	require.Equal(t, uint8(3), pkt.CmdSet())
	require.Equal(t, uint8(7), pkt.Cmd())
	require.Zero(t, pkt.Flags())
	require.Zero(t, pkt.ErrorCode())
	require.True(t, pkt.IsCommand())
	require.False(t, pkt.IsOffline())

	require.IsType(t, (*jpayload.InMemory)(nil), pkt.Provider())

	for range 2 {
		r, err := pkt.Acquire(context.Background())
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		pkt.Release()

		require.Equal(t, []byte{'h', 'e', 'l', 'l', 'o'}, got)
	}
}

func TestNewEphemeral_largeReplyShutdown(t *testing.T) {
	t.Parallel()

	const payloadLen = 2_000_000

	src := jsourcetest.NewChunkedReader(make([]byte, payloadLen+jdwp.HeaderLength), 1<<15)
	f := jpayload.NewFactory(jpayload.FactoryConfig{MaxInMemoryLength: 65536})

	pkt, err := jdwp.NewEphemeral(context.Background(), jdwp.ReplyHeader(9, 0, payloadLen), src, f)
	require.NoError(t, err)

	require.False(t, pkt.IsCommand())
	require.Equal(t, jdwp.FlagReply, pkt.Flags())
	require.Zero(t, pkt.CmdSet())
	require.Zero(t, pkt.Cmd())
	require.IsType(t, (*jpayload.Sliced)(nil), pkt.Provider())
	require.Zero(t, src.Offset())

	require.NoError(t, pkt.Shutdown(context.Background(), nil))
	require.Equal(t, int64(payloadLen), src.Offset())

	_, err = pkt.Acquire(context.Background())
	require.True(t, jdwp.IsUnavailable(err))

	require.NoError(t, pkt.Close())
}

func TestNewEphemeral_invalidHeader(t *testing.T) {
	t.Parallel()

	f := jpayload.NewFactory(jpayload.FactoryConfig{MaxInMemoryLength: 1024})
	_, err := jdwp.NewEphemeral(context.Background(), jdwp.Header{Length: 10}, bytes.NewReader(nil), f)

	var ihe jdwp.InvalidHeaderError
	require.ErrorAs(t, err, &ihe)
	require.Equal(t, int64(10), ihe.Length)
}

func TestNew_panicsOnInvalidHeader(t *testing.T) {
	t.Parallel()

	require.PanicsWithError(t, jdwp.InvalidHeaderError{Length: 5}.Error(), func() {
		jdwp.New(jdwp.Header{Length: 5}, jpayload.Empty{})
	})

	require.Panics(t, func() {
		jdwp.NewCommand(1, 1, 1, -1, jpayload.Empty{})
	})

	require.Panics(t, func() {
		jdwp.NewReply(1, 0, jdwp.MaxLength, jpayload.Empty{})
	})
}

func TestPacket_Shutdown_inMemoryBecomesUnavailable(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewCommand(1, 1, 1, 3, jpayload.NewInMemory([]byte("abc")))
	require.Equal(t, []byte("abc"), readPayload(t, pkt))

	require.NoError(t, pkt.Shutdown(context.Background(), nil))
	require.NoError(t, pkt.Shutdown(context.Background(), nil))

	_, err := pkt.Acquire(context.Background())
	require.True(t, jdwp.IsUnavailable(err))

	_, err = pkt.ToOffline(context.Background(), nil)
	require.True(t, jdwp.IsUnavailable(err))
}

func TestPacket_ToOffline_inMemoryIsShared(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewReply(4, 0, 3, jpayload.NewInMemory([]byte("xyz")))

	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, off.IsOffline())
	require.Same(t, pkt.Provider(), off.Provider())
	require.Equal(t, pkt.Header(), off.Header())

	// Identity on an already offline packet.
	again, err := off.ToOffline(context.Background(), nil)
	require.NoError(t, err)
	require.Same(t, off, again)

	// The original stays valid.
	require.Equal(t, []byte("xyz"), readPayload(t, pkt))
	require.Equal(t, []byte("xyz"), readPayload(t, off))
}

func TestPacket_ToOffline_survivesOriginalClose(t *testing.T) {
	t.Parallel()

	data := jtest.RandomPayloadForTest(t, 10_000)
	backing := bytes.Clone(data)

	pkt := jdwp.NewCommand(
		2, 10, 1, int64(len(backing)),
		jpayload.NewStreamBacked(
			jsource.NewBytesRewindable(backing), int64(len(backing)), jpayload.OfflineConfig{},
		),
	)

	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	// Tear down the original connection state.
	require.NoError(t, pkt.Close())
	clear(backing)

	require.Equal(t, data, readPayload(t, off))
	require.Equal(t, data, readPayload(t, off))

	_, err = pkt.Acquire(context.Background())
	require.True(t, jdwp.IsUnavailable(err))
}

func TestPacket_ToOffline_thenShutdownOriginalKeepsStreamAligned(t *testing.T) {
	t.Parallel()

	data := jtest.RandomPayloadForTest(t, 4000)
	nextHeader := []byte{0, 0, 0, 11, 0, 0, 0, 2, 0, 1, 1}

	src := jsourcetest.NewChunkedReader(append(bytes.Clone(data), nextHeader...), 300)
	f := jpayload.NewFactory(jpayload.FactoryConfig{MaxInMemoryLength: 100})

	pkt, err := jdwp.NewEphemeral(context.Background(), jdwp.CommandHeader(1, 15, 1, int64(len(data))), src, f)
	require.NoError(t, err)

	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, pkt.Shutdown(context.Background(), nil))
	require.NoError(t, pkt.Close())

	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, nextHeader, rest)

	require.Equal(t, data, readPayload(t, off))
}

func TestPacket_offline_serializesReaders(t *testing.T) {
	t.Parallel()

	data := jtest.RandomPayloadForTest(t, 50_000)
	src := jsourcetest.NewChunkedReader(data, 1000)

	// Force a spooled, single-cursor StreamBacked provider.
	f := jpayload.NewFactory(jpayload.FactoryConfig{
		MaxInMemoryLength: 1024,
		Offline: jpayload.OfflineConfig{
			MaxInMemoryLength: 1024,
			SpoolDir:          t.TempDir(),
		},
	})

	pkt, err := jdwp.NewEphemeral(context.Background(), jdwp.ReplyHeader(3, 0, int64(len(data))), src, f)
	require.NoError(t, err)

	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)
	defer off.Close()
	require.IsType(t, (*jpayload.StreamBacked)(nil), off.Provider())

	r1, err := off.Acquire(context.Background())
	require.NoError(t, err)

	half := make([]byte, len(data)/2)
	_, err = io.ReadFull(r1, half)
	require.NoError(t, err)

	type result struct {
		Data []byte
		Err  error
	}
	acquired := make(chan struct{})
	results := make(chan result, 1)
	go func() {
		r2, err := off.Acquire(context.Background())
		if err != nil {
			results <- result{Err: err}
			return
		}
		close(acquired)
		defer off.Release()

		got, err := io.ReadAll(r2)
		results <- result{Data: got, Err: err}
	}()

	// The second reader must wait while the first holds the payload.
	jtest.NotSendingSoon(t, acquired)

	rest, err := io.ReadAll(r1)
	require.NoError(t, err)
	require.Equal(t, data, append(half, rest...))
	off.Release()

	jtest.ReceiveSoon(t, acquired)
	res := jtest.ReceiveSoon(t, results)
	require.NoError(t, res.Err)
	require.Equal(t, data, res.Data)
}

func TestPacket_offline_acquireRespectsContext(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewCommand(1, 1, 1, 4, jpayload.NewInMemory([]byte("data")))
	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	_, err = off.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = off.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)

	off.Release()

	// The failed wait did not leak the guard.
	require.Equal(t, []byte("data"), readPayload(t, off))
}

func TestPacket_WithPayload_releasesOnPanicAndError(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewCommand(1, 1, 1, 4, jpayload.NewInMemory([]byte("data")))
	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	require.Panics(t, func() {
		_ = off.WithPayload(context.Background(), func(io.Reader) error {
			panic("boom")
		})
	})

	errBad := errors.New("bad payload")
	err = off.WithPayload(context.Background(), func(io.Reader) error { return errBad })
	require.ErrorIs(t, err, errBad)

	// Guard was released both times.
	ctx, cancel := context.WithTimeout(context.Background(), jtest.ScheduleTimeout)
	defer cancel()
	r, err := off.Acquire(ctx)
	require.NoError(t, err)
	off.Release()
	require.NotNil(t, r)
}

func TestPacket_offline_closeAndShutdown(t *testing.T) {
	t.Parallel()

	data := []byte("payload")
	pkt := jdwp.NewCommand(
		1, 1, 1, int64(len(data)),
		jpayload.NewStreamBacked(jsource.NewBytesRewindable(data), int64(len(data)), jpayload.OfflineConfig{}),
	)
	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	// Shutdown on an in-memory offline copy makes it unavailable.
	require.NoError(t, off.Shutdown(context.Background(), nil))
	_, err = off.Acquire(context.Background())
	require.True(t, jdwp.IsUnavailable(err))

	// The original is unaffected until it is closed.
	require.Equal(t, data, readPayload(t, pkt))

	require.NoError(t, pkt.Close())
	require.NoError(t, pkt.Close())
	_, err = pkt.Acquire(context.Background())
	require.True(t, jdwp.IsUnavailable(err))
	_, err = pkt.ToOffline(context.Background(), nil)
	require.True(t, jdwp.IsUnavailable(err))
}

func TestPacket_Close_makesPayloadUnavailable(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		pkt  *jdwp.Packet
	}{
		{
			name: "in memory",
			pkt:  jdwp.NewCommand(1, 3, 7, 5, jpayload.NewInMemory([]byte("hello"))),
		},
		{
			name: "empty",
			pkt:  jdwp.NewReply(2, 0, 0, jpayload.Empty{}),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			off, err := tc.pkt.ToOffline(context.Background(), nil)
			require.NoError(t, err)

			require.NoError(t, tc.pkt.Close())
			_, err = tc.pkt.Acquire(context.Background())
			require.True(t, jdwp.IsUnavailable(err))

			// The offline copy shares the provider and stays readable.
			_ = readPayload(t, off)

			require.NoError(t, off.Close())
			_, err = off.Acquire(context.Background())
			require.True(t, jdwp.IsUnavailable(err))
		})
	}
}

func TestPacket_offline_unmatchedReleaseIsNoOp(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewCommand(1, 1, 1, 4, jpayload.NewInMemory([]byte("data")))
	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	require.NotPanics(t, off.Release)

	_, err = off.Acquire(context.Background())
	require.NoError(t, err)
	off.Release()
	require.NotPanics(t, off.Release)

	// A waiter that gives up, with cleanup that releases twice.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = off.Acquire(context.Background())
	require.NoError(t, err)
	_, err = off.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	off.Release()
	require.NotPanics(t, off.Release)

	// The guard is free for the next holder.
	require.Equal(t, []byte("data"), readPayload(t, off))
}

func TestPacket_ToOffline_sharedSpoolOutlivesOriginal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := jtest.RandomPayloadForTest(t, 8192)
	sliced := jpayload.NewSliced(bytes.NewReader(data), int64(len(data)), jpayload.OfflineConfig{
		MaxInMemoryLength: 1024,
		SpoolDir:          dir,
	})
	spooled, err := sliced.ToOffline(context.Background(), nil)
	require.NoError(t, err)

	pkt := jdwp.NewReply(9, 0, int64(len(data)), spooled)
	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)
	require.Same(t, spooled, off.Provider())

	// Closing the original leaves the spool file to the offline copy.
	require.NoError(t, pkt.Close())
	require.Equal(t, data, readPayload(t, off))

	require.NoError(t, off.Close())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPacket_offline_concurrentShutdownAndRead(t *testing.T) {
	t.Parallel()

	data := jtest.RandomPayloadForTest(t, 64_000)
	f := jpayload.NewFactory(jpayload.FactoryConfig{
		MaxInMemoryLength: 1024,
		Offline: jpayload.OfflineConfig{
			MaxInMemoryLength: 1024,
			SpoolDir:          t.TempDir(),
		},
	})

	for range 20 {
		pkt, err := jdwp.NewEphemeral(
			context.Background(), jdwp.ReplyHeader(4, 0, int64(len(data))), bytes.NewReader(data), f,
		)
		require.NoError(t, err)
		off, err := pkt.ToOffline(context.Background(), nil)
		require.NoError(t, err)
		require.NoError(t, pkt.Close())

		readErrs := make(chan error, 1)
		go func() {
			readErrs <- off.WithPayload(context.Background(), func(r io.Reader) error {
				got, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				if !bytes.Equal(data, got) {
					return errors.New("payload mismatch")
				}
				return nil
			})
		}()

		require.NoError(t, off.Shutdown(context.Background(), nil))

		// The read either won the race or saw the shutdown.
		if err := jtest.ReceiveSoon(t, readErrs); err != nil {
			require.True(t, jdwp.IsUnavailable(err), "unexpected error: %v", err)
		}
		require.NoError(t, off.Close())
	}
}

func TestPacket_offline_providerErrorReleasesGuard(t *testing.T) {
	t.Parallel()

	data := jtest.RandomPayloadForTest(t, 4096)
	f := jpayload.NewFactory(jpayload.FactoryConfig{
		MaxInMemoryLength: 16,
		Offline: jpayload.OfflineConfig{
			MaxInMemoryLength: 16,
			SpoolDir:          t.TempDir(),
		},
	})

	pkt, err := jdwp.NewEphemeral(
		context.Background(), jdwp.CommandHeader(5, 1, 2, int64(len(data))), bytes.NewReader(data), f,
	)
	require.NoError(t, err)

	off, err := pkt.ToOffline(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, off.Close())

	for range 2 {
		ctx, cancel := context.WithTimeout(context.Background(), jtest.ScheduleTimeout)
		_, err := off.Acquire(ctx)
		cancel()

		// Unavailable rather than a timeout,
		// so the first failure did not keep the guard.
		require.True(t, jdwp.IsUnavailable(err))
	}
}

func TestPacket_Rewrap(t *testing.T) {
	t.Parallel()

	orig := jdwp.NewCommand(77, 9, 4, 3, jpayload.NewInMemory([]byte("old")))
	rewritten := orig.Rewrap(jpayload.NewInMemory([]byte("brand new")), 9)

	require.Equal(t, int32(77), rewritten.ID())
	require.Equal(t, uint8(9), rewritten.CmdSet())
	require.Equal(t, uint8(4), rewritten.Cmd())
	require.Equal(t, int32(jdwp.HeaderLength+9), rewritten.Length())
	require.Equal(t, []byte("brand new"), readPayload(t, rewritten))

	require.Equal(t, int32(jdwp.HeaderLength+3), orig.Length())
	require.Equal(t, []byte("old"), readPayload(t, orig))
}

func TestHeader_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "command(id=1, cmd=3/7, len=16)", jdwp.CommandHeader(1, 3, 7, 5).String())
	require.Equal(t, "reply(id=2, err=21, len=11)", jdwp.ReplyHeader(2, 21, 0).String())
}
