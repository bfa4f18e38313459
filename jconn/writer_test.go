package jconn_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/gordian-engine/jdwp"
	"github.com/gordian-engine/jdwp/internal/jtest"
	"github.com/gordian-engine/jdwp/jconn"
	"github.com/gordian-engine/jdwp/jpayload"
	"github.com/gordian-engine/jdwp/jsource"
	"github.com/stretchr/testify/require"
)

func TestWriter_forwardsSlicedAndOfflinePayloads(t *testing.T) {
	t.Parallel()

	large := jtest.RandomPayloadForTest(t, 500_000)
	raw := encodeStream(t,
		testPacket{ID: 10, Payload: large},
		testPacket{ID: 11, Reply: true, Payload: []byte("ok")},
	)

	cfg := jconn.DefaultConfig()
	cfg.Offline = jpayload.OfflineConfig{
		MaxInMemoryLength: 1024,
		SpoolDir:          t.TempDir(),
		CompressSpool:     true,
	}
	r := jconn.NewReader(jtest.NewLogger(t), jsource.NoDeadlines(bytes.NewReader(raw)), cfg)

	ctx := context.Background()

	first, err := r.Next(ctx)
	require.NoError(t, err)
	off, err := first.ToOffline(ctx, nil)
	require.NoError(t, err)
	defer off.Close()

	second, err := r.Next(ctx)
	require.NoError(t, err)

	var out bytes.Buffer
	w := jconn.NewWriter(&out, 4096)
	require.NoError(t, w.WritePacket(ctx, off))
	require.NoError(t, w.WritePacket(ctx, second))

	// An offline payload can be written again.
	var out2 bytes.Buffer
	require.NoError(t, jconn.NewWriter(&out2, 0).WritePacket(ctx, off))

	require.Equal(t, raw, out.Bytes())
	require.Equal(t, raw[:jdwp.HeaderLength+len(large)], out2.Bytes())
}

func TestWriter_shutDownPacket(t *testing.T) {
	t.Parallel()

	pkt := jdwp.NewCommand(1, 1, 1, 3, jpayload.NewInMemory([]byte("abc")))
	require.NoError(t, pkt.Shutdown(context.Background(), nil))

	var out bytes.Buffer
	w := jconn.NewWriter(&out, 0)
	err := w.WritePacket(context.Background(), pkt)
	require.True(t, jdwp.IsUnavailable(err))
	require.Zero(t, out.Len(), "no header may be written without its payload")

	closed := jdwp.NewReply(2, 0, 3, jpayload.NewInMemory([]byte("xyz")))
	require.NoError(t, closed.Close())
	err = w.WritePacket(context.Background(), closed)
	require.True(t, jdwp.IsUnavailable(err))
	require.Zero(t, out.Len())

	// The stream is still framed for the next packet.
	ok := jdwp.NewReply(3, 0, 2, jpayload.NewInMemory([]byte("ok")))
	require.NoError(t, w.WritePacket(context.Background(), ok))
	require.Equal(t, encodeStream(t, testPacket{ID: 3, Reply: true, Payload: []byte("ok")}), out.Bytes())
}
