package receiver_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/logwire/internal/protocol"
	"github.com/danmuck/logwire/internal/protocol/binaryproto"
	"github.com/danmuck/logwire/internal/receiver"
	"github.com/danmuck/logwire/internal/record"
	"github.com/danmuck/logwire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	records []record.Record
}

func (c *collector) handle(rec record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *collector) snapshot() []record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]record.Record(nil), c.records...)
}

func quietCodec(reports *[]string) *binaryproto.Codec {
	return binaryproto.New(binaryproto.WithReporter(func(msg string) {
		if reports != nil {
			*reports = append(*reports, msg)
		}
	}))
}

func sample(i int) record.Record {
	at := time.Date(2026, 10, 19, 12, 0, i, 0, time.UTC)
	return record.New("message", "category", int32(i%int(record.LevelNone)), at)
}

func frames(t *testing.T, recs ...record.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	c := quietCodec(nil)
	for _, rec := range recs {
		require.NoError(t, c.WriteFrame(&buf, rec))
	}
	return buf.Bytes()
}

func TestNopReceiver(t *testing.T) {
	testlog.Start(t)
	var r receiver.Receiver = &receiver.Nop{}
	r.SetHandler(func(record.Record) { t.Fatalf("nop receiver delivered a record") })
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestStreamReceiverDeliversInOrder(t *testing.T) {
	testlog.Start(t)
	want := []record.Record{sample(1), sample(2), sample(3)}
	r := receiver.NewStream(quietCodec(nil), bytes.NewReader(frames(t, want...)))
	var got collector
	r.SetHandler(got.handle)

	require.NoError(t, r.Run(context.Background()))
	recs := got.snapshot()
	require.Len(t, recs, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(recs[i]), "record %d: %v != %v", i, want[i], recs[i])
	}
	assert.EqualValues(t, len(want), r.Records())
}

func TestStreamReceiverEmptySourceEndsCleanly(t *testing.T) {
	testlog.Start(t)
	var reports []string
	r := receiver.NewStream(quietCodec(&reports), bytes.NewReader(nil))
	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, r.Records())
	assert.Empty(t, reports)
}

func TestStreamReceiverNilHandlerIsNop(t *testing.T) {
	testlog.Start(t)
	r := receiver.NewStream(quietCodec(nil), bytes.NewReader(frames(t, sample(1))))
	r.SetHandler(nil)
	require.NoError(t, r.Run(context.Background()))
	assert.EqualValues(t, 1, r.Records())
}

func TestStreamReceiverStopsOnBadFrame(t *testing.T) {
	testlog.Start(t)
	data := frames(t, sample(1), sample(2))
	second := len(frames(t, sample(1)))
	data[second] ^= 0xFF

	var reports []string
	r := receiver.NewStream(quietCodec(&reports), bytes.NewReader(data))
	var got collector
	r.SetHandler(got.handle)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, protocol.ErrInvalidMagic)
	assert.Len(t, got.snapshot(), 1)
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0], "invalid magic")
}

func TestStreamReceiverTruncatedTail(t *testing.T) {
	testlog.Start(t)
	data := frames(t, sample(1), sample(2))
	r := receiver.NewStream(quietCodec(nil), bytes.NewReader(data[:len(data)-3]))
	err := r.Run(context.Background())
	require.ErrorIs(t, err, protocol.ErrIncompleteBody)
	assert.Equal(t, protocol.KindIncompleteBody, protocol.KindOf(err))
	assert.EqualValues(t, 1, r.Records())
}

func TestStreamReceiverPartialHeaderAtEnd(t *testing.T) {
	testlog.Start(t)
	data := frames(t, sample(1))
	data = append(data, 0xCD, 0xAB, 0x01)
	r := receiver.NewStream(quietCodec(nil), bytes.NewReader(data))
	err := r.Run(context.Background())
	require.ErrorIs(t, err, protocol.ErrIncompleteHeader)
	assert.EqualValues(t, 1, r.Records())
}

func TestStreamReceiverReadFailure(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("boom")
	src := io.MultiReader(bytes.NewReader(frames(t, sample(1))), iotestErrReader{boom})
	r := receiver.NewStream(quietCodec(nil), src)
	err := r.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, r.Records())
}

type iotestErrReader struct{ err error }

func (r iotestErrReader) Read([]byte) (int, error) { return 0, r.err }

func TestStreamReceiverStopWhileIdle(t *testing.T) {
	testlog.Start(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	var reports []string
	r := receiver.NewStream(quietCodec(&reports), pr)
	var got collector
	r.SetHandler(got.handle)
	require.NoError(t, r.Start(context.Background()))
	require.ErrorIs(t, r.Start(context.Background()), receiver.ErrAlreadyStarted)

	_, err := pw.Write(frames(t, sample(1)))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
	require.NoError(t, r.Wait())
	require.NoError(t, r.Stop())
	assert.Empty(t, reports)
}

func TestStreamReceiverCancelMidFrame(t *testing.T) {
	testlog.Start(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	var reports []string
	r := receiver.NewStream(quietCodec(&reports), server, receiver.WithSource("pipe"))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))

	data := frames(t, sample(1))
	_, err := client.Write(data[:10])
	require.NoError(t, err)
	cancel()
	require.NoError(t, r.Wait())
	assert.Empty(t, reports, "cancellation must not be reported")
	assert.Zero(t, r.Records())
}

func TestStreamReceiverFrameTimeout(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name string
		pair func() (io.Reader, io.WriteCloser)
	}{
		{"deadline source", func() (io.Reader, io.WriteCloser) {
			client, server := net.Pipe()
			return server, client
		}},
		{"plain source", func() (io.Reader, io.WriteCloser) {
			pr, pw := io.Pipe()
			return pr, pw
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, w := tt.pair()
			defer w.Close()

			var reports []string
			r := receiver.NewStream(quietCodec(&reports), src, receiver.WithFrameTimeout(50*time.Millisecond))
			require.NoError(t, r.Start(context.Background()))

			data := frames(t, sample(1))
			_, err := w.Write(data[:4])
			require.NoError(t, err)

			err = r.Wait()
			require.ErrorIs(t, err, receiver.ErrFrameTimeout)
			assert.Empty(t, reports)
		})
	}
}

func TestStreamReceiverIdleIsNotTimedOut(t *testing.T) {
	testlog.Start(t)
	client, server := net.Pipe()
	defer client.Close()

	r := receiver.NewStream(quietCodec(nil), server, receiver.WithFrameTimeout(20*time.Millisecond))
	var got collector
	r.SetHandler(got.handle)
	require.NoError(t, r.Start(context.Background()))

	time.Sleep(80 * time.Millisecond)
	_, err := client.Write(frames(t, sample(1)))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())
	require.NoError(t, r.Wait())
}
