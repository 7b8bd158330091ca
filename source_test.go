package a2dp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T) (*Source, *sinkTransport) {
	sink := newSinkTransport(t)
	src, err := New(sink, DefaultConfig())
	require.NoError(t, err)
	return src, sink
}

func TestNewSourceRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AudioBufferMS = 1
	_, err := New(newSinkTransport(t), cfg)
	assert.Error(t, err)
}

// TestSourcePipeline drives the complete data path without goroutines:
// session up, PCM in, coordinator ticks, media packets out. Underruns
// substitute silence so the cadence never stalls.
func TestSourcePipeline(t *testing.T) {
	src, sink := newTestSource(t)

	require.NoError(t, src.MakeDiscoverable())
	sink.connectLink()
	sink.pump()
	require.Equal(t, StateOpen, src.State())

	require.NoError(t, src.StartStreaming())
	sink.pump()
	require.Equal(t, StateStreaming, src.State())

	cfg, ok := src.StreamConfig()
	require.True(t, ok)
	samplesPerFrame := cfg.SamplesPerFrame() * cfg.Channels()

	// Two real frames of PCM; the remaining ticks run on silence.
	assert.Equal(t, 2, src.PushPCM(make([]int16, 2*samplesPerFrame)))
	assert.Equal(t, 2, src.Buffered())

	for i := 0; i < 6; i++ {
		src.coordinator.tick()
	}
	sink.pump()

	require.Len(t, sink.mediaPackets, 1, "Five frames fill one default-MTU packet")
	assert.Equal(t, byte(5), sink.mediaPackets[0][12])

	m := src.Metrics()
	assert.Equal(t, uint64(6), m.FramesEncoded)
	assert.Equal(t, uint64(4), m.SilenceFrames)
	assert.Equal(t, uint64(4), m.Underruns)
	assert.Equal(t, uint64(1), m.PacketsSent)
	assert.Equal(t, uint64(0), m.EncodeFaults)
	assert.Equal(t, 0, src.Buffered())
}

// TestSourceIdleOutsideStreaming tests the state gate: outside
// Streaming the coordinator touches nothing and buffered audio is left
// alone.
func TestSourceIdleOutsideStreaming(t *testing.T) {
	src, sink := newTestSource(t)

	require.NoError(t, src.MakeDiscoverable())
	sink.connectLink()
	sink.pump()
	require.Equal(t, StateOpen, src.State())

	cfg, ok := src.StreamConfig()
	require.True(t, ok)
	src.PushPCM(make([]int16, cfg.SamplesPerFrame()*cfg.Channels()))

	src.coordinator.tick()
	assert.Empty(t, sink.mediaPackets)
	assert.Equal(t, 1, src.Buffered(), "Open is not Streaming; audio stays buffered")

	m := src.Metrics()
	assert.Equal(t, uint64(0), m.FramesEncoded)
}

// TestSourceDisconnectClearsBuffer tests that a full teardown clears
// the ring buffer and the published configuration; suspend does not.
func TestSourceDisconnectClearsBuffer(t *testing.T) {
	src, sink := newTestSource(t)

	require.NoError(t, src.MakeDiscoverable())
	sink.connectLink()
	sink.pump()
	require.NoError(t, src.StartStreaming())
	sink.pump()

	cfg, _ := src.StreamConfig()
	src.PushPCM(make([]int16, cfg.SamplesPerFrame()*cfg.Channels()))

	require.NoError(t, src.PauseStreaming())
	sink.pump()
	require.Equal(t, StateSuspended, src.State())
	assert.Equal(t, 1, src.Buffered(), "Suspend keeps buffered audio")

	require.NoError(t, src.Disconnect())
	sink.pump()
	require.Equal(t, StateDisconnected, src.State())
	assert.Equal(t, 0, src.Buffered())
	_, ok := src.StreamConfig()
	assert.False(t, ok)
}

// TestSourceKill tests shutdown: idempotent, rejects further use, and
// Run refuses to start.
func TestSourceKill(t *testing.T) {
	src, _ := newTestSource(t)

	src.Kill()
	src.Kill()

	assert.Equal(t, StateDisconnected, src.State())
	assert.Equal(t, 0, src.PushPCM(make([]int16, 256)))
	assert.ErrorIs(t, src.Run(context.Background()), ErrSourceKilled)
}

func TestSourceRunCancel(t *testing.T) {
	src, _ := newTestSource(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, src.Run(ctx), context.Canceled)
}
