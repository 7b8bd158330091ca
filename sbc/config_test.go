package sbc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyFromHz(t *testing.T) {
	for _, hz := range []uint32{16000, 32000, 44100, 48000} {
		freq, err := FrequencyFromHz(hz)
		require.NoError(t, err)
		assert.Equal(t, hz, freq.Hz())
	}

	_, err := FrequencyFromHz(22050)
	assert.Error(t, err)
}

func TestChannelModeChannels(t *testing.T) {
	assert.Equal(t, 1, ModeMono.Channels())
	assert.Equal(t, 2, ModeDualChannel.Channels())
	assert.Equal(t, 2, ModeStereo.Channels())
	assert.Equal(t, 2, ModeJointStereo.Channels())
}

func TestBlockAndSubbandCounts(t *testing.T) {
	assert.Equal(t, 4, Blocks4.Count())
	assert.Equal(t, 8, Blocks8.Count())
	assert.Equal(t, 12, Blocks12.Count())
	assert.Equal(t, 16, Blocks16.Count())
	assert.Equal(t, 4, Subbands4.Count())
	assert.Equal(t, 8, Subbands8.Count())
}

// TestMaxBitpool tests the mode-dependent bitpool ceiling.
func TestMaxBitpool(t *testing.T) {
	mono := Config{ChannelMode: ModeMono, Subbands: Subbands8}
	assert.Equal(t, uint8(128), mono.MaxBitpool())

	mono4 := Config{ChannelMode: ModeMono, Subbands: Subbands4}
	assert.Equal(t, uint8(64), mono4.MaxBitpool())

	stereo4 := Config{ChannelMode: ModeStereo, Subbands: Subbands4}
	assert.Equal(t, uint8(128), stereo4.MaxBitpool())

	// 32 * 8 = 256 exceeds the absolute limit and is capped.
	joint := Config{ChannelMode: ModeJointStereo, Subbands: Subbands8}
	assert.Equal(t, uint8(MaxBitpool), joint.MaxBitpool())
}

// TestConfigValidate tests bitpool range enforcement, including the
// out-of-range value 255 a misbehaving peer might propose.
func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Bitpool = 255
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Bitpool = 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Bitpool = MinBitpool
	assert.NoError(t, cfg.Validate())

	// 140 is fine for joint stereo but exceeds the mono ceiling of 128.
	mono := Config{
		SamplingFrequency: Freq44100,
		ChannelMode:       ModeMono,
		BlockLength:       Blocks16,
		Subbands:          Subbands8,
		Bitpool:           140,
	}
	assert.ErrorIs(t, mono.Validate(), ErrInvalidConfig)
}

// TestFrameSize tests the encoded frame length per channel mode against
// hand-computed values.
func TestFrameSize(t *testing.T) {
	// The conventional high-quality configuration: 44.1 kHz joint
	// stereo, 16 blocks, 8 subbands, bitpool 53 is a 119-byte frame.
	assert.Equal(t, 119, DefaultConfig().FrameSize())

	mono := Config{
		SamplingFrequency: Freq44100,
		ChannelMode:       ModeMono,
		BlockLength:       Blocks16,
		Subbands:          Subbands8,
		Bitpool:           31,
	}
	// 4 header + 4 scale factor bytes + ceil(16*31/8) = 70.
	assert.Equal(t, 70, mono.FrameSize())

	stereo := Config{
		SamplingFrequency: Freq44100,
		ChannelMode:       ModeStereo,
		BlockLength:       Blocks16,
		Subbands:          Subbands8,
		Bitpool:           53,
	}
	// 4 header + 8 scale factor bytes + ceil(16*53/8) = 118.
	assert.Equal(t, 118, stereo.FrameSize())

	dual := Config{
		SamplingFrequency: Freq44100,
		ChannelMode:       ModeDualChannel,
		BlockLength:       Blocks16,
		Subbands:          Subbands8,
		Bitpool:           31,
	}
	// 4 header + 8 scale factor bytes + ceil(2*16*31/8) = 136.
	assert.Equal(t, 136, dual.FrameSize())
}

func TestSamplesPerFrame(t *testing.T) {
	assert.Equal(t, 128, DefaultConfig().SamplesPerFrame())

	small := Config{BlockLength: Blocks4, Subbands: Subbands4}
	assert.Equal(t, 16, small.SamplesPerFrame())
}

func TestFrameDuration(t *testing.T) {
	// 128 samples at 44100 Hz is about 2.9 ms.
	d := DefaultConfig().FrameDuration()
	assert.Greater(t, d, 2*time.Millisecond)
	assert.Less(t, d, 3*time.Millisecond)
}

func TestBitrateKbps(t *testing.T) {
	// The canonical figure for this configuration is ~328 kbps.
	rate := DefaultConfig().BitrateKbps()
	assert.InDelta(t, 328, float64(rate), 2)
}
