package sbc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPCM generates a deterministic stereo test signal: a sine tone on
// the left channel, a quieter offset tone on the right.
func testPCM(samples int, phaseOffset float64) []int16 {
	pcm := make([]int16, samples)
	for i := 0; i < samples; i += 2 {
		n := float64(i/2) + phaseOffset
		pcm[i] = int16(12000 * math.Sin(2*math.Pi*440*n/44100))
		if i+1 < samples {
			pcm[i+1] = int16(6000 * math.Sin(2*math.Pi*554*n/44100))
		}
	}
	return pcm
}

func TestNewEncoderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bitpool = 255

	_, err := NewEncoder(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEncoderSamplesPerFrame(t *testing.T) {
	enc, err := NewEncoder(DefaultConfig())
	require.NoError(t, err)
	// 16 blocks x 8 subbands x 2 channels.
	assert.Equal(t, 256, enc.SamplesPerFrame())

	mono := Config{
		SamplingFrequency: Freq16000,
		ChannelMode:       ModeMono,
		BlockLength:       Blocks4,
		Subbands:          Subbands4,
		Bitpool:           16,
	}
	encMono, err := NewEncoder(mono)
	require.NoError(t, err)
	assert.Equal(t, 16, encMono.SamplesPerFrame())
}

func TestEncodeRejectsShortInput(t *testing.T) {
	enc, err := NewEncoder(DefaultConfig())
	require.NoError(t, err)

	_, err = enc.Encode(make([]int16, enc.SamplesPerFrame()-1))
	assert.ErrorIs(t, err, ErrInputTooSmall)
}

// TestEncodeFrameHeader tests the fixed header layout: sync word,
// packed parameter byte, bitpool, and a CRC consistent with the frame
// contents.
func TestEncodeFrameHeader(t *testing.T) {
	cfg := DefaultConfig()
	enc, err := NewEncoder(cfg)
	require.NoError(t, err)

	frame, err := enc.Encode(testPCM(enc.SamplesPerFrame(), 0))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(frame), 12)

	assert.Equal(t, uint8(SyncWord), frame[0])

	expectedParams := byte(cfg.SamplingFrequency)<<6 |
		byte(cfg.BlockLength)<<4 |
		byte(cfg.ChannelMode)<<2 |
		byte(cfg.AllocationMethod)<<1 |
		byte(cfg.Subbands)
	assert.Equal(t, expectedParams, frame[1])
	assert.Equal(t, cfg.Bitpool, frame[2])

	// frameCRC skips the sync word and the CRC byte itself, so running
	// it over the finished frame must reproduce the stored CRC.
	assert.Equal(t, frameCRC(frame), frame[3])

	assert.LessOrEqual(t, len(frame), cfg.FrameSize())
}

// TestEncodeDeterministic tests that two fresh encoders produce
// byte-identical output for the same input sequence.
func TestEncodeDeterministic(t *testing.T) {
	cfg := DefaultConfig()

	encA, err := NewEncoder(cfg)
	require.NoError(t, err)
	encB, err := NewEncoder(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		pcm := testPCM(encA.SamplesPerFrame(), float64(i*128))
		frameA, err := encA.Encode(pcm)
		require.NoError(t, err)
		frameB, err := encB.Encode(pcm)
		require.NoError(t, err)
		assert.Equal(t, frameA, frameB, "Frame %d must match", i)
	}
}

// TestEncoderReset tests that Reset restores fresh-encoder behavior:
// the filter history no longer influences the output.
func TestEncoderReset(t *testing.T) {
	enc, err := NewEncoder(DefaultConfig())
	require.NoError(t, err)

	pcm := testPCM(enc.SamplesPerFrame(), 0)
	first, err := enc.Encode(pcm)
	require.NoError(t, err)

	// A second encode of the same block differs because the analysis
	// filter carries history.
	second, err := enc.Encode(pcm)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	enc.Reset()
	again, err := enc.Encode(pcm)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

// TestEncodeAllChannelModes tests that every channel mode produces a
// well-formed frame.
func TestEncodeAllChannelModes(t *testing.T) {
	for _, mode := range []ChannelMode{ModeMono, ModeDualChannel, ModeStereo, ModeJointStereo} {
		cfg := Config{
			SamplingFrequency: Freq44100,
			ChannelMode:       mode,
			BlockLength:       Blocks16,
			Subbands:          Subbands8,
			AllocationMethod:  AllocLoudness,
			Bitpool:           31,
		}
		enc, err := NewEncoder(cfg)
		require.NoError(t, err, mode.String())

		frame, err := enc.Encode(testPCM(enc.SamplesPerFrame(), 0))
		require.NoError(t, err, mode.String())
		assert.Equal(t, uint8(SyncWord), frame[0], mode.String())
		assert.LessOrEqual(t, len(frame), cfg.FrameSize(), mode.String())
	}
}

// TestEncodeSilence tests that an all-zero input encodes cleanly; the
// pipeline substitutes silence frames on underrun.
func TestEncodeSilence(t *testing.T) {
	enc, err := NewEncoder(DefaultConfig())
	require.NoError(t, err)

	frame, err := enc.Encode(make([]int16, enc.SamplesPerFrame()))
	require.NoError(t, err)
	assert.Equal(t, uint8(SyncWord), frame[0])
}
