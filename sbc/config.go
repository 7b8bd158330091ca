package sbc

import (
	"errors"
	"fmt"
	"time"
)

// SamplingFrequency selects the SBC sampling rate (2-bit header field).
type SamplingFrequency uint8

const (
	Freq16000 SamplingFrequency = iota
	Freq32000
	Freq44100
	Freq48000
)

// Hz returns the frequency in Hertz.
func (f SamplingFrequency) Hz() uint32 {
	switch f {
	case Freq16000:
		return 16000
	case Freq32000:
		return 32000
	case Freq44100:
		return 44100
	case Freq48000:
		return 48000
	default:
		return 0
	}
}

// FrequencyFromHz maps a sample rate in Hz to its SBC field value.
func FrequencyFromHz(hz uint32) (SamplingFrequency, error) {
	switch hz {
	case 16000:
		return Freq16000, nil
	case 32000:
		return Freq32000, nil
	case 44100:
		return Freq44100, nil
	case 48000:
		return Freq48000, nil
	default:
		return 0, fmt.Errorf("sbc: unsupported sample rate %d Hz", hz)
	}
}

// ChannelMode selects the SBC channel coding (2-bit header field).
type ChannelMode uint8

const (
	ModeMono ChannelMode = iota
	ModeDualChannel
	ModeStereo
	ModeJointStereo
)

// Channels returns the number of audio channels for the mode.
func (m ChannelMode) Channels() int {
	if m == ModeMono {
		return 1
	}
	return 2
}

// String returns the mode name.
func (m ChannelMode) String() string {
	switch m {
	case ModeMono:
		return "mono"
	case ModeDualChannel:
		return "dual-channel"
	case ModeStereo:
		return "stereo"
	case ModeJointStereo:
		return "joint-stereo"
	default:
		return "unknown"
	}
}

// BlockLength selects blocks per frame (2-bit header field).
type BlockLength uint8

const (
	Blocks4 BlockLength = iota
	Blocks8
	Blocks12
	Blocks16
)

// Count returns the number of blocks.
func (b BlockLength) Count() int {
	return int(b+1) * 4
}

// Subbands selects 4 or 8 subbands (1-bit header field).
type Subbands uint8

const (
	Subbands4 Subbands = iota
	Subbands8
)

// Count returns the number of subbands.
func (s Subbands) Count() int {
	if s == Subbands8 {
		return 8
	}
	return 4
}

// AllocationMethod selects the bit allocation algorithm (1-bit header
// field).
type AllocationMethod uint8

const (
	AllocSNR AllocationMethod = iota
	AllocLoudness
)

// Bitpool bounds from the A2DP specification.
const (
	MinBitpool = 2
	MaxBitpool = 250
)

// DefaultBitpool is the conventional high-quality value for 44.1 kHz
// joint stereo.
const DefaultBitpool = 53

// MaxFrameSize is the largest encoded SBC frame in bytes.
const MaxFrameSize = 512

// Config is the full set of SBC parameters a session negotiates.
// Immutable once the session reaches Open; renegotiation publishes a
// new Config under a new epoch.
type Config struct {
	SamplingFrequency SamplingFrequency
	ChannelMode       ChannelMode
	BlockLength       BlockLength
	Subbands          Subbands
	AllocationMethod  AllocationMethod
	// Bitpool controls the quality/bitrate trade-off (2-250).
	Bitpool uint8
}

// DefaultConfig is 44.1 kHz joint stereo, 16 blocks, 8 subbands,
// loudness allocation, bitpool 53.
func DefaultConfig() Config {
	return Config{
		SamplingFrequency: Freq44100,
		ChannelMode:       ModeJointStereo,
		BlockLength:       Blocks16,
		Subbands:          Subbands8,
		AllocationMethod:  AllocLoudness,
		Bitpool:           DefaultBitpool,
	}
}

// ErrInvalidConfig is returned for out-of-range parameters.
var ErrInvalidConfig = errors.New("sbc: invalid configuration")

// Validate checks the bitpool against the absolute and mode-dependent
// limits. Parameter validation happens at negotiation time; per-frame
// encoding assumes a validated configuration.
func (c Config) Validate() error {
	if c.Bitpool < MinBitpool {
		return fmt.Errorf("%w: bitpool %d below minimum %d", ErrInvalidConfig, c.Bitpool, MinBitpool)
	}
	if max := c.MaxBitpool(); c.Bitpool > max {
		return fmt.Errorf("%w: bitpool %d above maximum %d for %s/%d subbands",
			ErrInvalidConfig, c.Bitpool, max, c.ChannelMode, c.Subbands.Count())
	}
	return nil
}

// MaxBitpool returns the highest bitpool valid for this channel mode
// and subband count, capped at the absolute limit of 250.
func (c Config) MaxBitpool() uint8 {
	subbands := c.Subbands.Count()

	var computed int
	switch c.ChannelMode {
	case ModeMono, ModeDualChannel:
		computed = 16 * subbands
	default:
		computed = 32 * subbands
	}

	if computed > MaxBitpool {
		return MaxBitpool
	}
	return uint8(computed)
}

// Channels returns the channel count for the configured mode.
func (c Config) Channels() int {
	return c.ChannelMode.Channels()
}

// SamplesPerFrame returns PCM samples per frame per channel
// (blocks x subbands).
func (c Config) SamplesPerFrame() int {
	return c.BlockLength.Count() * c.Subbands.Count()
}

// FrameSize returns the encoded frame length in bytes for this
// configuration.
func (c Config) FrameSize() int {
	subbands := c.Subbands.Count()
	blocks := c.BlockLength.Count()
	channels := c.Channels()
	bitpool := int(c.Bitpool)

	const header = 4
	scaleFactorBytes := channels * subbands * 4 / 8

	var audioBits int
	switch c.ChannelMode {
	case ModeMono, ModeDualChannel:
		audioBits = channels * blocks * bitpool
	case ModeStereo:
		audioBits = blocks * bitpool
	default:
		// Joint stereo prepends one join flag bit per subband.
		audioBits = subbands + blocks*bitpool
	}

	return header + scaleFactorBytes + (audioBits+7)/8
}

// BitrateKbps returns the approximate encoded bitrate.
func (c Config) BitrateKbps() uint32 {
	frameBits := uint32(c.FrameSize()) * 8
	samples := uint32(c.SamplesPerFrame())
	return frameBits * c.SamplingFrequency.Hz() / samples / 1000
}

// FrameDuration returns the playback time one frame represents, used as
// the pipeline pull cadence.
func (c Config) FrameDuration() time.Duration {
	samples := int64(c.SamplesPerFrame())
	return time.Duration(samples * int64(time.Second) / int64(c.SamplingFrequency.Hz()))
}
