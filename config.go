package a2dp

import (
	"fmt"
	"time"

	"github.com/hastur-dev/bluetooth-a2dp/audio"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
)

// Configuration bounds.
const (
	// MinBufferMS and MaxBufferMS bound the audio buffer duration.
	MinBufferMS = 20
	MaxBufferMS = 500

	// DefaultBufferMS is the default audio buffer duration.
	DefaultBufferMS = 100

	// DefaultSignalingTimeout bounds each outstanding AVDTP procedure.
	DefaultSignalingTimeout = 3 * time.Second

	// DefaultMaxConfigAttempts bounds SET_CONFIGURATION retries before
	// the session falls back to Connected.
	DefaultMaxConfigAttempts = 3
)

// Config carries the startup and negotiation parameters of a source.
// All values are consumed at startup or negotiation time and are
// immutable for the life of a session.
type Config struct {
	// DeviceName is the advertised Bluetooth name.
	DeviceName string

	// DefaultBitpool is the bitpool proposed in the first configuration
	// attempt, 2-250. Retries reduce it.
	DefaultBitpool uint8

	// AutoReconnect re-enters Discoverable automatically after an
	// unexpected link loss.
	AutoReconnect bool

	// AudioBufferMS is the ring buffer duration in milliseconds, 20-500.
	AudioBufferMS int

	// OverflowPolicy selects producer behavior on a full buffer.
	// Drop-oldest is the default: stale audio is useless for live
	// playback, and dropping newest would discard the current sound.
	OverflowPolicy audio.OverflowPolicy

	// MaxConfigAttempts bounds configuration retries.
	MaxConfigAttempts int

	// SignalingTimeout is the per-procedure response deadline.
	SignalingTimeout time.Duration

	// Format is the PCM format delivered by the capture side.
	Format audio.Format
}

// DefaultConfig returns the conventional high-quality defaults:
// 44.1 kHz stereo in, bitpool 53, 100 ms buffer, drop-oldest.
func DefaultConfig() Config {
	return Config{
		DeviceName:        "go-a2dp-source",
		DefaultBitpool:    sbc.DefaultBitpool,
		AutoReconnect:     true,
		AudioBufferMS:     DefaultBufferMS,
		OverflowPolicy:    audio.DropOldest,
		MaxConfigAttempts: DefaultMaxConfigAttempts,
		SignalingTimeout:  DefaultSignalingTimeout,
		Format:            audio.DefaultFormat(),
	}
}

// Validate checks every bound. Called once at source construction.
func (c Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("a2dp: device name must not be empty")
	}
	if c.DefaultBitpool < sbc.MinBitpool || c.DefaultBitpool > sbc.MaxBitpool {
		return fmt.Errorf("a2dp: default bitpool %d outside %d-%d",
			c.DefaultBitpool, sbc.MinBitpool, sbc.MaxBitpool)
	}
	if c.AudioBufferMS < MinBufferMS || c.AudioBufferMS > MaxBufferMS {
		return fmt.Errorf("a2dp: audio buffer %d ms outside %d-%d ms",
			c.AudioBufferMS, MinBufferMS, MaxBufferMS)
	}
	if c.MaxConfigAttempts < 1 {
		return fmt.Errorf("a2dp: max config attempts must be at least 1")
	}
	if c.SignalingTimeout <= 0 {
		return fmt.Errorf("a2dp: signaling timeout must be positive")
	}
	if c.Format.SampleRate == 0 || c.Format.Channels == 0 {
		return fmt.Errorf("a2dp: PCM format incomplete")
	}
	if _, err := sbc.FrequencyFromHz(c.Format.SampleRate); err != nil {
		return fmt.Errorf("a2dp: %w", err)
	}
	return nil
}
