package audio

import (
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Format describes the PCM stream crossing the ring buffer.
type Format struct {
	// SampleRate in Hz.
	SampleRate uint32
	// Channels: 1 = mono, 2 = stereo.
	Channels uint8
	// BitsPerSample, typically 16.
	BitsPerSample uint8
}

// DefaultFormat is CD-quality stereo, the common USB audio case.
func DefaultFormat() Format {
	return Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
}

// BytesPerSample returns bytes for one sample across all channels.
func (f Format) BytesPerSample() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// BytesPerSecond returns the raw PCM data rate.
func (f Format) BytesPerSecond() int {
	return int(f.SampleRate) * f.BytesPerSample()
}

// OverflowPolicy selects what the producer does when the buffer is full.
type OverflowPolicy uint8

const (
	// DropOldest evicts the stalest frame to make room for the new one.
	// This is the default: stale audio is useless for live playback.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming frame and keeps queued audio.
	DropNewest
)

// String returns the policy name.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// Frame is one encoder-granularity block of interleaved PCM samples.
type Frame []int16

// ErrBadFrameSize is returned when a FrameSource is created with a
// non-positive frame size.
var ErrBadFrameSize = errors.New("audio: frame size must be positive")

// FrameSource adapts the USB producer's arbitrarily sized PCM blocks
// into fixed-size frames matching the SBC encoder's input granularity,
// and owns the SPSC ring buffer between the two contexts.
//
// PushPCM is producer-side only; PullFrame and SilenceFrame are
// consumer-side only. Overrun and underrun are counted, never raised.
type FrameSource struct {
	ring         *RingBuffer[Frame]
	samplesPerFr int
	policy       OverflowPolicy

	// Producer-side accumulation of a partial frame, owned exclusively
	// by the PushPCM caller. Clear runs on the Bluetooth side and must
	// not touch it; it bumps clearGen instead, and the producer resets
	// partial itself on its next call.
	partial []int16
	seenGen uint64

	clearGen  atomic.Uint64
	overruns  atomic.Uint64
	underruns atomic.Uint64
}

// NewFrameSource creates a source producing frames of samplesPerFrame
// total samples (all channels interleaved), buffering up to
// bufferFrames frames.
func NewFrameSource(samplesPerFrame, bufferFrames int, policy OverflowPolicy) (*FrameSource, error) {
	if samplesPerFrame <= 0 {
		return nil, ErrBadFrameSize
	}
	if bufferFrames < 1 {
		bufferFrames = 1
	}

	logrus.WithFields(logrus.Fields{
		"function":          "NewFrameSource",
		"samples_per_frame": samplesPerFrame,
		"buffer_frames":     bufferFrames,
		"overflow_policy":   policy.String(),
	}).Info("Creating audio frame source")

	return &FrameSource{
		ring:         NewRingBuffer[Frame](bufferFrames),
		samplesPerFr: samplesPerFrame,
		policy:       policy,
		partial:      make([]int16, 0, samplesPerFrame),
	}, nil
}

// BufferDurationFrames converts a buffer duration in milliseconds into a
// frame count for the given format and frame size, rounding up so the
// configured duration is always available.
func BufferDurationFrames(bufferMS int, format Format, samplesPerFrame int) int {
	if bufferMS <= 0 || samplesPerFrame <= 0 {
		return 1
	}
	samplesTotal := int(format.SampleRate) * int(format.Channels) * bufferMS / 1000
	frames := (samplesTotal + samplesPerFrame - 1) / samplesPerFrame
	if frames < 1 {
		frames = 1
	}
	return frames
}

// SamplesPerFrame returns the fixed frame size in samples.
func (s *FrameSource) SamplesPerFrame() int { return s.samplesPerFr }

// PushPCM accepts a PCM block from the capture side, slicing it into
// fixed-size frames. Complete frames are queued; a trailing remainder is
// held until the next block. Returns the number of complete frames
// queued (dropped frames under DropNewest are not counted).
func (s *FrameSource) PushPCM(samples []int16) int {
	if gen := s.clearGen.Load(); gen != s.seenGen {
		s.seenGen = gen
		s.partial = s.partial[:0]
	}

	queued := 0

	for len(samples) > 0 {
		need := s.samplesPerFr - len(s.partial)
		take := need
		if take > len(samples) {
			take = len(samples)
		}

		s.partial = append(s.partial, samples[:take]...)
		samples = samples[take:]

		if len(s.partial) < s.samplesPerFr {
			break
		}

		frame := make(Frame, s.samplesPerFr)
		copy(frame, s.partial)
		s.partial = s.partial[:0]

		if s.pushFrame(frame) {
			queued++
		}
	}

	return queued
}

func (s *FrameSource) pushFrame(frame Frame) bool {
	if s.ring.TryPush(frame) {
		return true
	}

	s.overruns.Add(1)

	switch s.policy {
	case DropOldest:
		s.ring.Evict()
		return s.ring.TryPush(frame)
	default:
		return false
	}
}

// PullFrame removes the oldest frame. ok is false on an empty buffer;
// the caller substitutes silence and the underrun is counted here.
func (s *FrameSource) PullFrame() (Frame, bool) {
	frame, ok := s.ring.TryPop()
	if !ok {
		s.underruns.Add(1)
		return nil, false
	}
	return frame, true
}

// SilenceFrame returns a zeroed frame of the configured size, used to
// keep encoder cadence stable through underruns.
func (s *FrameSource) SilenceFrame() Frame {
	return make(Frame, s.samplesPerFr)
}

// Buffered returns the number of complete frames queued.
func (s *FrameSource) Buffered() int { return s.ring.Len() }

// Overruns returns the producer-side overflow count.
func (s *FrameSource) Overruns() uint64 { return s.overruns.Load() }

// Underruns returns the consumer-side empty-pull count.
func (s *FrameSource) Underruns() uint64 { return s.underruns.Load() }

// Clear drops buffered frames and marks the partial accumulation for
// reset. The partial frame belongs to the producer, so it is discarded
// by the next PushPCM rather than touched from here; the ring drains
// with the consumer-side CAS. Called only on full session teardown;
// suspend keeps buffered audio intact.
func (s *FrameSource) Clear() {
	s.clearGen.Add(1)
	s.ring.Clear()

	logrus.WithFields(logrus.Fields{
		"function": "FrameSource.Clear",
	}).Debug("Audio frame buffer cleared")
}
