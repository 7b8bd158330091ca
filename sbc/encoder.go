package sbc

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Encoding errors.
var (
	// ErrInputTooSmall means the PCM slice is shorter than one frame.
	ErrInputTooSmall = errors.New("sbc: input shorter than one frame")
)

// Encoder encodes fixed-size PCM frames into SBC frames for one
// negotiated configuration. All buffers are allocated at construction;
// Encode performs no allocation beyond the returned frame copy.
//
// The encoder is not safe for concurrent use; the pipeline drives it
// from a single goroutine.
type Encoder struct {
	config   Config
	analysis *analysisFilter
	packer   *framePacker
	out      [MaxFrameSize]byte
}

// NewEncoder validates the configuration and creates an encoder.
// Validation happens here, at negotiation time; per-frame encoding is
// then expected to always succeed.
func NewEncoder(config Config) (*Encoder, error) {
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewEncoder",
			"bitpool":  config.Bitpool,
			"error":    err.Error(),
		}).Error("Rejected SBC configuration")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewEncoder",
		"sample_rate":  config.SamplingFrequency.Hz(),
		"channel_mode": config.ChannelMode.String(),
		"blocks":       config.BlockLength.Count(),
		"subbands":     config.Subbands.Count(),
		"bitpool":      config.Bitpool,
		"frame_size":   config.FrameSize(),
		"bitrate_kbps": config.BitrateKbps(),
	}).Info("Created SBC encoder")

	return &Encoder{
		config:   config,
		analysis: newAnalysisFilter(),
		packer:   newFramePacker(),
	}, nil
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() Config { return e.config }

// SamplesPerFrame returns the PCM samples consumed per Encode call,
// across all channels.
func (e *Encoder) SamplesPerFrame() int {
	return e.config.SamplesPerFrame() * e.config.Channels()
}

// Encode converts one frame of interleaved PCM into one SBC frame.
// The returned slice is a copy and remains valid after the next call.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) < e.SamplesPerFrame() {
		return nil, fmt.Errorf("%w: got %d samples, need %d",
			ErrInputTooSmall, len(pcm), e.SamplesPerFrame())
	}

	subbands := e.analysis.process(pcm, e.config)
	sf := calcScaleFactors(&subbands, e.config)

	var joinFlags uint8
	if e.config.ChannelMode == ModeJointStereo {
		subbands, joinFlags = jointStereoProcess(subbands, &sf, e.config)
	}

	alloc := allocateBits(&sf, e.config, joinFlags)
	quantized := quantize(&subbands, &alloc, &sf, e.config)

	size := e.packer.pack(e.config, joinFlags, &sf, &alloc, &quantized, e.out[:])

	frame := make([]byte, size)
	copy(frame, e.out[:size])
	return frame, nil
}

// Reset clears the analysis filter history. After Reset the encoder
// behaves exactly like a freshly constructed one.
func (e *Encoder) Reset() {
	e.analysis.reset()
}
