package a2dp

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hastur-dev/bluetooth-a2dp/audio"
	"github.com/hastur-dev/bluetooth-a2dp/hci"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// iterateInterval is how often the session loop pumps signaling
// deadlines.
const iterateInterval = 50 * time.Millisecond

// Source is the top-level A2DP source. It wires the control path
// (Manager) and the data path (Coordinator) around the shared ring
// buffer and configuration cell, and runs both under one errgroup.
//
// The capture context calls PushPCM; everything else reacts to session
// state. Create with New, run with Run, shut down with Kill or by
// canceling the Run context.
type Source struct {
	config Config

	manager     *Manager
	coordinator *Coordinator
	frames      *audio.FrameSource
	cell        *audio.ConfigCell[sbc.Config]
	metrics     *Metrics

	killed atomic.Bool
}

// New creates a source over the given HCI transport.
//
// The ring buffer capacity is fixed here for the life of the source,
// sized from the configured buffer duration. The frame granularity is
// the preferred SBC frame (16 blocks, 8 subbands); the coordinator
// bridges to whatever granularity negotiation actually lands on.
func New(transport hci.Transport, config Config) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	samplesPerFrame := sbc.Blocks16.Count() * sbc.Subbands8.Count() * int(config.Format.Channels)
	bufferFrames := audio.BufferDurationFrames(config.AudioBufferMS, config.Format, samplesPerFrame)

	frames, err := audio.NewFrameSource(samplesPerFrame, bufferFrames, config.OverflowPolicy)
	if err != nil {
		return nil, err
	}

	cell := audio.NewConfigCell[sbc.Config]()
	metrics := &Metrics{}

	manager := NewManager(transport, config, cell, metrics)
	manager.onTeardown = frames.Clear

	logrus.WithFields(logrus.Fields{
		"function":      "New",
		"device_name":   config.DeviceName,
		"buffer_ms":     config.AudioBufferMS,
		"buffer_frames": bufferFrames,
		"bitpool":       config.DefaultBitpool,
	}).Info("Created A2DP source")

	return &Source{
		config:      config,
		manager:     manager,
		coordinator: NewCoordinator(manager, frames, cell, metrics),
		frames:      frames,
		cell:        cell,
		metrics:     metrics,
	}, nil
}

// Run executes the session loop and the audio pipeline until the
// context is canceled or Kill is called. The two never block each
// other: signaling waits are pending transactions with deadlines, and
// the pipeline only reads session state.
func (s *Source) Run(ctx context.Context) error {
	if s.killed.Load() {
		return ErrSourceKilled
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.coordinator.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(iterateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if s.killed.Load() {
					return ErrSourceKilled
				}
				s.manager.Iterate()
			}
		}
	})

	return g.Wait()
}

// PushPCM feeds captured PCM samples into the ring buffer. Producer
// side only; never blocks. Returns the number of complete frames
// queued.
func (s *Source) PushPCM(samples []int16) int {
	if s.killed.Load() {
		return 0
	}
	return s.frames.PushPCM(samples)
}

// OnStateChange registers the session state callback.
func (s *Source) OnStateChange(cb func(State, time.Time)) {
	s.manager.OnStateChange(cb)
}

// State returns the current session state.
func (s *Source) State() State {
	return s.manager.State()
}

// MakeDiscoverable makes the source visible and connectable.
func (s *Source) MakeDiscoverable() error {
	return s.manager.MakeDiscoverable()
}

// Connect initiates an outbound connection to a known sink.
func (s *Source) Connect(addr hci.BdAddr) error {
	return s.manager.Connect(addr)
}

// StartStreaming starts or resumes the media stream.
func (s *Source) StartStreaming() error {
	return s.manager.Start()
}

// PauseStreaming suspends the media stream without closing it.
func (s *Source) PauseStreaming() error {
	return s.manager.Suspend()
}

// Disconnect closes the stream and the link.
func (s *Source) Disconnect() error {
	return s.manager.Disconnect()
}

// Renegotiate starts a fresh configuration episode after the peer
// rejected every attempt of an earlier one.
func (s *Source) Renegotiate() error {
	return s.manager.Renegotiate()
}

// StreamConfig returns the active negotiated configuration; ok is
// false outside a configured session.
func (s *Source) StreamConfig() (sbc.Config, bool) {
	cfg, _, ok := s.cell.Load()
	return cfg, ok
}

// Metrics returns a snapshot of the data-path counters.
func (s *Source) Metrics() MetricsSnapshot {
	snap := s.metrics.snapshot()
	snap.Underruns = s.frames.Underruns()
	snap.Overruns = s.frames.Overruns()
	return snap
}

// ServiceRecord returns the marshaled SDP AudioSource record for
// registration with the platform's SDP server.
func (s *Source) ServiceRecord() []byte {
	return s.manager.ServiceRecord()
}

// Buffered returns the number of audio frames currently queued.
func (s *Source) Buffered() int {
	return s.frames.Buffered()
}

// Kill shuts the source down: the session disconnects and the loops
// exit on their next tick. Safe to call more than once.
func (s *Source) Kill() {
	if s.killed.Swap(true) {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "Source.Kill",
	}).Info("Shutting down A2DP source")

	s.manager.Disconnect()
	s.manager.sm.Reset()
	s.frames.Clear()
	s.cell.Invalidate()
}
