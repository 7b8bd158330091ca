package a2dp

import (
	"context"
	"errors"
	"time"

	"github.com/hastur-dev/bluetooth-a2dp/audio"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
	"github.com/sirupsen/logrus"
)

// idleCadence is the poll interval while no stream configuration is
// published; once negotiated, the pull loop runs at the SBC frame
// duration.
const idleCadence = 10 * time.Millisecond

// Coordinator drives the data path: while the session is Streaming it
// pulls PCM from the ring buffer at the SBC frame cadence, encodes,
// and hands frames to the manager for packetization. The session state
// is the sole gate; outside Streaming the coordinator touches nothing,
// and audio produced then is discarded by the ring rather than queued
// for later.
//
// Underrun substitutes a silence frame so encoder and timestamp
// cadence stay stable. An encode fault also substitutes silence;
// malformed SBC data is never forwarded.
type Coordinator struct {
	manager *Manager
	frames  *audio.FrameSource
	cell    *audio.ConfigCell[sbc.Config]
	metrics *Metrics

	// Per-epoch encoding state, owned by the Run goroutine.
	encoder *sbc.Encoder
	epoch   uint64

	// residue bridges the ring buffer's fixed frame granularity to the
	// negotiated encoder granularity.
	residue []int16
}

// NewCoordinator creates a coordinator bound to the session manager
// and the shared audio path.
func NewCoordinator(manager *Manager, frames *audio.FrameSource, cell *audio.ConfigCell[sbc.Config], metrics *Metrics) *Coordinator {
	return &Coordinator{
		manager: manager,
		frames:  frames,
		cell:    cell,
		metrics: metrics,
	}
}

// Run executes the pull loop until the context is canceled. A CLOSE or
// disconnect does not stop the loop; it simply finds the state gate
// shut on the next tick.
func (c *Coordinator) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Coordinator.Run",
	}).Info("Audio pipeline coordinator started")

	timer := time.NewTimer(idleCadence)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			c.tick()
			timer.Reset(c.cadence())
		}
	}
}

// cadence returns the SBC frame duration of the active configuration,
// or the idle poll interval before negotiation.
func (c *Coordinator) cadence() time.Duration {
	cfg, _, ok := c.cell.Load()
	if !ok {
		return idleCadence
	}
	return cfg.FrameDuration()
}

// tick performs one pull-encode-send cycle when the session is
// Streaming.
func (c *Coordinator) tick() {
	if c.manager.State() != StateStreaming {
		return
	}

	cfg, epoch, ok := c.cell.Load()
	if !ok {
		// Teardown invalidated the configuration; drop per-epoch state.
		c.encoder = nil
		c.epoch = 0
		c.residue = nil
		return
	}

	if c.encoder == nil || epoch != c.epoch {
		enc, err := sbc.NewEncoder(cfg)
		if err != nil {
			// Validated at negotiation time; reaching here means the
			// published configuration is inconsistent.
			logrus.WithFields(logrus.Fields{
				"function": "Coordinator.tick",
				"error":    err.Error(),
			}).Error("Published configuration failed encoder validation")
			return
		}
		c.encoder = enc
		c.epoch = epoch
		c.residue = c.residue[:0]
	}

	pcm := c.nextPCM()
	encoded, err := c.encoder.Encode(pcm)
	if err != nil {
		// Per-frame failure after negotiation is a contract violation;
		// substitute silence rather than forwarding a malformed frame.
		c.metrics.addEncodeFault()
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.tick",
			"error":    err.Error(),
		}).Error("Encode fault, substituting silence")

		encoded, err = c.encoder.Encode(make([]int16, c.encoder.SamplesPerFrame()))
		if err != nil {
			return
		}
	}
	c.metrics.addFrame()

	if err := c.manager.SendMediaFrame(encoded); err != nil && !errors.Is(err, ErrNotStreaming) {
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.tick",
			"error":    err.Error(),
		}).Warn("Failed to send media frame")
	}
}

// nextPCM assembles one encoder-sized block from the ring buffer,
// buffering any remainder for the next tick. On underrun it returns
// silence so the cadence never stalls.
func (c *Coordinator) nextPCM() []int16 {
	need := c.encoder.SamplesPerFrame()

	for len(c.residue) < need {
		frame, ok := c.frames.PullFrame()
		if !ok {
			c.metrics.addSilence()
			c.residue = c.residue[:0]
			return make([]int16, need)
		}
		c.residue = append(c.residue, frame...)
	}

	pcm := make([]int16, need)
	copy(pcm, c.residue)
	c.residue = append(c.residue[:0], c.residue[need:]...)
	return pcm
}
