package a2dp

import "sync/atomic"

// Metrics holds the data-path counters. Data-path faults (underrun,
// overrun, skipped encodes) are counted here and never raised as
// session errors.
type Metrics struct {
	packetsSent   atomic.Uint64
	framesEncoded atomic.Uint64
	silenceFrames atomic.Uint64
	encodeFaults  atomic.Uint64
	bytesSent     atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of the counters, including
// the ring buffer counts owned by the audio layer.
type MetricsSnapshot struct {
	PacketsSent   uint64
	FramesEncoded uint64
	SilenceFrames uint64
	EncodeFaults  uint64
	BytesSent     uint64
	Underruns     uint64
	Overruns      uint64
}

func (m *Metrics) addPacket(bytes int) {
	m.packetsSent.Add(1)
	m.bytesSent.Add(uint64(bytes))
}

func (m *Metrics) addFrame()       { m.framesEncoded.Add(1) }
func (m *Metrics) addSilence()     { m.silenceFrames.Add(1) }
func (m *Metrics) addEncodeFault() { m.encodeFaults.Add(1) }

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PacketsSent:   m.packetsSent.Load(),
		FramesEncoded: m.framesEncoded.Load(),
		SilenceFrames: m.silenceFrames.Load(),
		EncodeFaults:  m.encodeFaults.Load(),
		BytesSent:     m.bytesSent.Load(),
	}
}
