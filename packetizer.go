package a2dp

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Media packet framing constants. AVDTP media packets carry an RTP
// header followed by the A2DP SBC payload header.
const (
	// MediaPayloadType is the dynamic RTP payload type used for SBC.
	MediaPayloadType = 96

	// rtpHeaderSize is the fixed RTP header length without CSRCs.
	rtpHeaderSize = 12

	// payloadHeaderSize is the one-byte A2DP SBC payload header.
	payloadHeaderSize = 1

	// MediaPacketOverhead is the total per-packet framing cost; an SBC
	// frame must fit under MTU minus this to be transmittable at all.
	MediaPacketOverhead = rtpHeaderSize + payloadHeaderSize

	// maxFramesPerPacket is the 4-bit frame count limit of the SBC
	// payload header.
	maxFramesPerPacket = 15
)

// MediaPacketizer assembles SBC frames into AVDTP media packets sized
// to the negotiated MTU. Frames are packed whole: a frame is never
// split across packets, so a decoder always sees complete frames. A
// frame too large to fit alone is a negotiation-time configuration
// error checked by ValidateFrameSize, never a packetizer concern.
//
// The sequence number resets to 0 on each Open; the timestamp advances
// by the PCM samples each frame represents, independent of wall-clock
// send time.
type MediaPacketizer struct {
	mu sync.Mutex

	mtu             int
	samplesPerFrame uint32

	ssrc      uint32
	sequence  uint16
	timestamp uint32

	pending        [][]byte
	pendingBytes   int
	groupTimestamp uint32
}

// ValidateFrameSize reports whether an SBC frame of the given size can
// be carried under the MTU. Called during configuration negotiation so
// an oversized bitpool is rejected before the stream opens.
func ValidateFrameSize(frameSize int, mtu uint16) error {
	if frameSize+MediaPacketOverhead > int(mtu) {
		return fmt.Errorf("%w: frame %d + overhead %d > MTU %d",
			ErrFrameTooLarge, frameSize, MediaPacketOverhead, mtu)
	}
	return nil
}

// NewMediaPacketizer creates a packetizer for the given media channel
// MTU and SBC frame size in PCM samples per channel.
func NewMediaPacketizer(mtu uint16, samplesPerFrame uint32) *MediaPacketizer {
	return &MediaPacketizer{
		mtu:             int(mtu),
		samplesPerFrame: samplesPerFrame,
	}
}

// Reset starts a new media session under a fresh SSRC: sequence and
// timestamp return to zero, pending frames are discarded. Called on
// each AVDTP OPEN.
func (p *MediaPacketizer) Reset(ssrc uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ssrc = ssrc
	p.sequence = 0
	p.timestamp = 0
	p.pending = nil
	p.pendingBytes = 0

	logrus.WithFields(logrus.Fields{
		"function": "MediaPacketizer.Reset",
		"ssrc":     ssrc,
	}).Debug("Media packetizer reset for new stream")
}

// Push adds one SBC frame. When the pending group can take no further
// frame, the group is emitted as one marshaled media packet and the new
// frame starts the next group. Returns nil when the frame was queued
// without completing a packet.
func (p *MediaPacketizer) Push(frame []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(frame)+MediaPacketOverhead > p.mtu {
		return nil, fmt.Errorf("%w: frame %d bytes, MTU %d", ErrFrameTooLarge, len(frame), p.mtu)
	}

	var packet []byte
	if len(p.pending) > 0 && !p.fits(len(frame)) {
		var err error
		packet, err = p.emit()
		if err != nil {
			return nil, err
		}
	}

	if len(p.pending) == 0 {
		p.groupTimestamp = p.timestamp
	}
	p.pending = append(p.pending, frame)
	p.pendingBytes += len(frame)
	p.timestamp += p.samplesPerFrame

	return packet, nil
}

// Flush emits the pending group immediately instead of waiting for the
// MTU to fill. The manager discards pending frames on suspend and
// close (stale audio is worthless on resume); Flush exists for
// embedders that prefer completeness over freshness. Returns nil when
// nothing is pending.
func (p *MediaPacketizer) Flush() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return nil, nil
	}
	return p.emit()
}

// Discard drops the pending group without emitting it. Used when the
// stream leaves Streaming: frames held across a suspend would be stale
// on resume.
func (p *MediaPacketizer) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	p.pendingBytes = 0
}

// SequenceNumber returns the next outgoing sequence number.
func (p *MediaPacketizer) SequenceNumber() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequence
}

// Timestamp returns the running sample-count timestamp.
func (p *MediaPacketizer) Timestamp() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timestamp
}

// fits reports whether one more frame of the given size still fits the
// pending packet.
func (p *MediaPacketizer) fits(frameLen int) bool {
	if len(p.pending) >= maxFramesPerPacket {
		return false
	}
	return MediaPacketOverhead+p.pendingBytes+frameLen <= p.mtu
}

// emit marshals the pending group into one media packet. Caller holds
// the mutex.
func (p *MediaPacketizer) emit() ([]byte, error) {
	payload := make([]byte, payloadHeaderSize, payloadHeaderSize+p.pendingBytes)
	payload[0] = uint8(len(p.pending)) & 0x0F
	for _, frame := range p.pending {
		payload = append(payload, frame...)
	}

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    MediaPayloadType,
			SequenceNumber: p.sequence,
			Timestamp:      p.groupTimestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}

	raw, err := pkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("a2dp: marshaling media packet: %w", err)
	}

	p.sequence++
	p.pending = nil
	p.pendingBytes = 0
	return raw, nil
}
