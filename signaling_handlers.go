package a2dp

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hastur-dev/bluetooth-a2dp/audio"
	"github.com/hastur-dev/bluetooth-a2dp/avdtp"
	"github.com/hastur-dev/bluetooth-a2dp/l2cap"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
	"github.com/sirupsen/logrus"
)

// handleL2CAPSignaling processes one command on the fixed signaling
// CID: channel establishment, configuration, and disconnection for the
// AVDTP signaling and media channels.
func (m *Manager) handleL2CAPSignaling(payload []byte) error {
	cmd, err := l2cap.ParseCommand(payload)
	if err != nil {
		return err
	}

	switch cmd.Code {
	case l2cap.CodeConnectionRequest:
		return m.onL2CAPConnectionRequest(cmd)
	case l2cap.CodeConnectionResponse:
		return m.onL2CAPConnectionResponse(cmd)
	case l2cap.CodeConfigureRequest:
		return m.onL2CAPConfigureRequest(cmd)
	case l2cap.CodeConfigureResponse:
		return m.onL2CAPConfigureResponse(cmd)
	case l2cap.CodeDisconnectionRequest:
		return m.onL2CAPDisconnectionRequest(cmd)
	case l2cap.CodeDisconnectionResponse:
		return nil
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handleL2CAPSignaling",
			"code":     cmd.Code,
		}).Debug("Ignoring L2CAP signaling command")
		return nil
	}
}

// onL2CAPConnectionRequest accepts a peer-initiated AVDTP channel. The
// first channel on a link is the signaling channel, the second the
// media channel; AVDTP defines this ordering.
func (m *Manager) onL2CAPConnectionRequest(cmd *l2cap.Command) error {
	psm, peerCID, err := l2cap.ParseConnectionRequest(cmd.Payload)
	if err != nil {
		return err
	}
	if psm != l2cap.PSMAVDTP {
		rsp := l2cap.NewConnectionResponse(cmd.Identifier, 0, peerCID, l2cap.ConnResultPSMNotSupported)
		return m.sendOnFixedCID(rsp.Marshal())
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		// Peer connected the link and opens signaling before we did.
		m.mu.Lock()
		conn = NewConnection(m.sm.RemoteAddr(), m.sm.Handle(), localSourceSEID)
		m.conn = conn
		m.mu.Unlock()
	}

	ch, err := m.channels.Open(psm)
	if err != nil {
		rsp := l2cap.NewConnectionResponse(cmd.Identifier, 0, peerCID, l2cap.ConnResultNoResources)
		return m.sendOnFixedCID(rsp.Marshal())
	}
	ch.SetRemoteCID(peerCID)

	if conn.SignalingChannel() == nil {
		conn.SetSignalingChannel(ch)
	} else if conn.MediaChannel() == nil {
		conn.SetMediaChannel(ch)
	}

	rsp := l2cap.NewConnectionResponse(cmd.Identifier, ch.LocalCID(), peerCID, l2cap.ConnResultSuccess)
	if err := m.sendOnFixedCID(rsp.Marshal()); err != nil {
		return err
	}
	return m.sendL2CAPRequest(ch, l2cap.NewConfigureRequest(0, peerCID, l2cap.DefaultMTU))
}

func (m *Manager) onL2CAPConnectionResponse(cmd *l2cap.Command) error {
	peerCID, _, result, err := l2cap.ParseConnectionResponse(cmd.Payload)
	if err != nil {
		return err
	}
	if result == l2cap.ConnResultPending {
		return nil
	}

	m.mu.Lock()
	localCID, ok := m.pendingL2CAP[cmd.Identifier]
	delete(m.pendingL2CAP, cmd.Identifier)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	ch, ok := m.channels.Lookup(localCID)
	if !ok {
		return nil
	}

	if result != l2cap.ConnResultSuccess {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.onL2CAPConnectionResponse",
			"result":   result,
		}).Warn("Peer refused L2CAP channel")
		m.channels.Close(localCID)
		m.dispatch(Event{Kind: EventSignalingFailed})
		return nil
	}

	ch.SetRemoteCID(peerCID)
	return m.sendL2CAPRequest(ch, l2cap.NewConfigureRequest(0, peerCID, l2cap.DefaultMTU))
}

func (m *Manager) onL2CAPConfigureRequest(cmd *l2cap.Command) error {
	destCID, mtu, err := l2cap.ParseConfigureRequest(cmd.Payload)
	if err != nil {
		return err
	}
	ch, ok := m.channels.Lookup(destCID)
	if !ok {
		return nil
	}

	agreed := mtu
	if agreed == 0 {
		agreed = l2cap.DefaultMTU
	}
	rsp := l2cap.NewConfigureResponse(cmd.Identifier, ch.RemoteCID(), l2cap.ConfigResultSuccess, agreed)
	if err := m.sendOnFixedCID(rsp.Marshal()); err != nil {
		return err
	}

	if ch.MarkConfigured(false, agreed) {
		m.onChannelOpen(ch)
	}
	return nil
}

func (m *Manager) onL2CAPConfigureResponse(cmd *l2cap.Command) error {
	_, result, _, err := l2cap.ParseConfigureResponse(cmd.Payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	localCID, ok := m.pendingL2CAP[cmd.Identifier]
	delete(m.pendingL2CAP, cmd.Identifier)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	ch, ok := m.channels.Lookup(localCID)
	if !ok {
		return nil
	}

	if result != l2cap.ConfigResultSuccess {
		m.dispatch(Event{Kind: EventSignalingFailed})
		return nil
	}
	if ch.MarkConfigured(true, 0) {
		m.onChannelOpen(ch)
	}
	return nil
}

func (m *Manager) onL2CAPDisconnectionRequest(cmd *l2cap.Command) error {
	destCID, sourceCID, err := l2cap.ParseDisconnection(cmd.Payload)
	if err != nil {
		return err
	}
	m.channels.Close(destCID)
	rsp := l2cap.NewDisconnectionResponse(cmd.Identifier, destCID, sourceCID)
	return m.sendOnFixedCID(rsp.Marshal())
}

// onChannelOpen dispatches the session event matching the channel that
// completed its handshake.
func (m *Manager) onChannelOpen(ch *l2cap.Channel) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	switch {
	case conn.SignalingChannel() == ch:
		m.dispatch(Event{Kind: EventSignalingChannelOpen})
	case conn.MediaChannel() == ch:
		if err := m.startMediaSession(conn, ch); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.onChannelOpen",
				"mtu":      ch.MTU(),
				"error":    err.Error(),
			}).Warn("Media channel unusable for negotiated stream, aborting")

			m.channels.Close(ch.LocalCID())
			conn.SetMediaChannel(nil)
			if abortErr := m.sendStreamCommand(avdtp.SignalAbort); abortErr != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Manager.onChannelOpen",
					"error":    abortErr.Error(),
				}).Debug("Failed to send ABORT for unusable stream")
			}
			m.dispatch(Event{Kind: EventConfigRejected})
			return
		}
		m.dispatch(Event{Kind: EventStreamOpened})
	}
}

// startMediaSession prepares the packetizer for a fresh stream: new
// SSRC, sequence and timestamp reset, sized to the media channel MTU.
// The negotiated frame size is checked again here: negotiation used
// the signaling channel's MTU as a stand-in, and the media channel may
// have configured a smaller one.
func (m *Manager) startMediaSession(conn *Connection, media *l2cap.Channel) error {
	cfg, ok := conn.StreamConfig()
	if !ok {
		return ErrNotConnected
	}
	if err := ValidateFrameSize(cfg.FrameSize(), media.MTU()); err != nil {
		return err
	}

	p := NewMediaPacketizer(media.MTU(), uint32(cfg.SamplesPerFrame()))
	p.Reset(rand.Uint32())

	m.mu.Lock()
	m.packetizer = p
	m.mu.Unlock()
	return nil
}

// handleAVDTP processes one signaling PDU on the AVDTP signaling
// channel: responses resolve tracked transactions, commands are served
// as the peer's acceptor.
func (m *Manager) handleAVDTP(payload []byte) error {
	msg, err := avdtp.ParseMessage(payload)
	if err != nil {
		return err
	}

	if msg.Type == avdtp.MessageCommand {
		return m.handleAVDTPCommand(msg)
	}

	pending, ok := m.tracker.Match(msg)
	if !ok {
		return nil
	}

	if msg.Type != avdtp.MessageResponseAccept {
		return m.handleAVDTPReject(pending, msg)
	}
	return m.handleAVDTPAccept(pending, msg)
}

func (m *Manager) handleAVDTPAccept(pending *avdtp.Pending, msg *avdtp.Message) error {
	logrus.WithFields(logrus.Fields{
		"function": "Manager.handleAVDTPAccept",
		"signal":   pending.Signal.String(),
		"rtt_ms":   time.Since(pending.SentAt).Milliseconds(),
	}).Debug("AVDTP procedure accepted")

	switch pending.Signal {
	case avdtp.SignalDiscover:
		endpoints, err := avdtp.ParseDiscoverResponse(msg.Payload)
		if err != nil {
			return err
		}
		sink, ok := avdtp.FindAudioSink(endpoints)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function":  "Manager.handleAVDTPAccept",
				"endpoints": len(endpoints),
			}).Warn("Peer has no free audio sink endpoint")
			m.dispatch(Event{Kind: EventSignalingFailed})
			return ErrNoAudioSink
		}
		m.withConn(func(c *Connection) { c.SetRemoteSEID(sink.SEID) })
		return m.sendGetCapabilities(sink.SEID)

	case avdtp.SignalGetCapabilities:
		cap, err := avdtp.ParseCapabilities(msg.Payload)
		if err != nil {
			m.dispatch(Event{Kind: EventSignalingFailed})
			return err
		}
		m.mu.Lock()
		m.remoteCap = cap
		m.haveRemoteCap = true
		m.mu.Unlock()
		return m.sendSetConfiguration(m.config.DefaultBitpool)

	case avdtp.SignalSetConfiguration:
		m.mu.Lock()
		cfg := m.proposedConfig
		m.mu.Unlock()
		m.withConn(func(c *Connection) { c.SetStreamConfig(cfg) })

		// The accepted configuration becomes the immutable snapshot of
		// this negotiation epoch.
		epoch := m.configCell.Publish(cfg)
		logrus.WithFields(logrus.Fields{
			"function":     "Manager.handleAVDTPAccept",
			"epoch":        epoch,
			"bitpool":      cfg.Bitpool,
			"sample_rate":  cfg.SamplingFrequency.Hz(),
			"channel_mode": cfg.ChannelMode.String(),
		}).Info("Stream configuration accepted")

		return m.sendStreamCommand(avdtp.SignalOpen)

	case avdtp.SignalOpen:
		var conn *Connection
		m.mu.Lock()
		conn = m.conn
		m.mu.Unlock()
		if conn == nil {
			return ErrNotConnected
		}
		return m.openMediaChannel(conn)

	case avdtp.SignalStart:
		m.dispatch(Event{Kind: EventStreamStarted})
		return nil

	case avdtp.SignalSuspend:
		m.discardPendingMedia()
		m.dispatch(Event{Kind: EventStreamSuspended})
		return nil

	case avdtp.SignalClose, avdtp.SignalAbort:
		m.discardPendingMedia()
		m.dispatch(Event{Kind: EventStreamClosed})
		return nil
	}

	return nil
}

func (m *Manager) handleAVDTPReject(pending *avdtp.Pending, msg *avdtp.Message) error {
	code := msg.RejectError()
	logrus.WithFields(logrus.Fields{
		"function": "Manager.handleAVDTPReject",
		"signal":   pending.Signal.String(),
		"error":    code,
	}).Warn("AVDTP procedure rejected")

	if pending.Signal == avdtp.SignalSetConfiguration {
		m.dispatch(Event{Kind: EventConfigRejected})
		return nil
	}
	m.dispatch(Event{Kind: EventSignalingFailed})
	return nil
}

// handleAVDTPCommand serves the acceptor side so a sink-initiated
// session works too: discovery and capability queries answer from the
// local endpoint, stream commands feed the state machine.
func (m *Manager) handleAVDTPCommand(msg *avdtp.Message) error {
	switch msg.Signal {
	case avdtp.SignalDiscover:
		m.mu.Lock()
		record := m.localSEP.DiscoverRecord()
		m.mu.Unlock()
		return m.sendAVDTP(&avdtp.Message{
			Label:   msg.Label,
			Type:    avdtp.MessageResponseAccept,
			Signal:  msg.Signal,
			Payload: record[:],
		})

	case avdtp.SignalGetCapabilities, avdtp.SignalGetAllCapabilities:
		m.mu.Lock()
		caps := avdtp.MarshalCapabilities(m.localSEP.Capability)
		m.mu.Unlock()
		return m.sendAVDTP(&avdtp.Message{
			Label:   msg.Label,
			Type:    avdtp.MessageResponseAccept,
			Signal:  msg.Signal,
			Payload: caps,
		})

	case avdtp.SignalSetConfiguration:
		return m.acceptConfiguration(msg)

	case avdtp.SignalOpen:
		return m.acceptStreamCommand(msg, EventStreamOpened)

	case avdtp.SignalStart:
		return m.acceptStreamCommand(msg, EventStreamStarted)

	case avdtp.SignalSuspend:
		m.discardPendingMedia()
		return m.acceptStreamCommand(msg, EventStreamSuspended)

	case avdtp.SignalClose, avdtp.SignalAbort:
		m.discardPendingMedia()
		return m.acceptStreamCommand(msg, EventStreamClosed)

	default:
		return m.sendAVDTP(&avdtp.Message{
			Label:  msg.Label,
			Type:   avdtp.MessageGeneralReject,
			Signal: msg.Signal,
		})
	}
}

// acceptConfiguration validates a peer-proposed configuration against
// the SBC limits and the media MTU. An out-of-range proposal (bitpool
// 255, oversized frame) is rejected and the session never reaches
// Open.
func (m *Manager) acceptConfiguration(msg *avdtp.Message) error {
	reject := func(code avdtp.ErrorCode) error {
		return m.sendAVDTP(&avdtp.Message{
			Label:   msg.Label,
			Type:    avdtp.MessageResponseReject,
			Signal:  msg.Signal,
			Payload: []byte{byte(avdtp.CategoryMediaCodec), byte(code)},
		})
	}

	if len(msg.Payload) < 2 {
		return reject(avdtp.ErrCodeBadLength)
	}
	cap, err := avdtp.ParseCapabilities(msg.Payload[2:])
	if err != nil {
		return reject(avdtp.ErrCodeInvalidCapabilities)
	}

	cfg, err := configFromCapability(cap)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.acceptConfiguration",
			"error":    err.Error(),
		}).Warn("Rejecting peer stream configuration")
		return reject(avdtp.ErrCodeUnsupportedConfiguration)
	}

	mtu := l2cap.DefaultMTU
	if err := ValidateFrameSize(cfg.FrameSize(), mtu); err != nil {
		return reject(avdtp.ErrCodeUnsupportedConfiguration)
	}

	m.withConn(func(c *Connection) { c.SetStreamConfig(cfg) })
	m.configCell.Publish(cfg)

	if err := m.sendAVDTP(&avdtp.Message{
		Label:  msg.Label,
		Type:   avdtp.MessageResponseAccept,
		Signal: msg.Signal,
	}); err != nil {
		return err
	}
	return nil
}

// acceptStreamCommand accepts a stream-level command and feeds the
// matching event to the state machine. Redundant SUSPEND and CLOSE are
// accepted idempotently; the state machine treats them as no-ops.
func (m *Manager) acceptStreamCommand(msg *avdtp.Message, ev EventKind) error {
	if err := m.sendAVDTP(&avdtp.Message{
		Label:  msg.Label,
		Type:   avdtp.MessageResponseAccept,
		Signal: msg.Signal,
	}); err != nil {
		return err
	}

	if ev == EventStreamOpened {
		// Media channel establishment follows the peer's OPEN; the
		// state moves when that channel completes its handshake.
		return nil
	}
	m.dispatch(Event{Kind: ev})
	return nil
}

// discardPendingMedia drops any partially filled media packet. Frames
// held across a suspend would be stale on resume; freshness wins over
// completeness.
func (m *Manager) discardPendingMedia() {
	m.mu.Lock()
	p := m.packetizer
	m.mu.Unlock()
	if p != nil {
		p.Discard()
	}
}

// withConn runs fn against the current connection if one exists.
func (m *Manager) withConn(fn func(*Connection)) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		fn(conn)
	}
}

// negotiateConfig selects the best configuration the remote capability
// allows, biased toward the local PCM format and the requested
// bitpool.
func negotiateConfig(cap avdtp.SBCCapability, bitpool uint8, format audio.Format) (sbc.Config, error) {
	cfg := sbc.Config{}

	freq, err := sbc.FrequencyFromHz(format.SampleRate)
	if err != nil {
		return cfg, err
	}
	if !capSupportsFrequency(cap, freq) {
		return cfg, fmt.Errorf("a2dp: peer does not support %d Hz", format.SampleRate)
	}
	cfg.SamplingFrequency = freq

	switch {
	case format.Channels >= 2 && cap.ChannelModes&avdtp.ModeBitJointStereo != 0:
		cfg.ChannelMode = sbc.ModeJointStereo
	case format.Channels >= 2 && cap.ChannelModes&avdtp.ModeBitStereo != 0:
		cfg.ChannelMode = sbc.ModeStereo
	case format.Channels >= 2 && cap.ChannelModes&avdtp.ModeBitDualChannel != 0:
		cfg.ChannelMode = sbc.ModeDualChannel
	case cap.ChannelModes&avdtp.ModeBitMono != 0:
		cfg.ChannelMode = sbc.ModeMono
	default:
		return cfg, fmt.Errorf("a2dp: no compatible channel mode")
	}

	switch {
	case cap.BlockLengths&avdtp.BlockBit16 != 0:
		cfg.BlockLength = sbc.Blocks16
	case cap.BlockLengths&avdtp.BlockBit12 != 0:
		cfg.BlockLength = sbc.Blocks12
	case cap.BlockLengths&avdtp.BlockBit8 != 0:
		cfg.BlockLength = sbc.Blocks8
	default:
		cfg.BlockLength = sbc.Blocks4
	}

	if cap.Subbands&avdtp.SubbandBit8 != 0 {
		cfg.Subbands = sbc.Subbands8
	} else {
		cfg.Subbands = sbc.Subbands4
	}

	if cap.AllocationMethods&avdtp.AllocBitLoudness != 0 {
		cfg.AllocationMethod = sbc.AllocLoudness
	} else {
		cfg.AllocationMethod = sbc.AllocSNR
	}

	// Clamp the bitpool into the peer's advertised window.
	if bitpool > cap.MaxBitpool {
		bitpool = cap.MaxBitpool
	}
	if bitpool < cap.MinBitpool {
		bitpool = cap.MinBitpool
	}
	cfg.Bitpool = bitpool

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func capSupportsFrequency(cap avdtp.SBCCapability, freq sbc.SamplingFrequency) bool {
	switch freq {
	case sbc.Freq16000:
		return cap.SamplingFrequencies&avdtp.FreqBit16000 != 0
	case sbc.Freq32000:
		return cap.SamplingFrequencies&avdtp.FreqBit32000 != 0
	case sbc.Freq44100:
		return cap.SamplingFrequencies&avdtp.FreqBit44100 != 0
	case sbc.Freq48000:
		return cap.SamplingFrequencies&avdtp.FreqBit48000 != 0
	default:
		return false
	}
}

// configCapability encodes one concrete configuration as a
// single-option capability for SET_CONFIGURATION.
func configCapability(cfg sbc.Config) avdtp.SBCCapability {
	cap := avdtp.SBCCapability{
		MinBitpool: cfg.Bitpool,
		MaxBitpool: cfg.Bitpool,
	}

	switch cfg.SamplingFrequency {
	case sbc.Freq16000:
		cap.SamplingFrequencies = avdtp.FreqBit16000
	case sbc.Freq32000:
		cap.SamplingFrequencies = avdtp.FreqBit32000
	case sbc.Freq44100:
		cap.SamplingFrequencies = avdtp.FreqBit44100
	case sbc.Freq48000:
		cap.SamplingFrequencies = avdtp.FreqBit48000
	}

	switch cfg.ChannelMode {
	case sbc.ModeMono:
		cap.ChannelModes = avdtp.ModeBitMono
	case sbc.ModeDualChannel:
		cap.ChannelModes = avdtp.ModeBitDualChannel
	case sbc.ModeStereo:
		cap.ChannelModes = avdtp.ModeBitStereo
	case sbc.ModeJointStereo:
		cap.ChannelModes = avdtp.ModeBitJointStereo
	}

	switch cfg.BlockLength {
	case sbc.Blocks4:
		cap.BlockLengths = avdtp.BlockBit4
	case sbc.Blocks8:
		cap.BlockLengths = avdtp.BlockBit8
	case sbc.Blocks12:
		cap.BlockLengths = avdtp.BlockBit12
	case sbc.Blocks16:
		cap.BlockLengths = avdtp.BlockBit16
	}

	if cfg.Subbands == sbc.Subbands8 {
		cap.Subbands = avdtp.SubbandBit8
	} else {
		cap.Subbands = avdtp.SubbandBit4
	}

	if cfg.AllocationMethod == sbc.AllocLoudness {
		cap.AllocationMethods = avdtp.AllocBitLoudness
	} else {
		cap.AllocationMethods = avdtp.AllocBitSNR
	}

	return cap
}

// configFromCapability converts a single-option proposal back into a
// concrete configuration, failing on ambiguous or out-of-range values.
func configFromCapability(cap avdtp.SBCCapability) (sbc.Config, error) {
	cfg := sbc.Config{}

	switch cap.SamplingFrequencies {
	case avdtp.FreqBit16000:
		cfg.SamplingFrequency = sbc.Freq16000
	case avdtp.FreqBit32000:
		cfg.SamplingFrequency = sbc.Freq32000
	case avdtp.FreqBit44100:
		cfg.SamplingFrequency = sbc.Freq44100
	case avdtp.FreqBit48000:
		cfg.SamplingFrequency = sbc.Freq48000
	default:
		return cfg, fmt.Errorf("a2dp: proposal must select exactly one frequency")
	}

	switch cap.ChannelModes {
	case avdtp.ModeBitMono:
		cfg.ChannelMode = sbc.ModeMono
	case avdtp.ModeBitDualChannel:
		cfg.ChannelMode = sbc.ModeDualChannel
	case avdtp.ModeBitStereo:
		cfg.ChannelMode = sbc.ModeStereo
	case avdtp.ModeBitJointStereo:
		cfg.ChannelMode = sbc.ModeJointStereo
	default:
		return cfg, fmt.Errorf("a2dp: proposal must select exactly one channel mode")
	}

	switch cap.BlockLengths {
	case avdtp.BlockBit4:
		cfg.BlockLength = sbc.Blocks4
	case avdtp.BlockBit8:
		cfg.BlockLength = sbc.Blocks8
	case avdtp.BlockBit12:
		cfg.BlockLength = sbc.Blocks12
	case avdtp.BlockBit16:
		cfg.BlockLength = sbc.Blocks16
	default:
		return cfg, fmt.Errorf("a2dp: proposal must select exactly one block length")
	}

	switch cap.Subbands {
	case avdtp.SubbandBit4:
		cfg.Subbands = sbc.Subbands4
	case avdtp.SubbandBit8:
		cfg.Subbands = sbc.Subbands8
	default:
		return cfg, fmt.Errorf("a2dp: proposal must select exactly one subband count")
	}

	switch cap.AllocationMethods {
	case avdtp.AllocBitSNR:
		cfg.AllocationMethod = sbc.AllocSNR
	case avdtp.AllocBitLoudness:
		cfg.AllocationMethod = sbc.AllocLoudness
	default:
		return cfg, fmt.Errorf("a2dp: proposal must select exactly one allocation method")
	}

	if cap.MinBitpool != cap.MaxBitpool {
		return cfg, fmt.Errorf("a2dp: proposal must pin the bitpool")
	}
	cfg.Bitpool = cap.MinBitpool

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
