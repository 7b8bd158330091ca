package a2dp

import (
	"fmt"
	"sync"
	"time"

	"github.com/hastur-dev/bluetooth-a2dp/audio"
	"github.com/hastur-dev/bluetooth-a2dp/avdtp"
	"github.com/hastur-dev/bluetooth-a2dp/hci"
	"github.com/hastur-dev/bluetooth-a2dp/l2cap"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
	"github.com/hastur-dev/bluetooth-a2dp/sdp"
	"github.com/sirupsen/logrus"
)

// localSourceSEID is the SEID of the single local source endpoint.
const localSourceSEID = 1

// Manager owns the session control path: the HCI link, the L2CAP
// signaling and media channels, the AVDTP procedures, and the session
// state machine. It negotiates the stream configuration and publishes
// it to the configuration cell the data path reads.
//
// The manager is event-driven: HCI events and inbound ACL data arrive
// through transport handlers, and Iterate pumps signaling timeouts.
// Signaling never blocks: every outstanding procedure is a pending
// transaction with its own deadline.
type Manager struct {
	mu sync.Mutex

	transport hci.Transport
	config    Config

	sm       *StateMachine
	channels *l2cap.ChannelManager
	tracker  *avdtp.Tracker

	conn     *Connection
	localSEP avdtp.StreamEndpoint

	// Negotiation scratch state for the current Configuring episode.
	remoteCap      avdtp.SBCCapability
	haveRemoteCap  bool
	proposedConfig sbc.Config
	// configFailed records an exhausted attempt budget; cleared by
	// Renegotiate and by teardown.
	configFailed bool

	configCell *audio.ConfigCell[sbc.Config]
	packetizer *MediaPacketizer
	metrics    *Metrics

	// L2CAP signaling identifier bookkeeping: identifier -> local CID
	// of the channel the request concerns.
	nextIdent     uint8
	pendingL2CAP  map[uint8]uint16

	sdpRecord *sdp.SourceRecord

	stateCb    func(State, time.Time)
	onTeardown func()
}

// NewManager creates a session manager over the given transport. The
// configuration must already be validated.
func NewManager(transport hci.Transport, config Config, cell *audio.ConfigCell[sbc.Config], metrics *Metrics) *Manager {
	m := &Manager{
		transport:    transport,
		config:       config,
		sm:           NewStateMachine(config.AutoReconnect, config.MaxConfigAttempts),
		channels:     l2cap.NewChannelManager(),
		tracker:      avdtp.NewTracker(),
		localSEP:     avdtp.NewSourceEndpoint(localSourceSEID),
		sdpRecord:    sdp.NewSourceRecord(),
		configCell:   cell,
		metrics:      metrics,
		nextIdent:    1,
		pendingL2CAP: make(map[uint8]uint16),
	}

	transport.RegisterEventHandler(hci.EventConnectionComplete, m.onConnectionComplete)
	transport.RegisterEventHandler(hci.EventConnectionRequest, m.onConnectionRequest)
	transport.RegisterEventHandler(hci.EventDisconnectionComplete, m.onDisconnectionComplete)
	transport.RegisterACLHandler(m.onACLData)

	return m
}

// OnStateChange registers the state transition callback. It is invoked
// with the new state and the transition time, outside the manager lock.
func (m *Manager) OnStateChange(cb func(State, time.Time)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCb = cb
}

// State returns the current session state. This is the single
// authoritative gate the data path consults.
func (m *Manager) State() State {
	return m.sm.State()
}

// ConfigAttempts exposes the current configuration attempt counter.
func (m *Manager) ConfigAttempts() int {
	return m.sm.ConfigAttempts()
}

// ServiceRecord returns the marshaled SDP record advertising the
// AudioSource service. The embedding application registers it with
// whatever SDP server the platform provides.
func (m *Manager) ServiceRecord() []byte {
	return m.sdpRecord.Marshal()
}

// MakeDiscoverable enters the Discoverable state and enables inquiry
// and page scan so a peer can find and connect to this source.
func (m *Manager) MakeDiscoverable() error {
	state, _ := m.dispatch(Event{Kind: EventMakeDiscoverable})
	if state != StateDiscoverable {
		return ErrInvalidState
	}
	return nil
}

// Connect initiates an outbound connection to the given peer.
func (m *Manager) Connect(addr hci.BdAddr) error {
	if addr.IsZero() {
		return fmt.Errorf("a2dp: connect to zero address")
	}
	state, _ := m.dispatch(Event{Kind: EventConnect, Addr: addr})
	if state != StateConnecting {
		return ErrInvalidState
	}
	return nil
}

// Start begins or resumes streaming. Legal from Open and Suspended;
// resuming needs no reconfiguration. From Connected after a failed
// negotiation it returns ErrConfigRejected so the caller knows to
// Renegotiate rather than retry blindly.
func (m *Manager) Start() error {
	switch m.sm.State() {
	case StateOpen, StateSuspended:
		m.dispatch(Event{Kind: EventStartStream})
		return nil
	case StateConnected:
		m.mu.Lock()
		failed := m.configFailed
		m.mu.Unlock()
		if failed {
			return ErrConfigRejected
		}
		return ErrInvalidState
	default:
		return ErrInvalidState
	}
}

// Renegotiate starts a fresh configuration episode after an earlier
// one exhausted its attempts. Legal only from Connected with the
// signaling channel still open.
func (m *Manager) Renegotiate() error {
	if m.sm.State() != StateConnected {
		return ErrInvalidState
	}

	m.mu.Lock()
	conn := m.conn
	m.configFailed = false
	m.mu.Unlock()
	if conn == nil || conn.SignalingChannel() == nil {
		return ErrNotConnected
	}

	m.dispatch(Event{Kind: EventRenegotiate})
	return nil
}

// Suspend pauses streaming, keeping the stream configured and open.
func (m *Manager) Suspend() error {
	if m.sm.State() != StateStreaming {
		return ErrInvalidState
	}
	m.dispatch(Event{Kind: EventPauseStream})
	return nil
}

// Disconnect closes the stream and the link.
func (m *Manager) Disconnect() error {
	m.dispatch(Event{Kind: EventDisconnect})
	return nil
}

// Iterate pumps per-transaction deadlines. Call it periodically from
// the session loop; a peer that stops answering converts into
// signaling-failure events instead of a stuck procedure.
func (m *Manager) Iterate() {
	for _, p := range m.tracker.Expired() {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.Iterate",
			"signal":   p.Signal.String(),
			"label":    p.Label,
		}).Warn("Signaling procedure timed out")

		m.dispatch(Event{Kind: EventSignalingFailed})
	}
}

// SendMediaFrame submits one encoded SBC frame to the media path. The
// frame is packetized and transmitted only while the session is
// Streaming; outside Streaming it is rejected, never queued.
func (m *Manager) SendMediaFrame(frame []byte) error {
	if m.sm.State() != StateStreaming {
		return ErrNotStreaming
	}

	m.mu.Lock()
	packetizer := m.packetizer
	conn := m.conn
	m.mu.Unlock()
	if packetizer == nil || conn == nil {
		return ErrNotStreaming
	}

	packet, err := packetizer.Push(frame)
	if err != nil {
		return err
	}
	if packet == nil {
		return nil
	}
	return m.sendMediaPacket(conn, packet)
}

func (m *Manager) sendMediaPacket(conn *Connection, packet []byte) error {
	media := conn.MediaChannel()
	if media == nil {
		return ErrNotStreaming
	}

	framed, err := media.Frame(packet)
	if err != nil {
		return err
	}
	if err := m.transport.SendACL(conn.Handle(), framed); err != nil {
		return fmt.Errorf("a2dp: sending media packet: %w", err)
	}

	m.metrics.addPacket(len(packet))
	return nil
}

// dispatch runs one event through the state machine, fires the state
// callback on a change, and executes the resulting action.
func (m *Manager) dispatch(ev Event) (State, Action) {
	prev := m.sm.State()
	state, action := m.sm.Process(ev)

	if state != prev {
		m.mu.Lock()
		cb := m.stateCb
		m.mu.Unlock()
		if cb != nil {
			cb(state, time.Now())
		}
	}

	m.execute(action)
	return state, action
}

func (m *Manager) execute(action Action) {
	var err error
	switch action.Kind {
	case ActionNone:
		return
	case ActionEnableDiscovery:
		err = m.enableDiscovery()
	case ActionInitiateConnection:
		err = m.transport.SendCommand(hci.OpcodeCreateConnection, hci.CreateConnectionParams(action.Addr))
	case ActionOpenSignalingChannel:
		err = m.openSignalingChannel()
	case ActionStartDiscovery:
		err = m.sendDiscover()
	case ActionRetryConfiguration:
		err = m.retryConfiguration(action.Attempt)
	case ActionSendStart:
		err = m.sendStreamCommand(avdtp.SignalStart)
	case ActionSendSuspend:
		err = m.sendStreamCommand(avdtp.SignalSuspend)
	case ActionSendClose:
		err = m.sendStreamCommand(avdtp.SignalClose)
	case ActionDisconnectLink:
		err = m.disconnectLink()
	case ActionTeardown:
		m.teardown()
	case ActionReconnect:
		m.teardown()
		err = m.enableDiscovery()
	case ActionConfigFailed:
		m.mu.Lock()
		m.configFailed = true
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Manager.execute",
		}).Warn("Stream configuration attempts exhausted, awaiting renegotiation")
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.execute",
			"action":   action.Kind,
			"error":    err.Error(),
		}).Error("Failed to execute session action")
		m.dispatch(Event{Kind: EventLinkLost})
	}
}

func (m *Manager) enableDiscovery() error {
	if err := m.transport.SendCommand(hci.OpcodeWriteLocalName, hci.LocalNameParams(m.config.DeviceName)); err != nil {
		return err
	}
	if err := m.transport.SendCommand(hci.OpcodeWriteClassOfDevice, hci.AudioDeviceClass()); err != nil {
		return err
	}
	return m.transport.SendCommand(hci.OpcodeWriteScanEnable, []byte{hci.ScanInquiryAndPage})
}

// openSignalingChannel creates the per-link connection record and
// starts the L2CAP handshake for the AVDTP signaling channel.
func (m *Manager) openSignalingChannel() error {
	ch, err := m.channels.Open(l2cap.PSMAVDTP)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = NewConnection(m.sm.RemoteAddr(), m.sm.Handle(), localSourceSEID)
	m.conn.SetSignalingChannel(ch)
	m.haveRemoteCap = false
	m.mu.Unlock()

	return m.sendL2CAPRequest(ch, l2cap.NewConnectionRequest(0, l2cap.PSMAVDTP, ch.LocalCID()))
}

// openMediaChannel starts the L2CAP handshake for the media transport
// channel after AVDTP OPEN is accepted.
func (m *Manager) openMediaChannel(conn *Connection) error {
	ch, err := m.channels.Open(l2cap.PSMAVDTP)
	if err != nil {
		return err
	}
	conn.SetMediaChannel(ch)
	return m.sendL2CAPRequest(ch, l2cap.NewConnectionRequest(0, l2cap.PSMAVDTP, ch.LocalCID()))
}

// sendL2CAPRequest assigns a fresh identifier, records which channel it
// concerns, and transmits the command on the fixed signaling CID.
func (m *Manager) sendL2CAPRequest(ch *l2cap.Channel, cmd *l2cap.Command) error {
	m.mu.Lock()
	ident := m.nextIdent
	m.nextIdent++
	if m.nextIdent == 0 {
		m.nextIdent = 1
	}
	if ch != nil {
		m.pendingL2CAP[ident] = ch.LocalCID()
	}
	m.mu.Unlock()

	cmd.Identifier = ident
	return m.sendOnFixedCID(cmd.Marshal())
}

// sendOnFixedCID frames a payload for the fixed L2CAP signaling
// channel (CID 0x0001) and transmits it.
func (m *Manager) sendOnFixedCID(payload []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	buf := make([]byte, 4+len(payload))
	buf[0] = byte(len(payload))
	buf[1] = byte(len(payload) >> 8)
	buf[2] = byte(l2cap.CIDSignaling)
	buf[3] = byte(l2cap.CIDSignaling >> 8)
	copy(buf[4:], payload)
	return m.transport.SendACL(conn.Handle(), buf)
}

// sendAVDTP marshals and transmits one signaling message on the AVDTP
// signaling channel.
func (m *Manager) sendAVDTP(msg *avdtp.Message) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	ch := conn.SignalingChannel()
	if ch == nil {
		return ErrNotConnected
	}

	raw, err := msg.Marshal()
	if err != nil {
		return err
	}
	framed, err := ch.Frame(raw)
	if err != nil {
		return err
	}
	return m.transport.SendACL(conn.Handle(), framed)
}

// sendAVDTPCommand begins a tracked transaction and transmits the
// command under its label.
func (m *Manager) sendAVDTPCommand(build func(label uint8) *avdtp.Message, signal avdtp.SignalID) error {
	label, err := m.tracker.Begin(signal, m.config.SignalingTimeout)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.sendAVDTPCommand",
		"signal":   signal.String(),
		"label":    label,
	}).Debug("Sending AVDTP command")

	return m.sendAVDTP(build(label))
}

func (m *Manager) sendDiscover() error {
	return m.sendAVDTPCommand(func(label uint8) *avdtp.Message {
		return avdtp.NewDiscoverCommand(label)
	}, avdtp.SignalDiscover)
}

func (m *Manager) sendGetCapabilities(remoteSEID uint8) error {
	return m.sendAVDTPCommand(func(label uint8) *avdtp.Message {
		return avdtp.NewGetCapabilitiesCommand(label, remoteSEID)
	}, avdtp.SignalGetCapabilities)
}

// sendSetConfiguration negotiates a concrete configuration from the
// remote capability and the given bitpool, validating it against both
// the SBC limits and the media MTU before proposing it.
func (m *Manager) sendSetConfiguration(bitpool uint8) error {
	m.mu.Lock()
	conn := m.conn
	cap := m.remoteCap
	haveCap := m.haveRemoteCap
	m.mu.Unlock()
	if conn == nil || !haveCap {
		return ErrNotConnected
	}

	cfg, err := negotiateConfig(cap, bitpool, m.config.Format)
	if err != nil {
		return err
	}

	// An SBC frame must fit one media packet whole; the packetizer
	// never fragments. Reject oversized configurations here, at
	// negotiation time.
	mtu := l2cap.DefaultMTU
	if ch := conn.SignalingChannel(); ch != nil {
		mtu = ch.MTU()
	}
	if err := ValidateFrameSize(cfg.FrameSize(), mtu); err != nil {
		return err
	}

	m.mu.Lock()
	m.proposedConfig = cfg
	m.mu.Unlock()

	proposal := configCapability(cfg)
	return m.sendAVDTPCommand(func(label uint8) *avdtp.Message {
		return avdtp.NewSetConfigurationCommand(label, conn.RemoteSEID(), conn.LocalSEID(),
			avdtp.MarshalCapabilities(proposal))
	}, avdtp.SignalSetConfiguration)
}

// retryConfiguration lowers the bitpool by a quarter per attempt and
// proposes again.
func (m *Manager) retryConfiguration(attempt int) error {
	bitpool := m.config.DefaultBitpool
	for i := 1; i < attempt; i++ {
		bitpool -= bitpool / 4
	}
	if bitpool < sbc.MinBitpool {
		bitpool = sbc.MinBitpool
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.retryConfiguration",
		"attempt":  attempt,
		"bitpool":  bitpool,
	}).Info("Retrying stream configuration with reduced bitpool")

	return m.sendSetConfiguration(bitpool)
}

func (m *Manager) sendStreamCommand(signal avdtp.SignalID) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	seid := conn.RemoteSEID()
	return m.sendAVDTPCommand(func(label uint8) *avdtp.Message {
		return avdtp.NewStreamCommand(label, signal, seid)
	}, signal)
}

func (m *Manager) disconnectLink() error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		// Nothing to disconnect; finish the close immediately.
		m.dispatch(Event{Kind: EventDisconnected})
		return nil
	}
	return m.transport.SendCommand(hci.OpcodeDisconnect, hci.DisconnectParams(conn.Handle()))
}

// teardown releases every per-connection resource. In-flight signaling
// waits resolve as aborted, channels close, and the data path is told
// to clear its buffer and invalidate the published configuration.
func (m *Manager) teardown() {
	aborted := m.tracker.AbortAll()
	if len(aborted) > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.teardown",
			"aborted":  len(aborted),
		}).Debug("Aborted in-flight signaling procedures")
	}

	m.channels.CloseAll()
	m.configCell.Invalidate()

	m.mu.Lock()
	m.conn = nil
	m.packetizer = nil
	m.haveRemoteCap = false
	m.configFailed = false
	m.pendingL2CAP = make(map[uint8]uint16)
	teardownCb := m.onTeardown
	m.mu.Unlock()

	if teardownCb != nil {
		teardownCb()
	}
}

// --- HCI event handlers ---

func (m *Manager) onConnectionComplete(params []byte) error {
	if len(params) < 9 {
		return fmt.Errorf("a2dp: connection complete event too short")
	}

	status := params[0]
	handle := hci.NewConnectionHandle(uint16(params[1]) | uint16(params[2])<<8)
	var addr hci.BdAddr
	copy(addr[:], params[3:9])

	if status != 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.onConnectionComplete",
			"status":   status,
			"peer":     addr.String(),
		}).Warn("Connection failed")
		m.dispatch(Event{Kind: EventConnectionFailed})
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.onConnectionComplete",
		"handle":   handle.Raw(),
		"peer":     addr.String(),
	}).Info("ACL link established")

	m.dispatch(Event{Kind: EventConnectionComplete, Addr: addr, Handle: handle})
	return nil
}

func (m *Manager) onConnectionRequest(params []byte) error {
	if len(params) < 6 {
		return fmt.Errorf("a2dp: connection request event too short")
	}
	var addr hci.BdAddr
	copy(addr[:], params[0:6])

	// Accept inbound connections only while waiting for one.
	switch m.sm.State() {
	case StateDiscoverable, StateDisconnected:
		return m.transport.SendCommand(hci.OpcodeAcceptConnection, hci.AcceptConnectionParams(addr))
	default:
		return nil
	}
}

func (m *Manager) onDisconnectionComplete(params []byte) error {
	if len(params) < 4 {
		return fmt.Errorf("a2dp: disconnection complete event too short")
	}

	if m.sm.State() == StateClosing {
		m.dispatch(Event{Kind: EventDisconnected})
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.onDisconnectionComplete",
			"reason":   params[3],
		}).Warn("Unexpected link loss")
		m.dispatch(Event{Kind: EventLinkLost})
	}
	return nil
}

// onACLData routes inbound ACL payloads: fixed-CID L2CAP signaling,
// the AVDTP signaling channel, or discard.
func (m *Manager) onACLData(handle hci.ConnectionHandle, data []byte) error {
	pdu, err := l2cap.ParsePDU(data)
	if err != nil {
		return err
	}

	if pdu.CID == l2cap.CIDSignaling {
		return m.handleL2CAPSignaling(pdu.Payload)
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil
	}
	if ch := conn.SignalingChannel(); ch != nil && pdu.CID == ch.LocalCID() {
		return m.handleAVDTP(pdu.Payload)
	}

	// A source transmits media; inbound media payloads are dropped.
	return nil
}
