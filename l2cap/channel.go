// Package l2cap models L2CAP channels over an ACL link: the AVDTP
// signaling channel and the media transport channel, each with its own
// CID and negotiated MTU. Only basic-mode framing is implemented; the
// profile does not use retransmission or streaming modes.
package l2cap

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Well-known PSM (Protocol/Service Multiplexer) values.
const (
	PSMSDP    uint16 = 0x0001
	PSMRFCOMM uint16 = 0x0003
	PSMAVDTP  uint16 = 0x0019
)

// Well-known channel IDs.
const (
	CIDSignaling      uint16 = 0x0001
	CIDConnectionless uint16 = 0x0002
	CIDDynamicStart   uint16 = 0x0040
)

// DefaultMTU is the L2CAP default MTU used until configuration
// negotiates another value.
const DefaultMTU uint16 = 672

// MaxPayload is the largest complete PDU, basic header included, the
// stack will frame into one ACL transfer, regardless of how generous
// an MTU the peer configured.
const MaxPayload = 1024

// ChannelState tracks the connection-oriented channel lifecycle.
type ChannelState uint8

const (
	StateClosed ChannelState = iota
	StateWaitConnect
	StateWaitConnectRsp
	StateConfig
	StateOpen
	StateWaitDisconnect
)

// String returns the state name for logging.
func (s ChannelState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateWaitConnect:
		return "WaitConnect"
	case StateWaitConnectRsp:
		return "WaitConnectRsp"
	case StateConfig:
		return "Config"
	case StateOpen:
		return "Open"
	case StateWaitDisconnect:
		return "WaitDisconnect"
	default:
		return "Unknown"
	}
}

var (
	// ErrChannelNotOpen is returned when data is sent on a channel that
	// has not completed configuration.
	ErrChannelNotOpen = errors.New("l2cap: channel not open")
	// ErrPayloadTooLarge is returned when a payload exceeds the
	// channel's negotiated MTU.
	ErrPayloadTooLarge = errors.New("l2cap: payload exceeds channel MTU")
	// ErrNoFreeCID is returned when the dynamic CID space is exhausted.
	ErrNoFreeCID = errors.New("l2cap: no free dynamic CID")
)

// Channel is one connection-oriented L2CAP channel.
type Channel struct {
	mu sync.RWMutex

	localCID  uint16
	remoteCID uint16
	psm       uint16
	state     ChannelState
	mtu       uint16

	// Configuration handshake progress. The channel opens when both
	// directions have completed configuration.
	localConfigured  bool
	remoteConfigured bool
}

// NewChannel creates a closed channel for the given PSM with the
// default MTU.
func NewChannel(localCID, psm uint16) *Channel {
	return &Channel{
		localCID: localCID,
		psm:      psm,
		state:    StateClosed,
		mtu:      DefaultMTU,
	}
}

// LocalCID returns the locally allocated channel ID.
func (c *Channel) LocalCID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localCID
}

// RemoteCID returns the peer's channel ID, zero until connected.
func (c *Channel) RemoteCID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteCID
}

// PSM returns the protocol multiplexer the channel was opened for.
func (c *Channel) PSM() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.psm
}

// State returns the current channel state.
func (c *Channel) State() ChannelState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// MTU returns the negotiated MTU.
func (c *Channel) MTU() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mtu
}

// SetOpen marks the channel open with the peer CID and negotiated MTU.
func (c *Channel) SetOpen(remoteCID, mtu uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteCID = remoteCID
	if mtu > 0 {
		c.mtu = mtu
	}
	c.state = StateOpen

	logrus.WithFields(logrus.Fields{
		"local_cid":  c.localCID,
		"remote_cid": remoteCID,
		"psm":        c.psm,
		"mtu":        c.mtu,
	}).Debug("L2CAP channel open")
}

// SetRemoteCID records the peer's CID from a connection response and
// moves the channel into configuration.
func (c *Channel) SetRemoteCID(remoteCID uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteCID = remoteCID
	c.state = StateConfig
}

// MarkConfigured records one direction of the configuration handshake.
// Returns true when both directions are done and the channel opened.
// A non-zero mtu from the peer's configure request replaces the
// default.
func (c *Channel) MarkConfigured(local bool, mtu uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if local {
		c.localConfigured = true
	} else {
		c.remoteConfigured = true
	}
	if mtu > 0 {
		c.mtu = mtu
	}

	if c.localConfigured && c.remoteConfigured && c.state != StateOpen {
		c.state = StateOpen
		logrus.WithFields(logrus.Fields{
			"local_cid":  c.localCID,
			"remote_cid": c.remoteCID,
			"psm":        c.psm,
			"mtu":        c.mtu,
		}).Debug("L2CAP channel open")
		return true
	}
	return false
}

// SetState moves the channel through its lifecycle.
func (c *Channel) SetState(state ChannelState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Frame wraps payload in a basic L2CAP header addressed to the remote
// CID. Fails if the channel is not open or the payload exceeds the MTU.
func (c *Channel) Frame(payload []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateOpen {
		return nil, ErrChannelNotOpen
	}
	if len(payload) > int(c.mtu) || 4+len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(payload)))
	binary.LittleEndian.PutUint16(buf[2:4], c.remoteCID)
	copy(buf[4:], payload)
	return buf, nil
}

// PDU is one parsed basic-header L2CAP PDU.
type PDU struct {
	CID     uint16
	Payload []byte
}

// ParsePDU decodes a basic L2CAP header from ACL payload bytes.
func ParsePDU(raw []byte) (*PDU, error) {
	if len(raw) < 4 {
		return nil, errors.New("l2cap: PDU too short")
	}

	length := int(binary.LittleEndian.Uint16(raw[0:2]))
	cid := binary.LittleEndian.Uint16(raw[2:4])
	if len(raw) < 4+length {
		return nil, errors.New("l2cap: PDU truncated")
	}

	return &PDU{CID: cid, Payload: raw[4 : 4+length]}, nil
}

// ChannelManager allocates dynamic CIDs and routes PDUs to channels for
// a single ACL link.
type ChannelManager struct {
	mu       sync.RWMutex
	channels map[uint16]*Channel
	nextCID  uint16
}

// NewChannelManager creates an empty channel manager.
func NewChannelManager() *ChannelManager {
	return &ChannelManager{
		channels: make(map[uint16]*Channel),
		nextCID:  CIDDynamicStart,
	}
}

// Open allocates a dynamic CID and registers a new channel for psm.
func (m *ChannelManager) Open(psm uint16) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Dynamic CIDs are 0x0040-0xFFFF; in practice a handful are used.
	for i := 0; i < 0x10000-int(CIDDynamicStart); i++ {
		cid := m.nextCID
		m.nextCID++
		if m.nextCID == 0 {
			m.nextCID = CIDDynamicStart
		}
		if _, used := m.channels[cid]; used {
			continue
		}

		ch := NewChannel(cid, psm)
		ch.SetState(StateWaitConnectRsp)
		m.channels[cid] = ch

		logrus.WithFields(logrus.Fields{
			"local_cid": cid,
			"psm":       psm,
		}).Debug("Allocated L2CAP channel")
		return ch, nil
	}

	return nil, ErrNoFreeCID
}

// Lookup returns the channel with the given local CID.
func (m *ChannelManager) Lookup(localCID uint16) (*Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[localCID]
	return ch, ok
}

// Close removes the channel with the given local CID.
func (m *ChannelManager) Close(localCID uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[localCID]; ok {
		ch.SetState(StateClosed)
		delete(m.channels, localCID)
	}
}

// CloseAll tears down every channel, used on link loss.
func (m *ChannelManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cid, ch := range m.channels {
		ch.SetState(StateClosed)
		delete(m.channels, cid)
	}
}
