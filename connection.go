package a2dp

import (
	"sync"

	"github.com/hastur-dev/bluetooth-a2dp/hci"
	"github.com/hastur-dev/bluetooth-a2dp/l2cap"
	"github.com/hastur-dev/bluetooth-a2dp/sbc"
)

// Connection holds the per-link resources of one peer session: the ACL
// handle, the AVDTP signaling and media L2CAP channels, the negotiated
// stream configuration, and the remote endpoint chosen during
// discovery. At most one Connection is active at a time.
type Connection struct {
	mu sync.RWMutex

	peer      hci.BdAddr
	handle    hci.ConnectionHandle
	signaling *l2cap.Channel
	media     *l2cap.Channel

	remoteSEID uint8
	localSEID  uint8
	config     sbc.Config
	configured bool
}

// NewConnection creates a connection record for an established link.
func NewConnection(peer hci.BdAddr, handle hci.ConnectionHandle, localSEID uint8) *Connection {
	return &Connection{
		peer:      peer,
		handle:    handle,
		localSEID: localSEID,
	}
}

// Peer returns the remote device address.
func (c *Connection) Peer() hci.BdAddr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peer
}

// Handle returns the ACL connection handle.
func (c *Connection) Handle() hci.ConnectionHandle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}

// SetSignalingChannel attaches the AVDTP signaling channel.
func (c *Connection) SetSignalingChannel(ch *l2cap.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signaling = ch
}

// SignalingChannel returns the AVDTP signaling channel, nil before
// L2CAP setup.
func (c *Connection) SignalingChannel() *l2cap.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signaling
}

// SetMediaChannel attaches the media transport channel, owned
// exclusively by this connection for its lifetime.
func (c *Connection) SetMediaChannel(ch *l2cap.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media = ch
}

// MediaChannel returns the media transport channel, nil until OPEN
// completes.
func (c *Connection) MediaChannel() *l2cap.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.media
}

// SetRemoteSEID records the sink endpoint selected during discovery.
func (c *Connection) SetRemoteSEID(seid uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteSEID = seid
}

// RemoteSEID returns the selected sink endpoint, zero before discovery.
func (c *Connection) RemoteSEID() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteSEID
}

// LocalSEID returns the local source endpoint identifier.
func (c *Connection) LocalSEID() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localSEID
}

// SetStreamConfig records the configuration the peer accepted.
func (c *Connection) SetStreamConfig(cfg sbc.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	c.configured = true
}

// StreamConfig returns the accepted configuration; ok is false before
// SET_CONFIGURATION succeeds.
func (c *Connection) StreamConfig() (sbc.Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config, c.configured
}
