package l2cap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannelDefaults(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)
	assert.Equal(t, uint16(0x0040), ch.LocalCID())
	assert.Equal(t, uint16(0), ch.RemoteCID())
	assert.Equal(t, PSMAVDTP, ch.PSM())
	assert.Equal(t, StateClosed, ch.State())
	assert.Equal(t, DefaultMTU, ch.MTU())
}

// TestChannelConfigurationHandshake tests that the channel opens only
// after both directions have completed configuration.
func TestChannelConfigurationHandshake(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)

	ch.SetRemoteCID(0x0080)
	assert.Equal(t, uint16(0x0080), ch.RemoteCID())
	assert.Equal(t, StateConfig, ch.State())

	opened := ch.MarkConfigured(true, 0)
	assert.False(t, opened, "One direction alone must not open the channel")
	assert.Equal(t, StateConfig, ch.State())

	opened = ch.MarkConfigured(false, 512)
	assert.True(t, opened)
	assert.Equal(t, StateOpen, ch.State())
	assert.Equal(t, uint16(512), ch.MTU(), "Peer-proposed MTU replaces the default")
}

func TestChannelFrameBeforeOpen(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)
	_, err := ch.Frame([]byte{0x01})
	assert.ErrorIs(t, err, ErrChannelNotOpen)
}

// TestChannelFrame tests basic-mode framing: little-endian length and
// the remote CID.
func TestChannelFrame(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)
	ch.SetOpen(0x0080, 100)

	payload := []byte{0xAA, 0xBB, 0xCC}
	framed, err := ch.Frame(payload)
	require.NoError(t, err)

	require.Len(t, framed, 7)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(framed[0:2]))
	assert.Equal(t, uint16(0x0080), binary.LittleEndian.Uint16(framed[2:4]))
	assert.Equal(t, payload, framed[4:])

	_, err = ch.Frame(make([]byte, 101))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

// TestChannelFrameMaxPayload tests the absolute PDU size cap: a
// generously negotiated MTU does not allow a frame past what one ACL
// transfer carries.
func TestChannelFrameMaxPayload(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)
	ch.SetOpen(0x0080, 2048)

	_, err := ch.Frame(make([]byte, MaxPayload))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	framed, err := ch.Frame(make([]byte, MaxPayload-4))
	require.NoError(t, err)
	assert.Len(t, framed, MaxPayload)
}

func TestParsePDU(t *testing.T) {
	ch := NewChannel(0x0040, PSMAVDTP)
	ch.SetOpen(0x0080, DefaultMTU)

	framed, err := ch.Frame([]byte{0x01, 0x02})
	require.NoError(t, err)

	pdu, err := ParsePDU(framed)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), pdu.CID)
	assert.Equal(t, []byte{0x01, 0x02}, pdu.Payload)
}

func TestParsePDUErrors(t *testing.T) {
	_, err := ParsePDU([]byte{0x01, 0x00, 0x40})
	assert.Error(t, err, "header shorter than 4 bytes")

	// Declared length 5, only 2 payload bytes present.
	_, err = ParsePDU([]byte{0x05, 0x00, 0x40, 0x00, 0xAA, 0xBB})
	assert.Error(t, err, "truncated payload")
}

// TestChannelManager tests dynamic CID allocation and lookup.
func TestChannelManager(t *testing.T) {
	cm := NewChannelManager()

	sig, err := cm.Open(PSMAVDTP)
	require.NoError(t, err)
	assert.Equal(t, CIDDynamicStart, sig.LocalCID())
	assert.Equal(t, StateWaitConnectRsp, sig.State())

	media, err := cm.Open(PSMAVDTP)
	require.NoError(t, err)
	assert.Equal(t, CIDDynamicStart+1, media.LocalCID())

	got, ok := cm.Lookup(sig.LocalCID())
	require.True(t, ok)
	assert.Same(t, sig, got)

	cm.Close(sig.LocalCID())
	_, ok = cm.Lookup(sig.LocalCID())
	assert.False(t, ok)
	assert.Equal(t, StateClosed, sig.State())

	cm.CloseAll()
	_, ok = cm.Lookup(media.LocalCID())
	assert.False(t, ok)
	assert.Equal(t, StateClosed, media.State())
}
