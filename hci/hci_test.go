package hci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBdAddrString tests the display convention: most significant byte
// first, though the wire order is LSB-first.
func TestBdAddrString(t *testing.T) {
	addr := NewBdAddr([6]byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11})
	assert.Equal(t, "11:22:33:44:55:66", addr.String())
}

func TestBdAddrIsZero(t *testing.T) {
	assert.True(t, BdAddr{}.IsZero())
	assert.False(t, NewBdAddr([6]byte{1}).IsZero())
}

func TestConnectionHandleMask(t *testing.T) {
	h := NewConnectionHandle(0xF123)
	assert.Equal(t, uint16(0x0123), h.Raw(), "Only the low 12 bits are significant")
}

func TestOpcode(t *testing.T) {
	assert.Equal(t, uint16(0x0405), Opcode(0x01, 0x0005))
	assert.Equal(t, uint16(0x0405), OpcodeCreateConnection)
	assert.Equal(t, uint16(0x0406), OpcodeDisconnect)
	assert.Equal(t, uint16(0x0C13), OpcodeWriteLocalName)
	assert.Equal(t, uint16(0x0C1A), OpcodeWriteScanEnable)
	assert.Equal(t, uint16(0x0C24), OpcodeWriteClassOfDevice)
}

// TestACLPacketRoundTrip tests the 4-byte ACL header with boundary and
// broadcast flags packed into the handle field.
func TestACLPacketRoundTrip(t *testing.T) {
	pkt := &ACLPacket{
		Handle:        0x0123,
		BoundaryFlag:  0x02,
		BroadcastFlag: 0x00,
		Data:          []byte{0xAA, 0xBB, 0xCC},
	}

	raw, err := pkt.Marshal()
	require.NoError(t, err)
	require.Len(t, raw, 7)

	parsed, err := ParseACLPacket(raw)
	require.NoError(t, err)
	assert.Equal(t, pkt.Handle, parsed.Handle)
	assert.Equal(t, pkt.BoundaryFlag, parsed.BoundaryFlag)
	assert.Equal(t, pkt.BroadcastFlag, parsed.BroadcastFlag)
	assert.Equal(t, pkt.Data, parsed.Data)
}

func TestACLPacketErrors(t *testing.T) {
	_, err := ParseACLPacket([]byte{0x01, 0x00, 0x05})
	assert.Error(t, err)

	// Declared length longer than the payload.
	_, err = ParseACLPacket([]byte{0x01, 0x00, 0x05, 0x00, 0xAA})
	assert.Error(t, err)

	big := &ACLPacket{Handle: 1, Data: make([]byte, MaxACLPayload+1)}
	_, err = big.Marshal()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestLocalNameParams(t *testing.T) {
	params := LocalNameParams("my-speaker")
	require.Len(t, params, 248)
	assert.Equal(t, []byte("my-speaker"), params[:10])
	assert.Equal(t, byte(0), params[10], "Name must be zero padded")
}

func TestCommandParams(t *testing.T) {
	addr := NewBdAddr([6]byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11})

	create := CreateConnectionParams(addr)
	require.Len(t, create, 13)
	assert.Equal(t, addr[:], create[0:6])

	disc := DisconnectParams(NewConnectionHandle(0x0123))
	assert.Equal(t, []byte{0x23, 0x01, 0x13}, disc)

	accept := AcceptConnectionParams(addr)
	require.Len(t, accept, 7)
	assert.Equal(t, addr[:], accept[0:6])
	assert.Equal(t, byte(0x01), accept[6], "Stay in the peripheral role")

	assert.Equal(t, []byte{0x04, 0x04, 0x24}, AudioDeviceClass())
}
