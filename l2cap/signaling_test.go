package l2cap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommandRoundTrip tests the 4-byte signaling header framing.
func TestCommandRoundTrip(t *testing.T) {
	cmd := &Command{Code: CodeEchoRequest, Identifier: 7, Payload: []byte{0xDE, 0xAD}}
	raw := cmd.Marshal()

	require.Len(t, raw, 6)
	assert.Equal(t, byte(CodeEchoRequest), raw[0])
	assert.Equal(t, byte(7), raw[1])

	parsed, err := ParseCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, cmd.Code, parsed.Code)
	assert.Equal(t, cmd.Identifier, parsed.Identifier)
	assert.Equal(t, cmd.Payload, parsed.Payload)
}

func TestParseCommandErrors(t *testing.T) {
	_, err := ParseCommand([]byte{0x02, 0x01})
	assert.ErrorIs(t, err, ErrShortCommand)

	// Declared payload length exceeds the buffer.
	_, err = ParseCommand([]byte{0x02, 0x01, 0x04, 0x00, 0xAA})
	assert.ErrorIs(t, err, ErrShortCommand)
}

func TestConnectionRequestRoundTrip(t *testing.T) {
	cmd := NewConnectionRequest(1, PSMAVDTP, 0x0040)
	parsed, err := ParseCommand(cmd.Marshal())
	require.NoError(t, err)
	assert.Equal(t, CodeConnectionRequest, parsed.Code)

	psm, sourceCID, err := ParseConnectionRequest(parsed.Payload)
	require.NoError(t, err)
	assert.Equal(t, PSMAVDTP, psm)
	assert.Equal(t, uint16(0x0040), sourceCID)
}

func TestConnectionResponseRoundTrip(t *testing.T) {
	cmd := NewConnectionResponse(2, 0x0080, 0x0040, ConnResultSuccess)
	destCID, sourceCID, result, err := ParseConnectionResponse(cmd.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), destCID)
	assert.Equal(t, uint16(0x0040), sourceCID)
	assert.Equal(t, ConnResultSuccess, result)

	refused := NewConnectionResponse(3, 0, 0x0040, ConnResultPSMNotSupported)
	_, _, result, err = ParseConnectionResponse(refused.Payload)
	require.NoError(t, err)
	assert.Equal(t, ConnResultPSMNotSupported, result)
}

// TestConfigureRequestRoundTrip tests the MTU option encoding.
func TestConfigureRequestRoundTrip(t *testing.T) {
	cmd := NewConfigureRequest(4, 0x0080, 512)
	destCID, mtu, err := ParseConfigureRequest(cmd.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), destCID)
	assert.Equal(t, uint16(512), mtu)
}

func TestParseConfigureRequestNoOptions(t *testing.T) {
	// A request with only the CID and flags carries no MTU; the default
	// applies.
	destCID, mtu, err := ParseConfigureRequest([]byte{0x80, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), destCID)
	assert.Equal(t, uint16(0), mtu)
}

func TestConfigureResponseRoundTrip(t *testing.T) {
	cmd := NewConfigureResponse(5, 0x0040, ConfigResultSuccess, 672)
	sourceCID, result, mtu, err := ParseConfigureResponse(cmd.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0040), sourceCID)
	assert.Equal(t, ConfigResultSuccess, result)
	assert.Equal(t, uint16(672), mtu)
}

func TestDisconnectionRoundTrip(t *testing.T) {
	req := NewDisconnectionRequest(6, 0x0080, 0x0040)
	destCID, sourceCID, err := ParseDisconnection(req.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), destCID)
	assert.Equal(t, uint16(0x0040), sourceCID)

	rsp := NewDisconnectionResponse(6, 0x0080, 0x0040)
	assert.Equal(t, CodeDisconnectionResponse, rsp.Code)
	assert.Equal(t, req.Payload, rsp.Payload)
}

// TestParseMTUOptionSkipsUnknown tests that the option walker steps
// over unrelated options to find the MTU.
func TestParseMTUOptionSkipsUnknown(t *testing.T) {
	options := []byte{
		0x02, 0x02, 0xFF, 0xFF, // flush timeout option
		0x01, 0x02, 0x00, 0x02, // MTU 512
	}
	assert.Equal(t, uint16(512), parseMTUOption(options))

	assert.Equal(t, uint16(0), parseMTUOption(nil))
	assert.Equal(t, uint16(0), parseMTUOption([]byte{0x01, 0x04, 0x00}), "truncated option")
}
