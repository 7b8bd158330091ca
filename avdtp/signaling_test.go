package avdtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMessageRoundTrip tests marshal/parse symmetry for a command with
// a payload.
func TestMessageRoundTrip(t *testing.T) {
	msg := &Message{
		Label:   5,
		Type:    MessageCommand,
		Signal:  SignalSetConfiguration,
		Payload: []byte{0x14, 0x04, 0x01, 0x00},
	}

	raw, err := msg.Marshal()
	require.NoError(t, err)

	// Header byte: label in the high nibble, single-packet type,
	// command message type.
	assert.Equal(t, byte(5<<4), raw[0])
	assert.Equal(t, byte(SignalSetConfiguration), raw[1])

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.Label, parsed.Label)
	assert.Equal(t, msg.Type, parsed.Type)
	assert.Equal(t, msg.Signal, parsed.Signal)
	assert.Equal(t, msg.Payload, parsed.Payload)
}

func TestMessageMarshalLabelRange(t *testing.T) {
	msg := &Message{Label: 16, Type: MessageCommand, Signal: SignalDiscover}
	_, err := msg.Marshal()
	assert.ErrorIs(t, err, ErrLabelRange)
}

func TestParseMessageShort(t *testing.T) {
	_, err := ParseMessage(nil)
	assert.ErrorIs(t, err, ErrShortMessage)
	_, err = ParseMessage([]byte{0x00})
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestParseMessageRejectsFragmented(t *testing.T) {
	// Packet type bits 0b01 (start fragment) are not supported.
	_, err := ParseMessage([]byte{0x04, 0x01})
	assert.ErrorIs(t, err, ErrBadPacketType)
}

func TestParseMessageResponseTypes(t *testing.T) {
	accept, err := ParseMessage([]byte{0x32, byte(SignalStart)})
	require.NoError(t, err)
	assert.Equal(t, MessageResponseAccept, accept.Type)
	assert.Equal(t, uint8(3), accept.Label)
	assert.Equal(t, SignalStart, accept.Signal)

	reject, err := ParseMessage([]byte{0x33, byte(SignalStart), byte(ErrCodeBadState)})
	require.NoError(t, err)
	assert.Equal(t, MessageResponseReject, reject.Type)
}

// TestRejectError tests error code extraction, including the
// SET_CONFIGURATION form that prefixes the offending service category.
func TestRejectError(t *testing.T) {
	plain := &Message{
		Type:    MessageResponseReject,
		Signal:  SignalStart,
		Payload: []byte{byte(ErrCodeBadState)},
	}
	assert.Equal(t, ErrCodeBadState, plain.RejectError())

	setConfig := &Message{
		Type:    MessageResponseReject,
		Signal:  SignalSetConfiguration,
		Payload: []byte{byte(CategoryMediaCodec), byte(ErrCodeUnsupportedConfiguration)},
	}
	assert.Equal(t, ErrCodeUnsupportedConfiguration, setConfig.RejectError())

	empty := &Message{Type: MessageResponseReject, Signal: SignalOpen}
	assert.Equal(t, ErrCodeBadHeaderFormat, empty.RejectError())
}

// TestCommandBuilders tests the SEID encoding of the command
// constructors: SEIDs occupy the high six bits of their byte.
func TestCommandBuilders(t *testing.T) {
	discover := NewDiscoverCommand(1)
	assert.Equal(t, SignalDiscover, discover.Signal)
	assert.Empty(t, discover.Payload)

	getCaps := NewGetCapabilitiesCommand(2, 5)
	assert.Equal(t, []byte{5 << 2}, getCaps.Payload)

	setConfig := NewSetConfigurationCommand(3, 5, 1, []byte{0x01, 0x00})
	assert.Equal(t, []byte{5 << 2, 1 << 2, 0x01, 0x00}, setConfig.Payload)

	start := NewStreamCommand(4, SignalStart, 5)
	assert.Equal(t, SignalStart, start.Signal)
	assert.Equal(t, []byte{5 << 2}, start.Payload)
}

func TestValidSEID(t *testing.T) {
	assert.False(t, ValidSEID(0))
	assert.True(t, ValidSEID(MinSEID))
	assert.True(t, ValidSEID(MaxSEID))
	assert.False(t, ValidSEID(63))
}

func TestSignalIDString(t *testing.T) {
	assert.Equal(t, "DISCOVER", SignalDiscover.String())
	assert.Equal(t, "SET_CONFIGURATION", SignalSetConfiguration.String())
	assert.Equal(t, "SIGNAL_0x3F", SignalID(0x3F).String())
}
