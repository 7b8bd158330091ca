package avdtp

import (
	"errors"
	"fmt"
)

// MaxSignalSize is the largest signaling PDU this implementation
// produces or accepts.
const MaxSignalSize = 256

// SignalID identifies an AVDTP signaling procedure.
type SignalID uint8

const (
	// SignalDiscover requests the peer's stream endpoint list
	SignalDiscover SignalID = 0x01
	// SignalGetCapabilities requests one endpoint's capabilities
	SignalGetCapabilities SignalID = 0x02
	// SignalSetConfiguration proposes a stream configuration
	SignalSetConfiguration SignalID = 0x03
	// SignalGetConfiguration reads back the active configuration
	SignalGetConfiguration SignalID = 0x04
	// SignalReconfigure changes codec parameters of a suspended stream
	SignalReconfigure SignalID = 0x05
	// SignalOpen establishes the media transport channel
	SignalOpen SignalID = 0x06
	// SignalStart begins media streaming
	SignalStart SignalID = 0x07
	// SignalClose tears the stream down
	SignalClose SignalID = 0x08
	// SignalSuspend pauses media streaming
	SignalSuspend SignalID = 0x09
	// SignalAbort abandons the stream unconditionally
	SignalAbort SignalID = 0x0A
	// SignalSecurityControl exchanges content protection data
	SignalSecurityControl SignalID = 0x0B
	// SignalGetAllCapabilities is the 1.3 superset of GetCapabilities
	SignalGetAllCapabilities SignalID = 0x0C
	// SignalDelayReport carries sink-side rendering delay
	SignalDelayReport SignalID = 0x0D
)

// String returns the procedure name for logging.
func (s SignalID) String() string {
	switch s {
	case SignalDiscover:
		return "DISCOVER"
	case SignalGetCapabilities:
		return "GET_CAPABILITIES"
	case SignalSetConfiguration:
		return "SET_CONFIGURATION"
	case SignalGetConfiguration:
		return "GET_CONFIGURATION"
	case SignalReconfigure:
		return "RECONFIGURE"
	case SignalOpen:
		return "OPEN"
	case SignalStart:
		return "START"
	case SignalClose:
		return "CLOSE"
	case SignalSuspend:
		return "SUSPEND"
	case SignalAbort:
		return "ABORT"
	case SignalSecurityControl:
		return "SECURITY_CONTROL"
	case SignalGetAllCapabilities:
		return "GET_ALL_CAPABILITIES"
	case SignalDelayReport:
		return "DELAY_REPORT"
	default:
		return fmt.Sprintf("SIGNAL_0x%02X", uint8(s))
	}
}

// MessageType distinguishes commands from their responses within one
// transaction.
type MessageType uint8

const (
	// MessageCommand initiates a procedure
	MessageCommand MessageType = 0x00
	// MessageGeneralReject rejects an unrecognized command
	MessageGeneralReject MessageType = 0x01
	// MessageResponseAccept accepts a command
	MessageResponseAccept MessageType = 0x02
	// MessageResponseReject rejects a command with an error code
	MessageResponseReject MessageType = 0x03
)

// ErrorCode is the rejection reason carried by a ResponseReject.
type ErrorCode uint8

const (
	ErrCodeBadHeaderFormat          ErrorCode = 0x01
	ErrCodeBadLength                ErrorCode = 0x11
	ErrCodeBadACPSEID               ErrorCode = 0x12
	ErrCodeSEPInUse                 ErrorCode = 0x13
	ErrCodeSEPNotInUse              ErrorCode = 0x14
	ErrCodeBadServiceCategory       ErrorCode = 0x17
	ErrCodeBadPayloadFormat         ErrorCode = 0x18
	ErrCodeNotSupportedCommand      ErrorCode = 0x19
	ErrCodeInvalidCapabilities      ErrorCode = 0x1A
	ErrCodeUnsupportedConfiguration ErrorCode = 0x29
	ErrCodeBadState                 ErrorCode = 0x31
)

// Parsing errors.
var (
	ErrShortMessage  = errors.New("avdtp: signaling message too short")
	ErrBadPacketType = errors.New("avdtp: unsupported packet type")
	ErrLabelRange    = errors.New("avdtp: transaction label exceeds 4 bits")
	ErrSEIDRange     = errors.New("avdtp: SEID outside 1-62")
)

const (
	// MinSEID and MaxSEID bound valid stream endpoint identifiers.
	MinSEID = 1
	MaxSEID = 62

	// packetTypeSingle is the only packet type used; signaling PDUs
	// here always fit one L2CAP frame.
	packetTypeSingle = 0x00
)

// Message is one parsed signaling PDU.
type Message struct {
	// Label is the 4-bit transaction label pairing command and response.
	Label uint8
	// Type is command, accept, reject, or general reject.
	Type MessageType
	// Signal identifies the procedure.
	Signal SignalID
	// Payload is the signal-specific body.
	Payload []byte
}

// Marshal serializes the message into AVDTP signaling framing: one
// header byte (label, packet type, message type), the signal byte, then
// the payload.
func (m *Message) Marshal() ([]byte, error) {
	if m.Label > 0x0F {
		return nil, ErrLabelRange
	}
	if len(m.Payload) > MaxSignalSize-2 {
		return nil, fmt.Errorf("avdtp: payload %d bytes exceeds signaling limit", len(m.Payload))
	}

	buf := make([]byte, 2+len(m.Payload))
	buf[0] = m.Label<<4 | packetTypeSingle<<2 | uint8(m.Type)
	buf[1] = uint8(m.Signal) & 0x3F
	copy(buf[2:], m.Payload)
	return buf, nil
}

// ParseMessage decodes one signaling PDU. A GeneralReject carries no
// signal byte beyond the echoed identifier, so the two-byte minimum
// still holds.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < 2 {
		return nil, ErrShortMessage
	}

	pktType := data[0] >> 2 & 0x03
	if pktType != packetTypeSingle {
		// Start/continue/end fragmentation is not used at signaling
		// MTUs this small.
		return nil, ErrBadPacketType
	}

	msg := &Message{
		Label:  data[0] >> 4,
		Type:   MessageType(data[0] & 0x03),
		Signal: SignalID(data[1] & 0x3F),
	}
	if len(data) > 2 {
		msg.Payload = append([]byte(nil), data[2:]...)
	}
	return msg, nil
}

// RejectError extracts the error code from a ResponseReject payload.
// A reject without a code byte maps to BadHeaderFormat.
func (m *Message) RejectError() ErrorCode {
	// SET_CONFIGURATION rejects prefix the code with the offending
	// service category byte.
	if m.Signal == SignalSetConfiguration || m.Signal == SignalReconfigure {
		if len(m.Payload) >= 2 {
			return ErrorCode(m.Payload[1])
		}
	}
	if len(m.Payload) >= 1 {
		return ErrorCode(m.Payload[0])
	}
	return ErrCodeBadHeaderFormat
}

// NewDiscoverCommand builds a DISCOVER command. The procedure has no
// payload; the response lists the peer's endpoints.
func NewDiscoverCommand(label uint8) *Message {
	return &Message{Label: label, Type: MessageCommand, Signal: SignalDiscover}
}

// NewGetCapabilitiesCommand builds a GET_CAPABILITIES command for one
// remote endpoint.
func NewGetCapabilitiesCommand(label, remoteSEID uint8) *Message {
	return &Message{
		Label:   label,
		Type:    MessageCommand,
		Signal:  SignalGetCapabilities,
		Payload: []byte{remoteSEID << 2},
	}
}

// NewSetConfigurationCommand builds a SET_CONFIGURATION command
// proposing the given capabilities for the remote endpoint, with the
// local endpoint as initiator.
func NewSetConfigurationCommand(label, remoteSEID, localSEID uint8, capabilities []byte) *Message {
	payload := make([]byte, 0, 2+len(capabilities))
	payload = append(payload, remoteSEID<<2, localSEID<<2)
	payload = append(payload, capabilities...)
	return &Message{
		Label:   label,
		Type:    MessageCommand,
		Signal:  SignalSetConfiguration,
		Payload: payload,
	}
}

// NewStreamCommand builds one of the single-SEID stream procedures:
// OPEN, START, SUSPEND, CLOSE, or ABORT.
func NewStreamCommand(label uint8, signal SignalID, remoteSEID uint8) *Message {
	return &Message{
		Label:   label,
		Type:    MessageCommand,
		Signal:  signal,
		Payload: []byte{remoteSEID << 2},
	}
}

// ValidSEID reports whether seid is in the AVDTP-assigned range.
func ValidSEID(seid uint8) bool {
	return seid >= MinSEID && seid <= MaxSEID
}
