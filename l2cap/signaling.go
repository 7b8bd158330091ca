package l2cap

import (
	"encoding/binary"
	"errors"
)

// SignalCode identifies an L2CAP signaling command on CID 0x0001.
type SignalCode uint8

const (
	CodeCommandReject         SignalCode = 0x01
	CodeConnectionRequest     SignalCode = 0x02
	CodeConnectionResponse    SignalCode = 0x03
	CodeConfigureRequest      SignalCode = 0x04
	CodeConfigureResponse     SignalCode = 0x05
	CodeDisconnectionRequest  SignalCode = 0x06
	CodeDisconnectionResponse SignalCode = 0x07
	CodeEchoRequest           SignalCode = 0x08
	CodeEchoResponse          SignalCode = 0x09
	CodeInformationRequest    SignalCode = 0x0A
	CodeInformationResponse   SignalCode = 0x0B
)

// Connection response result values.
const (
	ConnResultSuccess         uint16 = 0x0000
	ConnResultPending         uint16 = 0x0001
	ConnResultPSMNotSupported uint16 = 0x0002
	ConnResultNoResources     uint16 = 0x0004
)

// Configure response result values.
const (
	ConfigResultSuccess      uint16 = 0x0000
	ConfigResultUnacceptable uint16 = 0x0001
)

// optionMTU is the MTU configuration option type.
const optionMTU = 0x01

// ErrShortCommand is returned for truncated signaling payloads.
var ErrShortCommand = errors.New("l2cap: signaling command too short")

// Command is one L2CAP signaling command with its matching identifier.
type Command struct {
	Code       SignalCode
	Identifier uint8
	Payload    []byte
}

// Marshal serializes the command with its 4-byte header.
func (c *Command) Marshal() []byte {
	buf := make([]byte, 4+len(c.Payload))
	buf[0] = uint8(c.Code)
	buf[1] = c.Identifier
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(c.Payload)))
	copy(buf[4:], c.Payload)
	return buf
}

// ParseCommand decodes one signaling command from the signaling
// channel payload.
func ParseCommand(data []byte) (*Command, error) {
	if len(data) < 4 {
		return nil, ErrShortCommand
	}
	length := int(binary.LittleEndian.Uint16(data[2:4]))
	if len(data) < 4+length {
		return nil, ErrShortCommand
	}
	return &Command{
		Code:       SignalCode(data[0]),
		Identifier: data[1],
		Payload:    data[4 : 4+length],
	}, nil
}

// NewConnectionRequest builds a connection request for psm from the
// local source CID.
func NewConnectionRequest(identifier uint8, psm, sourceCID uint16) *Command {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], psm)
	binary.LittleEndian.PutUint16(payload[2:4], sourceCID)
	return &Command{Code: CodeConnectionRequest, Identifier: identifier, Payload: payload}
}

// ParseConnectionRequest extracts psm and the peer's source CID.
func ParseConnectionRequest(payload []byte) (psm, sourceCID uint16, err error) {
	if len(payload) < 4 {
		return 0, 0, ErrShortCommand
	}
	return binary.LittleEndian.Uint16(payload[0:2]), binary.LittleEndian.Uint16(payload[2:4]), nil
}

// NewConnectionResponse builds a connection response granting (or
// refusing) the peer's request.
func NewConnectionResponse(identifier uint8, destCID, sourceCID, result uint16) *Command {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[0:2], destCID)
	binary.LittleEndian.PutUint16(payload[2:4], sourceCID)
	binary.LittleEndian.PutUint16(payload[4:6], result)
	// Status: no further information.
	return &Command{Code: CodeConnectionResponse, Identifier: identifier, Payload: payload}
}

// ParseConnectionResponse extracts the peer's destination CID, our
// echoed source CID, and the result.
func ParseConnectionResponse(payload []byte) (destCID, sourceCID, result uint16, err error) {
	if len(payload) < 8 {
		return 0, 0, 0, ErrShortCommand
	}
	return binary.LittleEndian.Uint16(payload[0:2]),
		binary.LittleEndian.Uint16(payload[2:4]),
		binary.LittleEndian.Uint16(payload[4:6]),
		nil
}

// NewConfigureRequest builds a configure request proposing an MTU for
// the peer's channel end.
func NewConfigureRequest(identifier uint8, destCID, mtu uint16) *Command {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[0:2], destCID)
	// Flags: no continuation.
	payload[4] = optionMTU
	payload[5] = 2
	binary.LittleEndian.PutUint16(payload[6:8], mtu)
	return &Command{Code: CodeConfigureRequest, Identifier: identifier, Payload: payload}
}

// ParseConfigureRequest extracts the target CID and the proposed MTU.
// mtu is zero when the request carries no MTU option, meaning the
// default applies.
func ParseConfigureRequest(payload []byte) (destCID, mtu uint16, err error) {
	if len(payload) < 4 {
		return 0, 0, ErrShortCommand
	}
	destCID = binary.LittleEndian.Uint16(payload[0:2])
	mtu = parseMTUOption(payload[4:])
	return destCID, mtu, nil
}

// NewConfigureResponse builds a configure response echoing the agreed
// MTU.
func NewConfigureResponse(identifier uint8, sourceCID, result, mtu uint16) *Command {
	payload := make([]byte, 10)
	binary.LittleEndian.PutUint16(payload[0:2], sourceCID)
	binary.LittleEndian.PutUint16(payload[4:6], result)
	payload[6] = optionMTU
	payload[7] = 2
	binary.LittleEndian.PutUint16(payload[8:10], mtu)
	return &Command{Code: CodeConfigureResponse, Identifier: identifier, Payload: payload}
}

// ParseConfigureResponse extracts the echoed CID, result, and MTU (zero
// when absent).
func ParseConfigureResponse(payload []byte) (sourceCID, result, mtu uint16, err error) {
	if len(payload) < 6 {
		return 0, 0, 0, ErrShortCommand
	}
	sourceCID = binary.LittleEndian.Uint16(payload[0:2])
	result = binary.LittleEndian.Uint16(payload[4:6])
	mtu = parseMTUOption(payload[6:])
	return sourceCID, result, mtu, nil
}

// parseMTUOption scans a configuration option list for the MTU option.
func parseMTUOption(options []byte) uint16 {
	for len(options) >= 2 {
		optType := options[0] & 0x7F
		optLen := int(options[1])
		if len(options) < 2+optLen {
			return 0
		}
		if optType == optionMTU && optLen == 2 {
			return binary.LittleEndian.Uint16(options[2:4])
		}
		options = options[2+optLen:]
	}
	return 0
}

// NewDisconnectionRequest builds a disconnection request for a channel
// pair.
func NewDisconnectionRequest(identifier uint8, destCID, sourceCID uint16) *Command {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], destCID)
	binary.LittleEndian.PutUint16(payload[2:4], sourceCID)
	return &Command{Code: CodeDisconnectionRequest, Identifier: identifier, Payload: payload}
}

// NewDisconnectionResponse acknowledges a disconnection request.
func NewDisconnectionResponse(identifier uint8, destCID, sourceCID uint16) *Command {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], destCID)
	binary.LittleEndian.PutUint16(payload[2:4], sourceCID)
	return &Command{Code: CodeDisconnectionResponse, Identifier: identifier, Payload: payload}
}

// ParseDisconnection extracts the CID pair shared by disconnection
// requests and responses.
func ParseDisconnection(payload []byte) (destCID, sourceCID uint16, err error) {
	if len(payload) < 4 {
		return 0, 0, ErrShortCommand
	}
	return binary.LittleEndian.Uint16(payload[0:2]), binary.LittleEndian.Uint16(payload[2:4]), nil
}
