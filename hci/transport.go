// Package hci defines the contract between the host stack and the
// Bluetooth controller (radio). The controller driver itself lives
// outside this module; the stack only depends on the Transport
// interface declared here, which keeps the protocol layers testable
// with mock transports.
package hci

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxACLPayload is the largest ACL data payload the stack will build.
const MaxACLPayload = 1024

// BdAddr is a Bluetooth device address (6 bytes).
type BdAddr [6]byte

// NewBdAddr creates a Bluetooth address from raw bytes.
func NewBdAddr(addr [6]byte) BdAddr {
	return BdAddr(addr)
}

// String formats the address in the conventional colon-separated form,
// most significant byte first.
func (a BdAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a[5], a[4], a[3], a[2], a[1], a[0])
}

// IsZero reports whether the address is all zeroes (unset).
func (a BdAddr) IsZero() bool {
	return a == BdAddr{}
}

// ConnectionHandle identifies an ACL link. Only the low 12 bits are
// significant.
type ConnectionHandle uint16

// NewConnectionHandle masks a raw value to the 12-bit handle range.
func NewConnectionHandle(raw uint16) ConnectionHandle {
	return ConnectionHandle(raw & 0x0FFF)
}

// Raw returns the numeric handle value.
func (h ConnectionHandle) Raw() uint16 { return uint16(h) }

// EventCode identifies an HCI event delivered by the controller.
type EventCode uint8

// HCI event codes used by the A2DP source flow.
const (
	EventInquiryComplete          EventCode = 0x01
	EventConnectionComplete       EventCode = 0x03
	EventConnectionRequest        EventCode = 0x04
	EventDisconnectionComplete    EventCode = 0x05
	EventRemoteNameComplete       EventCode = 0x07
	EventCommandComplete          EventCode = 0x0E
	EventCommandStatus            EventCode = 0x0F
	EventNumberOfCompletedPackets EventCode = 0x13
)

// Transport errors.
var (
	ErrTransportClosed = errors.New("hci: transport closed")
	ErrPayloadTooLarge = errors.New("hci: ACL payload exceeds maximum")
)

// Transport is the asynchronous interface to the controller. Commands
// and ACL data go down; events and inbound ACL data come back through
// registered handlers. Implementations must be safe for use from a
// single protocol goroutine plus the driver's delivery goroutine.
type Transport interface {
	// SendCommand transmits an HCI command packet.
	SendCommand(opcode uint16, params []byte) error

	// SendACL transmits ACL data on the given connection handle.
	SendACL(handle ConnectionHandle, data []byte) error

	// RegisterEventHandler registers a handler for one event code.
	// Registering again replaces the previous handler.
	RegisterEventHandler(code EventCode, handler func(params []byte) error)

	// RegisterACLHandler registers the handler for inbound ACL data.
	RegisterACLHandler(handler func(handle ConnectionHandle, data []byte) error)
}

// ACLPacket is one HCI ACL data packet with its boundary/broadcast flags.
type ACLPacket struct {
	Handle        ConnectionHandle
	BoundaryFlag  uint8
	BroadcastFlag uint8
	Data          []byte
}

// ParseACLPacket decodes the 4-byte ACL header and payload.
func ParseACLPacket(raw []byte) (*ACLPacket, error) {
	if len(raw) < 4 {
		return nil, errors.New("hci: ACL packet too short")
	}

	handleFlags := binary.LittleEndian.Uint16(raw[0:2])
	dataLen := int(binary.LittleEndian.Uint16(raw[2:4]))
	if len(raw) < 4+dataLen {
		return nil, errors.New("hci: ACL packet truncated")
	}

	return &ACLPacket{
		Handle:        NewConnectionHandle(handleFlags),
		BoundaryFlag:  uint8((handleFlags >> 12) & 0x03),
		BroadcastFlag: uint8((handleFlags >> 14) & 0x03),
		Data:          raw[4 : 4+dataLen],
	}, nil
}

// Marshal serializes the packet into wire form.
func (p *ACLPacket) Marshal() ([]byte, error) {
	if len(p.Data) > MaxACLPayload {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, 4+len(p.Data))
	handleFlags := p.Handle.Raw() |
		uint16(p.BoundaryFlag&0x03)<<12 |
		uint16(p.BroadcastFlag&0x03)<<14
	binary.LittleEndian.PutUint16(buf[0:2], handleFlags)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(p.Data)))
	copy(buf[4:], p.Data)
	return buf, nil
}
