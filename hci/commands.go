package hci

// Opcode combines the command group and command fields into the 16-bit
// HCI opcode.
func Opcode(ogf, ocf uint16) uint16 {
	return ogf<<10 | ocf&0x03FF
}

// Link control and controller/baseband opcodes used by the A2DP source
// flow.
var (
	OpcodeCreateConnection = Opcode(0x01, 0x0005)
	OpcodeDisconnect       = Opcode(0x01, 0x0006)
	OpcodeAcceptConnection = Opcode(0x01, 0x0009)

	OpcodeWriteLocalName     = Opcode(0x03, 0x0013)
	OpcodeWriteScanEnable    = Opcode(0x03, 0x001A)
	OpcodeWriteClassOfDevice = Opcode(0x03, 0x0024)
)

// Scan enable parameter values for WriteScanEnable.
const (
	ScanDisabled       uint8 = 0x00
	ScanInquiryOnly    uint8 = 0x01
	ScanPageOnly       uint8 = 0x02
	ScanInquiryAndPage uint8 = 0x03
)

// LocalNameParams builds the 248-byte zero-padded parameter block for
// WriteLocalName. Names longer than 247 bytes are truncated.
func LocalNameParams(name string) []byte {
	params := make([]byte, 248)
	copy(params, name)
	if len(name) > 247 {
		params[247] = 0
	}
	return params
}

// AudioDeviceClass is the class-of-device triplet for a portable
// audio/video device.
func AudioDeviceClass() []byte {
	return []byte{0x04, 0x04, 0x24}
}

// CreateConnectionParams builds the parameter block for an outbound
// ACL connection: address, packet types, paging defaults.
func CreateConnectionParams(addr BdAddr) []byte {
	params := make([]byte, 13)
	copy(params[0:6], addr[:])
	// DM1/DH1/DM3/DH3/DM5/DH5 packet types.
	params[6] = 0x18
	params[7] = 0xCC
	// Page scan repetition mode R1, reserved, clock offset unknown.
	params[8] = 0x01
	return params
}

// DisconnectParams builds the parameter block for Disconnect with the
// conventional "remote user terminated" reason.
func DisconnectParams(handle ConnectionHandle) []byte {
	return []byte{byte(handle.Raw()), byte(handle.Raw() >> 8), 0x13}
}

// AcceptConnectionParams accepts an inbound connection request in the
// peripheral role.
func AcceptConnectionParams(addr BdAddr) []byte {
	params := make([]byte, 7)
	copy(params[0:6], addr[:])
	params[6] = 0x01 // remain peripheral
	return params
}
