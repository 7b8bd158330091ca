// Package sdp builds the Service Discovery Protocol record advertising
// the A2DP AudioSource service. Peers query this record to learn the
// AVDTP PSM and profile version before connecting.
package sdp

import "encoding/binary"

// Service class and protocol UUIDs used by the A2DP source record.
const (
	UUIDSDPProtocol    uint16 = 0x0001
	UUIDL2CAPProtocol  uint16 = 0x0100
	UUIDAVDTPProtocol  uint16 = 0x0019
	UUIDAudioSource    uint16 = 0x110A
	UUIDAudioSink      uint16 = 0x110B
	UUIDAdvancedAudio  uint16 = 0x110D
)

// SDP attribute IDs present in the record.
const (
	AttrServiceRecordHandle     uint16 = 0x0000
	AttrServiceClassIDList      uint16 = 0x0001
	AttrProtocolDescriptorList  uint16 = 0x0004
	AttrProfileDescriptorList   uint16 = 0x0009
	AttrSupportedFeatures       uint16 = 0x0311
)

// Data element type descriptors (5-bit type, 3-bit size index).
const (
	deUint16   byte = 0x09 // unsigned int, 2 bytes
	deUint32   byte = 0x0A // unsigned int, 4 bytes
	deUUID16   byte = 0x19 // UUID, 2 bytes
	deSequence byte = 0x35 // sequence, 1-byte length
)

// SourceRecord describes the local A2DP AudioSource service.
type SourceRecord struct {
	// Handle is the service record handle assigned by the SDP server.
	Handle uint32
	// AVDTPVersion is the advertised AVDTP version (0x0103 = 1.3).
	AVDTPVersion uint16
	// ProfileVersion is the advertised A2DP version (0x0103 = 1.3).
	ProfileVersion uint16
	// Features is the supported-features bitmap (bit 0 = player).
	Features uint16
}

// NewSourceRecord returns a record with the versions and features this
// stack implements.
func NewSourceRecord() *SourceRecord {
	return &SourceRecord{
		Handle:         0x00010001,
		AVDTPVersion:   0x0103,
		ProfileVersion: 0x0103,
		Features:       0x0001,
	}
}

// Marshal encodes the record as a sequence of attribute ID/value pairs
// using SDP data element encoding.
func (r *SourceRecord) Marshal() []byte {
	var attrs []byte

	attrs = appendAttr(attrs, AttrServiceRecordHandle, appendUint32(nil, r.Handle))

	// Service Class ID List: AudioSource.
	classList := sequence(appendUUID16(nil, UUIDAudioSource))
	attrs = appendAttr(attrs, AttrServiceClassIDList, classList)

	// Protocol Descriptor List: L2CAP (PSM AVDTP) then AVDTP (version).
	l2capDesc := sequence(appendUint16(appendUUID16(nil, UUIDL2CAPProtocol), UUIDAVDTPProtocol))
	avdtpDesc := sequence(appendUint16(appendUUID16(nil, UUIDAVDTPProtocol), r.AVDTPVersion))
	protoList := sequence(append(l2capDesc, avdtpDesc...))
	attrs = appendAttr(attrs, AttrProtocolDescriptorList, protoList)

	// Profile Descriptor List: AdvancedAudioDistribution + version.
	profileDesc := sequence(appendUint16(appendUUID16(nil, UUIDAdvancedAudio), r.ProfileVersion))
	attrs = appendAttr(attrs, AttrProfileDescriptorList, sequence(profileDesc))

	attrs = appendAttr(attrs, AttrSupportedFeatures, appendUint16(nil, r.Features))

	return sequence(attrs)
}

func appendAttr(dst []byte, id uint16, value []byte) []byte {
	dst = appendUint16(dst, id)
	return append(dst, value...)
}

func appendUint16(dst []byte, v uint16) []byte {
	dst = append(dst, deUint16)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	dst = append(dst, deUint32)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendUUID16(dst []byte, v uint16) []byte {
	dst = append(dst, deUUID16)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// sequence wraps elements in a data element sequence with a one-byte
// length. Records built here stay well under 255 bytes.
func sequence(elements []byte) []byte {
	out := make([]byte, 0, 2+len(elements))
	out = append(out, deSequence, byte(len(elements)))
	return append(out, elements...)
}
