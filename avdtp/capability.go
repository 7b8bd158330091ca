package avdtp

import "errors"

// ServiceCategory tags one capability entry in a SET_CONFIGURATION or
// GET_CAPABILITIES payload.
type ServiceCategory uint8

const (
	CategoryMediaTransport    ServiceCategory = 0x01
	CategoryReporting         ServiceCategory = 0x02
	CategoryRecovery          ServiceCategory = 0x03
	CategoryContentProtection ServiceCategory = 0x04
	CategoryHeaderCompression ServiceCategory = 0x05
	CategoryMultiplexing      ServiceCategory = 0x06
	CategoryMediaCodec        ServiceCategory = 0x07
	CategoryDelayReporting    ServiceCategory = 0x08
)

// Media and codec identifiers used in the media codec capability.
const (
	MediaTypeAudio = 0x00

	// CodecSBC is the A2DP codec type for SBC.
	CodecSBC = 0x00
)

// Capability parsing errors.
var (
	ErrShortCapability = errors.New("avdtp: capability block too short")
	ErrNotSBC          = errors.New("avdtp: media codec is not SBC")
)

// SBC capability bitmasks, one bit per supported option. The wire
// encoding packs these into the 4-byte SBC codec information element.
const (
	FreqBit16000 = 0x08
	FreqBit32000 = 0x04
	FreqBit44100 = 0x02
	FreqBit48000 = 0x01

	ModeBitMono        = 0x08
	ModeBitDualChannel = 0x04
	ModeBitStereo      = 0x02
	ModeBitJointStereo = 0x01

	BlockBit4  = 0x08
	BlockBit8  = 0x04
	BlockBit12 = 0x02
	BlockBit16 = 0x01

	SubbandBit4 = 0x02
	SubbandBit8 = 0x01

	AllocBitSNR      = 0x02
	AllocBitLoudness = 0x01
)

// SBCCapability describes the SBC parameter ranges an endpoint
// supports, or (with single bits set) one concrete configuration.
type SBCCapability struct {
	// SamplingFrequencies is a bitmap of FreqBit values.
	SamplingFrequencies uint8
	// ChannelModes is a bitmap of ModeBit values.
	ChannelModes uint8
	// BlockLengths is a bitmap of BlockBit values.
	BlockLengths uint8
	// Subbands is a bitmap of SubbandBit values.
	Subbands uint8
	// AllocationMethods is a bitmap of AllocBit values.
	AllocationMethods uint8
	// MinBitpool and MaxBitpool bound the negotiable bitpool.
	MinBitpool uint8
	MaxBitpool uint8
}

// AllSBCCapabilities returns a capability advertising every standard
// SBC option, used for the local source endpoint.
func AllSBCCapabilities() SBCCapability {
	return SBCCapability{
		SamplingFrequencies: FreqBit16000 | FreqBit32000 | FreqBit44100 | FreqBit48000,
		ChannelModes:        ModeBitMono | ModeBitDualChannel | ModeBitStereo | ModeBitJointStereo,
		BlockLengths:        BlockBit4 | BlockBit8 | BlockBit12 | BlockBit16,
		Subbands:            SubbandBit4 | SubbandBit8,
		AllocationMethods:   AllocBitSNR | AllocBitLoudness,
		MinBitpool:          2,
		MaxBitpool:          250,
	}
}

// CodecInfo packs the capability into the 4-byte SBC codec information
// element.
func (c SBCCapability) CodecInfo() [4]byte {
	return [4]byte{
		c.SamplingFrequencies<<4 | c.ChannelModes&0x0F,
		c.BlockLengths<<4 | c.Subbands&0x03<<2 | c.AllocationMethods&0x03,
		c.MinBitpool,
		c.MaxBitpool,
	}
}

// ParseSBCCodecInfo unpacks a 4-byte SBC codec information element.
func ParseSBCCodecInfo(data []byte) (SBCCapability, error) {
	if len(data) < 4 {
		return SBCCapability{}, ErrShortCapability
	}
	return SBCCapability{
		SamplingFrequencies: data[0] >> 4,
		ChannelModes:        data[0] & 0x0F,
		BlockLengths:        data[1] >> 4,
		Subbands:            data[1] >> 2 & 0x03,
		AllocationMethods:   data[1] & 0x03,
		MinBitpool:          data[2],
		MaxBitpool:          data[3],
	}, nil
}

// MarshalCapabilities encodes the capability list a source proposes or
// advertises: a media transport entry followed by the SBC media codec
// entry.
func MarshalCapabilities(sbc SBCCapability) []byte {
	info := sbc.CodecInfo()
	return []byte{
		byte(CategoryMediaTransport), 0x00,
		byte(CategoryMediaCodec), 0x06,
		MediaTypeAudio << 4, CodecSBC,
		info[0], info[1], info[2], info[3],
	}
}

// ParseCapabilities walks a capability TLV list and extracts the SBC
// media codec entry, ignoring categories this source does not use.
func ParseCapabilities(data []byte) (SBCCapability, error) {
	for len(data) >= 2 {
		category := ServiceCategory(data[0])
		length := int(data[1])
		if len(data) < 2+length {
			return SBCCapability{}, ErrShortCapability
		}
		body := data[2 : 2+length]
		data = data[2+length:]

		if category != CategoryMediaCodec {
			continue
		}
		if len(body) < 2 {
			return SBCCapability{}, ErrShortCapability
		}
		if body[0]>>4 != MediaTypeAudio || body[1] != CodecSBC {
			return SBCCapability{}, ErrNotSBC
		}
		return ParseSBCCodecInfo(body[2:])
	}
	return SBCCapability{}, ErrShortCapability
}
