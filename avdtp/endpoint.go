package avdtp

// SEPType distinguishes source and sink endpoints.
type SEPType uint8

const (
	// SEPTypeSource produces media.
	SEPTypeSource SEPType = 0x00
	// SEPTypeSink consumes media.
	SEPTypeSink SEPType = 0x01
)

// StreamEndpoint is one local or remote SEP as exchanged during
// DISCOVER.
type StreamEndpoint struct {
	// SEID is the endpoint identifier, 1-62.
	SEID uint8
	// InUse reports whether the endpoint is bound to a stream.
	InUse bool
	// MediaType is audio for every endpoint this source handles.
	MediaType uint8
	// Type is source or sink.
	Type SEPType
	// Capability holds the endpoint's SBC parameter ranges. For remote
	// endpoints it is filled by GET_CAPABILITIES, not DISCOVER.
	Capability SBCCapability
}

// NewSourceEndpoint creates the local audio source endpoint advertising
// the full SBC capability range.
func NewSourceEndpoint(seid uint8) StreamEndpoint {
	return StreamEndpoint{
		SEID:       seid,
		MediaType:  MediaTypeAudio,
		Type:       SEPTypeSource,
		Capability: AllSBCCapabilities(),
	}
}

// DiscoverRecord encodes the two-byte SEP entry used in DISCOVER
// responses.
func (e StreamEndpoint) DiscoverRecord() [2]byte {
	var inUse uint8
	if e.InUse {
		inUse = 1
	}
	return [2]byte{
		e.SEID<<2 | inUse<<1,
		e.MediaType<<4 | uint8(e.Type)<<3,
	}
}

// ParseDiscoverResponse decodes the SEP list from a DISCOVER response
// payload. Entries with out-of-range SEIDs are rejected rather than
// skipped; a peer emitting them is misbehaving.
func ParseDiscoverResponse(payload []byte) ([]StreamEndpoint, error) {
	if len(payload) < 2 || len(payload)%2 != 0 {
		return nil, ErrShortMessage
	}

	endpoints := make([]StreamEndpoint, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		seid := payload[i] >> 2
		if !ValidSEID(seid) {
			return nil, ErrSEIDRange
		}
		endpoints = append(endpoints, StreamEndpoint{
			SEID:      seid,
			InUse:     payload[i]>>1&1 == 1,
			MediaType: payload[i+1] >> 4,
			Type:      SEPType(payload[i+1] >> 3 & 1),
		})
	}
	return endpoints, nil
}

// FindAudioSink returns the first free audio sink in a discovered
// endpoint list, or false if none qualifies.
func FindAudioSink(endpoints []StreamEndpoint) (StreamEndpoint, bool) {
	for _, ep := range endpoints {
		if ep.Type == SEPTypeSink && ep.MediaType == MediaTypeAudio && !ep.InUse {
			return ep, true
		}
	}
	return StreamEndpoint{}, false
}
