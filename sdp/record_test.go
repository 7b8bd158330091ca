package sdp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSourceRecordMarshal tests the record's data element framing and
// that the identifying UUIDs appear in big-endian form.
func TestSourceRecordMarshal(t *testing.T) {
	raw := NewSourceRecord().Marshal()
	require.NotEmpty(t, raw)

	// The record is one outer data element sequence with a one-byte
	// length covering everything that follows.
	assert.Equal(t, deSequence, raw[0])
	assert.Equal(t, byte(len(raw)-2), raw[1])

	// AudioSource service class UUID.
	assert.True(t, bytes.Contains(raw, []byte{deUUID16, 0x11, 0x0A}))
	// AVDTP protocol UUID (doubles as the PSM value).
	assert.True(t, bytes.Contains(raw, []byte{deUUID16, 0x00, 0x19}))
	// AdvancedAudioDistribution profile UUID.
	assert.True(t, bytes.Contains(raw, []byte{deUUID16, 0x11, 0x0D}))
	// AVDTP version 1.3.
	assert.True(t, bytes.Contains(raw, []byte{deUint16, 0x01, 0x03}))
}

func TestSourceRecordDefaults(t *testing.T) {
	r := NewSourceRecord()
	assert.Equal(t, uint32(0x00010001), r.Handle)
	assert.Equal(t, uint16(0x0103), r.AVDTPVersion)
	assert.Equal(t, uint16(0x0103), r.ProfileVersion)
	assert.Equal(t, uint16(0x0001), r.Features)
}
