// Package avdtp implements the AVDTP signaling wire layer used by the
// A2DP session manager.
//
// It covers signaling message framing (transaction labels, packet and
// message types), the command set needed by a source (DISCOVER through
// ABORT), stream endpoint records, SBC codec capability encoding, and a
// transaction tracker that gives every outstanding command its own
// deadline so a slow peer never blocks the session loop.
//
// The package is a pure codec plus bookkeeping layer: it never touches
// the transport. The a2dp package owns sending and receiving.
package avdtp
