package a2dp

import "errors"

// Session errors returned by the public API. Protocol faults inside a
// running session surface as state transitions, not as returned errors.
var (
	// ErrInvalidState means the requested operation is not legal in the
	// current session state.
	ErrInvalidState = errors.New("a2dp: operation invalid in current state")

	// ErrNotConnected means no peer link exists.
	ErrNotConnected = errors.New("a2dp: not connected")

	// ErrNoAudioSink means discovery found no free audio sink endpoint
	// on the peer.
	ErrNoAudioSink = errors.New("a2dp: peer has no free audio sink endpoint")

	// ErrConfigRejected means the peer rejected every configuration
	// attempt within the retry budget.
	ErrConfigRejected = errors.New("a2dp: stream configuration rejected")

	// ErrFrameTooLarge means the negotiated SBC frame size cannot fit a
	// media packet under the channel MTU. Detected at negotiation time;
	// the packetizer never fragments a frame.
	ErrFrameTooLarge = errors.New("a2dp: SBC frame exceeds media channel MTU")

	// ErrNotStreaming means a media packet was submitted while the
	// session is not in the Streaming state.
	ErrNotStreaming = errors.New("a2dp: session is not streaming")

	// ErrSourceKilled means the source has been shut down.
	ErrSourceKilled = errors.New("a2dp: source has been killed")
)
