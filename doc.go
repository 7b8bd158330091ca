// Package a2dp implements a Bluetooth A2DP audio source: a session
// state machine driving AVDTP signaling over L2CAP, and a real-time
// pipeline that carries PCM audio from a capture context across a
// lock-free ring buffer, encodes it with SBC, and packetizes it into
// AVDTP media packets.
//
// The package splits into a control path and a data path. The control
// path (Manager plus the session state machine) negotiates the stream:
// DISCOVER, GET_CAPABILITIES, SET_CONFIGURATION, OPEN, then START,
// SUSPEND, and CLOSE. The data path (Coordinator plus MediaPacketizer)
// pulls audio frames at the SBC frame cadence, but only while the
// session is Streaming; that state is the single gate for media
// transmission.
//
// The two paths meet only at well-defined points: the state machine,
// read-only for the coordinator, and a single-slot configuration cell
// republished atomically on each negotiation. PCM crosses the context
// boundary exclusively through the SPSC ring buffer in the audio
// package.
//
// # Getting Started
//
// Create a Source around an HCI transport and run it:
//
//	src, err := a2dp.New(transport, a2dp.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src.OnStateChange(func(s a2dp.State, at time.Time) {
//	    log.Printf("session %s", s)
//	})
//	go src.Run(ctx)
//	src.MakeDiscoverable()
//
// The capture context feeds PCM through src.PushPCM; everything else
// follows from the session state.
package a2dp
