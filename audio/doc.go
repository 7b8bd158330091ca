// Package audio provides the real-time data path between the audio
// capture context and the Bluetooth context: a lock-free single-producer
// single-consumer ring buffer, a single-slot configuration cell, and a
// frame source adapter that shapes USB PCM blocks into encoder-sized
// frames.
//
// The two contexts share nothing except these structures. All operations
// are non-blocking: a full buffer applies the configured overflow policy
// and a drained buffer reports underrun instead of stalling, so neither
// side can ever wedge the other.
package audio
