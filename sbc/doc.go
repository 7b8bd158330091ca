// Package sbc implements the SBC (Sub-Band Coding) encoder mandated by
// the A2DP profile: polyphase analysis filterbank, scale factor
// extraction, joint-stereo decision, loudness/SNR bit allocation,
// quantization and frame packing with CRC-8.
//
// Encoding is deterministic: a freshly created encoder given the same
// PCM input and configuration always produces byte-identical frames.
// All arithmetic is fixed-point (Q15 prototype filters, Q14 cosine
// modulation), so output does not vary across platforms.
package sbc
