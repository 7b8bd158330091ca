package sbc

// scaleFactors and bitCounts are per-channel, per-subband arrays.
type scaleFactors [maxChannels][maxSubbands]uint8
type bitCounts [maxChannels][maxSubbands]uint8

// allocateBits distributes the bitpool across subbands using the
// configured allocation method.
func allocateBits(sf *scaleFactors, cfg Config, joinFlags uint8) bitCounts {
	var bitneed [maxChannels][maxSubbands]int32

	numSubbands := cfg.Subbands.Count()
	numChannels := cfg.Channels()

	switch cfg.AllocationMethod {
	case AllocSNR:
		// SNR allocation: bitneed equals the scale factor.
		for ch := 0; ch < numChannels; ch++ {
			for sb := 0; sb < numSubbands; sb++ {
				bitneed[ch][sb] = int32(sf[ch][sb])
			}
		}
	default:
		// Loudness allocation: psychoacoustic offsets prioritize the
		// perceptually important subbands.
		freqIdx := int(cfg.SamplingFrequency)
		for ch := 0; ch < numChannels; ch++ {
			for sb := 0; sb < numSubbands; sb++ {
				val := int32(sf[ch][sb])
				if val == 0 {
					bitneed[ch][sb] = -5 // silent band, lowest priority
					continue
				}

				var offset int32
				if numSubbands == 8 {
					offset = int32(loudnessOffset8[freqIdx][sb])
				} else {
					offset = int32(loudnessOffset4[freqIdx][sb])
				}

				if val > offset {
					bitneed[ch][sb] = val - offset
				} else {
					bitneed[ch][sb] = (val - offset) / 2
				}
			}
		}
	}

	return distributeBits(&bitneed, cfg, joinFlags)
}

// distributeBits iteratively assigns bits to the subbands with the
// highest bitneed until the bitpool is exhausted. Each active subband
// gets at least 2 and at most 16 bits.
func distributeBits(bitneed *[maxChannels][maxSubbands]int32, cfg Config, joinFlags uint8) bitCounts {
	numSubbands := cfg.Subbands.Count()
	numChannels := cfg.Channels()
	remaining := int32(cfg.Bitpool)

	var bits bitCounts

	maxNeed := int32(-1 << 31)
	for ch := 0; ch < numChannels; ch++ {
		for sb := 0; sb < numSubbands; sb++ {
			if bitneed[ch][sb] > maxNeed {
				maxNeed = bitneed[ch][sb]
			}
		}
	}

	// First pass: sweep the slice level down from the maximum bitneed.
	bitslice := maxNeed + 1
	for iter := 0; iter < 64; iter++ {
		if bitslice <= 0 || remaining <= 0 {
			break
		}
		bitslice--

		var used int32
		for ch := 0; ch < numChannels; ch++ {
			for sb := 0; sb < numSubbands; sb++ {
				if bitneed[ch][sb] == bitslice+1 {
					used += 2
				} else if bitneed[ch][sb] > bitslice && bits[ch][sb] > 0 {
					used++
				}
			}
		}

		if used <= remaining {
			for ch := 0; ch < numChannels; ch++ {
				for sb := 0; sb < numSubbands; sb++ {
					if bitneed[ch][sb] == bitslice+1 {
						bits[ch][sb] = 2
					} else if bitneed[ch][sb] > bitslice && bits[ch][sb] > 0 {
						bits[ch][sb]++
					}
				}
			}
			remaining -= used
		}
	}

	// Second pass: hand out any leftover bits evenly.
	for iter := 0; iter < 256; iter++ {
		if remaining <= 0 {
			break
		}

		allocated := false
		for ch := 0; ch < numChannels; ch++ {
			for sb := 0; sb < numSubbands; sb++ {
				if remaining <= 0 {
					break
				}
				if bits[ch][sb] >= 16 || bitneed[ch][sb] <= 0 {
					continue
				}
				if bits[ch][sb] == 0 {
					if remaining >= 2 {
						bits[ch][sb] = 2
						remaining -= 2
						allocated = true
					}
				} else {
					bits[ch][sb]++
					remaining--
					allocated = true
				}
			}
		}
		if !allocated {
			break
		}
	}

	// Joined subbands share an allocation across both channels.
	if cfg.ChannelMode == ModeJointStereo && numChannels == 2 {
		for sb := 0; sb < numSubbands; sb++ {
			if (joinFlags>>(numSubbands-1-sb))&1 == 1 {
				max := bits[0][sb]
				if bits[1][sb] > max {
					max = bits[1][sb]
				}
				bits[0][sb] = max
				bits[1][sb] = max
			}
		}
	}

	return bits
}
