package sbc

import "math/bits"

// quantizedMatrix holds quantized samples: [channel][block][subband].
type quantizedMatrix [maxChannels][maxBlocks][maxSubbands]uint16

// calcScaleFactors derives one scale factor per subband per channel
// from the maximum absolute subband sample.
func calcScaleFactors(sb *subbandMatrix, cfg Config) scaleFactors {
	numSubbands := cfg.Subbands.Count()
	numBlocks := cfg.BlockLength.Count()
	numChannels := cfg.Channels()

	var sf scaleFactors
	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < numSubbands; s++ {
			var maxVal int32
			for blk := 0; blk < numBlocks; blk++ {
				v := sb[ch][blk][s]
				if v < 0 {
					v = -v
				}
				if v > maxVal {
					maxVal = v
				}
			}
			sf[ch][s] = singleScaleFactor(maxVal)
		}
	}
	return sf
}

// singleScaleFactor maps a peak magnitude to the 0-15 scale factor
// range such that 2^(sf+1) > maxVal.
func singleScaleFactor(maxVal int32) uint8 {
	if maxVal <= 0 {
		return 0
	}

	bitsNeeded := 32 - bits.LeadingZeros32(uint32(maxVal))
	sf := 0
	if bitsNeeded > 1 {
		sf = bitsNeeded - 1
	}
	if sf > 15 {
		sf = 15
	}
	return uint8(sf)
}

// jointStereoProcess converts correlated L/R subbands to mid/side and
// returns the join flags byte (one bit per subband, MSB = subband 0).
// The highest subband is never joined in 8-subband mode.
func jointStereoProcess(sb subbandMatrix, sf *scaleFactors, cfg Config) (subbandMatrix, uint8) {
	if cfg.ChannelMode != ModeJointStereo {
		return sb, 0
	}

	numSubbands := cfg.Subbands.Count()
	numBlocks := cfg.BlockLength.Count()

	joinLimit := numSubbands
	if numSubbands == 8 {
		joinLimit = numSubbands - 1
	}

	var joinFlags uint8
	for s := 0; s < joinLimit; s++ {
		if !shouldJoin(&sb, s, numBlocks, sf[0][s], sf[1][s]) {
			continue
		}

		joinFlags |= 1 << (numSubbands - 1 - s)
		for blk := 0; blk < numBlocks; blk++ {
			left := sb[0][blk][s]
			right := sb[1][blk][s]
			sb[0][blk][s] = (left + right) >> 1 // mid
			sb[1][blk][s] = (left - right) >> 1 // side
		}
	}

	return sb, joinFlags
}

// shouldJoin decides whether mid/side coding pays off for one subband:
// similar scale factors and high L/R correlation.
func shouldJoin(sb *subbandMatrix, s, numBlocks int, leftSF, rightSF uint8) bool {
	diff := int(leftSF) - int(rightSF)
	if diff < 0 {
		diff = -diff
	}
	if diff > 4 {
		return false
	}

	var sumProduct, sumLeftSq, sumRightSq int64
	for blk := 0; blk < numBlocks; blk++ {
		left := int64(sb[0][blk][s])
		right := int64(sb[1][blk][s])
		sumProduct += left * right
		sumLeftSq += left * left
		sumRightSq += right * right
	}

	if sumLeftSq == 0 || sumRightSq == 0 {
		return false
	}

	// Squared correlation test, roughly corr > 0.5. >= so identical
	// channels (corr = 1) join.
	threshold := (sumLeftSq >> 2) * (sumRightSq >> 2)
	productSq := (sumProduct >> 2) * (sumProduct >> 2)
	return productSq >= threshold
}

// quantize maps subband samples to their allocated bit widths.
func quantize(sb *subbandMatrix, alloc *bitCounts, sf *scaleFactors, cfg Config) quantizedMatrix {
	numSubbands := cfg.Subbands.Count()
	numBlocks := cfg.BlockLength.Count()
	numChannels := cfg.Channels()

	var out quantizedMatrix
	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < numSubbands; s++ {
			bitCount := alloc[ch][s]
			if bitCount == 0 {
				continue
			}
			levels := scaleFactorLevels[sf[ch][s]]
			for blk := 0; blk < numBlocks; blk++ {
				out[ch][blk][s] = quantizeSample(sb[ch][blk][s], bitCount, levels)
			}
		}
	}
	return out
}

// quantizeSample normalizes one sample by its scale level and maps it
// onto [0, 2^bits-1].
func quantizeSample(sample int32, bitCount uint8, scaleLevel int32) uint16 {
	levels := int64(1)<<bitCount - 1

	normalized := (int64(sample) << 15) / int64(scaleLevel)
	q := (normalized + 32768) * levels >> 16

	if q < 0 {
		return 0
	}
	if q > levels {
		return uint16(levels)
	}
	return uint16(q)
}
