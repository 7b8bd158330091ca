package sbc

// Internal dimensioning limits; buffers are allocated for the maximum
// and sliced by the active configuration.
const (
	maxSubbands = 8
	maxBlocks   = 16
	maxChannels = 2

	// filterDepth is the polyphase filter history, 10 samples per
	// subband.
	filterDepth = 10
)

// subbandMatrix holds analysis output: [channel][block][subband].
type subbandMatrix [maxChannels][maxBlocks][maxSubbands]int32

// analysisFilter is the polyphase analysis filterbank. It keeps the
// per-channel filter memory between frames, which is why consecutive
// frames of identical PCM do not encode identically until the history
// settles.
type analysisFilter struct {
	// x is the filter memory per channel, subbands*filterDepth samples.
	x [maxChannels][maxSubbands * filterDepth]int32
}

func newAnalysisFilter() *analysisFilter {
	return &analysisFilter{}
}

// reset clears the filter history.
func (f *analysisFilter) reset() {
	for ch := range f.x {
		for i := range f.x[ch] {
			f.x[ch][i] = 0
		}
	}
}

// process runs one frame of interleaved PCM through the filterbank and
// returns the subband samples.
func (f *analysisFilter) process(pcm []int16, cfg Config) subbandMatrix {
	numSubbands := cfg.Subbands.Count()
	numBlocks := cfg.BlockLength.Count()
	numChannels := cfg.Channels()

	var out subbandMatrix

	for blk := 0; blk < numBlocks; blk++ {
		for ch := 0; ch < numChannels; ch++ {
			f.shiftIn(pcm, blk, ch, numSubbands, numChannels)
			sb := f.computeSubbands(ch, numSubbands)
			for i := 0; i < numSubbands; i++ {
				out[ch][blk][i] = sb[i]
			}
		}
	}

	return out
}

// shiftIn pushes one block of new samples for a channel into the filter
// memory, newest first.
func (f *analysisFilter) shiftIn(pcm []int16, block, channel, subbands, channels int) {
	pcmStart := block*subbands*channels + channel
	historyLen := subbands * filterDepth

	for i := historyLen - 1; i >= subbands; i-- {
		f.x[channel][i] = f.x[channel][i-subbands]
	}

	// New samples enter the history in reversed order.
	for i := 0; i < subbands; i++ {
		pcmIdx := pcmStart + (subbands-1-i)*channels
		f.x[channel][i] = int32(pcm[pcmIdx])
	}
}

// computeSubbands applies the windowed prototype filter then the cosine
// modulation matrix.
func (f *analysisFilter) computeSubbands(channel, subbands int) [maxSubbands]int32 {
	var sb [maxSubbands]int32
	var z [maxSubbands * 2]int64

	// Window by the prototype filter.
	for j := 0; j < filterDepth; j++ {
		for i := 0; i < subbands; i++ {
			idx := j*subbands + i
			zIdx := i + (j%2)*subbands

			xVal := int64(f.x[channel][idx])
			var protoVal int64
			if subbands == 8 {
				protoVal = int64(proto880[idx])
			} else {
				protoVal = int64(proto440[idx])
			}

			z[zIdx] += (xVal * protoVal) >> 15
		}
	}

	// Cosine modulation.
	for k := 0; k < subbands; k++ {
		var sum int64
		for i := 0; i < subbands*2; i++ {
			cosIdx := i % subbands
			var cosVal int64
			if subbands == 8 {
				cosVal = int64(cosTable8[k][cosIdx])
			} else {
				cosVal = int64(cosTable4[k][cosIdx])
			}
			sum += (z[i] * cosVal) >> 14
		}
		sb[k] = int32(sum >> 8)
	}

	return sb
}
