package sbc

// SyncWord is the first byte of every SBC frame.
const SyncWord = 0x9C

// crcPoly is the CRC-8 polynomial x^8+x^4+x^3+x^2+1.
const crcPoly = 0x1D

// framePacker serializes one frame into the SBC bitstream layout:
// 4-byte header, optional join flags, 4-bit scale factors, then the
// quantized samples block-major.
type framePacker struct {
	bitBuffer uint32
	bitCount  uint8
}

func newFramePacker() *framePacker {
	return &framePacker{}
}

func (p *framePacker) reset() {
	p.bitBuffer = 0
	p.bitCount = 0
}

// writeBits appends numBits of value (LSB-aligned) to the output.
func (p *framePacker) writeBits(out []byte, pos *int, value uint32, numBits uint8) {
	p.bitBuffer = p.bitBuffer<<numBits | value&(1<<numBits-1)
	p.bitCount += numBits

	for p.bitCount >= 8 {
		p.bitCount -= 8
		out[*pos] = byte(p.bitBuffer >> p.bitCount)
		*pos++
	}
}

// flush pads the final partial byte with zeroes.
func (p *framePacker) flush(out []byte, pos *int) {
	if p.bitCount > 0 {
		padding := 8 - p.bitCount
		out[*pos] = byte(p.bitBuffer << padding)
		*pos++
	}
	p.reset()
}

// pack writes the complete frame and returns its length in bytes.
func (p *framePacker) pack(cfg Config, joinFlags uint8, sf *scaleFactors, alloc *bitCounts, samples *quantizedMatrix, out []byte) int {
	p.reset()
	pos := 0

	// Header.
	out[pos] = SyncWord
	pos++
	out[pos] = byte(cfg.SamplingFrequency)<<6 |
		byte(cfg.BlockLength)<<4 |
		byte(cfg.ChannelMode)<<2 |
		byte(cfg.AllocationMethod)<<1 |
		byte(cfg.Subbands)
	pos++
	out[pos] = cfg.Bitpool
	pos++
	crcPos := pos
	out[pos] = 0 // CRC filled in after packing
	pos++

	numSubbands := cfg.Subbands.Count()
	numBlocks := cfg.BlockLength.Count()
	numChannels := cfg.Channels()

	if cfg.ChannelMode == ModeJointStereo {
		p.writeBits(out, &pos, uint32(joinFlags), uint8(numSubbands))
	}

	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < numSubbands; s++ {
			p.writeBits(out, &pos, uint32(sf[ch][s]), 4)
		}
	}

	for blk := 0; blk < numBlocks; blk++ {
		for ch := 0; ch < numChannels; ch++ {
			for s := 0; s < numSubbands; s++ {
				if bitCount := alloc[ch][s]; bitCount > 0 {
					p.writeBits(out, &pos, uint32(samples[ch][blk][s]), bitCount)
				}
			}
		}
	}

	p.flush(out, &pos)

	out[crcPos] = frameCRC(out[:pos])
	return pos
}

// frameCRC computes the CRC-8 over the frame contents, skipping the
// sync word and the CRC byte itself.
func frameCRC(data []byte) uint8 {
	var crc uint8 = 0x0F

	for i := 1; i < len(data); i++ {
		if i == 3 {
			continue
		}
		b := data[i]
		for bit := 0; bit < 8; bit++ {
			msb := crc >> 7 & 1
			crc <<= 1
			if (b>>(7-bit))&1^msb == 1 {
				crc ^= crcPoly
			}
		}
	}

	return crc
}
