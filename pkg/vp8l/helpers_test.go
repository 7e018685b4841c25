package vp8l

import "math/bits"

// bitWriter builds test streams least-significant-bit first, mirroring the
// reader's consumption order.
type bitWriter struct {
	data   []byte
	bitPos uint
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		if w.bitPos&7 == 0 {
			w.data = append(w.data, 0)
		}
		if v&(1<<uint(i)) != 0 {
			w.data[len(w.data)-1] |= 1 << (w.bitPos & 7)
		}
		w.bitPos++
	}
}

// writeCode emits a Huffman code MSB first, the order the decode tree
// walks it.
func (w *bitWriter) writeCode(code, length int) {
	for i := length - 1; i >= 0; i-- {
		w.writeBits(uint32(code>>uint(i))&1, 1)
	}
}

func (w *bitWriter) writeHeader(width, height int) {
	w.writeBits(magicByte, 8)
	w.writeBits(uint32(width-1), imageSizeBits)
	w.writeBits(uint32(height-1), imageSizeBits)
}

func simpleCodeNBits(maxSymbol int) int {
	nbits := 1
	for (nbits-1)*2+4 < bits.Len(uint(maxSymbol)) {
		nbits++
	}
	return nbits
}

// writeSingleSymbol emits a simple code whose sole symbol decodes without
// consuming any bits.
func (w *bitWriter) writeSingleSymbol(symbol int) {
	w.writeBits(1, 1) // simple form
	if symbol == 0 {
		w.writeBits(0, 3) // nbits 0 hardwires symbol 0
		return
	}
	nbits := simpleCodeNBits(symbol)
	w.writeBits(uint32(nbits), 3)
	w.writeBits(0, 1) // one symbol
	w.writeBits(uint32(symbol), (nbits-1)*2+4)
}

// writeTwoSymbols emits a simple code with two one-bit codes: stream bit 0
// selects s0, bit 1 selects s1.
func (w *bitWriter) writeTwoSymbols(s0, s1 int) {
	w.writeBits(1, 1) // simple form
	max := s0
	if s1 > max {
		max = s1
	}
	nbits := simpleCodeNBits(max)
	w.writeBits(uint32(nbits), 3)
	w.writeBits(1, 1) // two symbols
	numBits := (nbits-1)*2 + 4
	w.writeBits(uint32(s0), numBits)
	w.writeBits(uint32(s1), numBits)
}

// writeFlatGroup emits five single-symbol codes so that literal decode
// yields a constant pixel without consuming pixel bits.
func (w *bitWriter) writeFlatGroup(green, red, blue, alpha int) {
	w.writeSingleSymbol(green)
	w.writeSingleSymbol(red)
	w.writeSingleSymbol(blue)
	w.writeSingleSymbol(alpha)
	w.writeSingleSymbol(0) // distance
}

// writeNoMetaNoCache opens the Huffman section with both optional
// features disabled.
func (w *bitWriter) writeNoMetaNoCache() {
	w.writeBits(0, 1) // no meta Huffman index
	w.writeBits(0, 1) // no color cache
}
