package vp8l

// maxBitRead bounds a single ReadBits call. Nothing in the format needs more
// than 16 bits at once; the window math assumes n stays well under 32.
const maxBitRead = 25

// bitReader consumes a bitstream least-significant-bit first over an
// immutable byte buffer. It keeps a 64-bit prefetch window so that Huffman
// tree walks can use unchecked single-bit reads between window fills.
//
// The position never moves backwards. Reading past the declared length
// returns zero bits and raises the eos flag; calling ReadBits again after
// eos raises the err flag. The two flags stay distinct so callers can tell
// "ran out of input" from "structurally invalid stream".
type bitReader struct {
	buf    []byte
	val    uint64 // prefetch window, LSB is the next bit
	pos    int    // next byte of buf to feed into val
	bitPos int    // bits of val already consumed
	eos    bool   // all declared input consumed
	err    bool   // read attempted past eos, or invalid read size
}

func newBitReader(buf []byte) *bitReader {
	br := &bitReader{buf: buf}
	for br.pos < len(buf) && br.pos < 8 {
		br.val |= uint64(buf[br.pos]) << uint(8*br.pos)
		br.pos++
	}
	return br
}

// windowBits is the number of loaded bits in val, counting consumed ones.
func (br *bitReader) windowBits() int {
	if len(br.buf) >= 8 {
		return 64
	}
	return 8 * len(br.buf)
}

// shiftBytes feeds fresh bytes into the window once whole bytes have been
// consumed. It leaves bitPos < 8 as long as input bytes remain.
func (br *bitReader) shiftBytes() {
	for br.bitPos >= 8 && br.pos < len(br.buf) {
		br.val >>= 8
		br.val |= uint64(br.buf[br.pos]) << 56
		br.pos++
		br.bitPos -= 8
	}
}

// fillWindow tops up the prefetch window. Callers on the unchecked path must
// invoke it at least every second symbol read; after a fill the window holds
// at least 32 readable bits whenever eight or more input bytes remain.
func (br *bitReader) fillWindow() {
	if br.bitPos >= 32 {
		br.shiftBytes()
	}
}

// canReadUnchecked reports whether the unchecked bit path is provably safe:
// the remaining byte budget covers a full window refill.
func (br *bitReader) canReadUnchecked() bool {
	return br.pos+8 <= len(br.buf)
}

// readBits returns the next n bits, LSB first. On exhaustion it returns the
// remaining bits zero-padded and sets eos; later calls set err.
func (br *bitReader) readBits(n int) uint32 {
	if br.err || br.eos || n < 0 || n >= maxBitRead {
		br.err = true
		return 0
	}
	if br.pos == len(br.buf) && br.bitPos+n > br.windowBits() {
		br.eos = true
	}
	shift := uint(br.bitPos)
	var v uint32
	if shift < 64 {
		v = uint32(br.val>>shift) & ((1 << uint(n)) - 1)
	}
	br.bitPos += n
	br.shiftBytes()
	return v
}

// readBit is the checked single-bit read.
func (br *bitReader) readBit() uint32 {
	return br.readBits(1)
}

// readBitUnchecked must only be called when canReadUnchecked held at the last
// fillWindow, and with fillWindow invoked at least every second symbol.
func (br *bitReader) readBitUnchecked() uint32 {
	v := uint32(br.val>>uint(br.bitPos)) & 1
	br.bitPos++
	return v
}
