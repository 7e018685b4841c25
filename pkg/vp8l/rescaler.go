package vp8l

// rescaler resamples a stream of rows by exact area averaging. Every
// source pixel spreads dstWidth units of weight across output pixels of
// capacity srcWidth, and every source row spreads dstHeight units across
// output rows of capacity srcHeight, so importing all srcHeight rows
// yields exactly dstHeight output rows with no drift. All arithmetic is
// integral; per-channel sums fit uint32 horizontally and uint64 after the
// vertical pass.
type rescaler struct {
	srcWidth, srcHeight int
	dstWidth, dstHeight int

	frow []uint32 // horizontal sums of the current source row, 4 per pixel
	irow []uint64 // vertical accumulation toward the next output row
	out  []uint32 // reused export row

	yAccum   int // capacity left in the output row being accumulated
	wPending int // weight of the current source row not yet absorbed
	rowsOut  int
}

func newRescaler(srcWidth, srcHeight, dstWidth, dstHeight int) *rescaler {
	return &rescaler{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		frow:      make([]uint32, dstWidth*4),
		irow:      make([]uint64, dstWidth*4),
		out:       make([]uint32, dstWidth),
		yAccum:    srcHeight,
	}
}

// importRow horizontally scales one source row and absorbs as much of its
// vertical weight as the current output row can take. Any remainder stays
// pending until exportRow opens the next output row.
func (r *rescaler) importRow(src []uint32) {
	r.hscale(src)
	r.wPending = r.dstHeight
	r.absorb()
}

func (r *rescaler) hscale(src []uint32) {
	var sum [4]uint32
	xAccum := r.srcWidth
	j := 0
	for _, p := range src {
		w := r.dstWidth
		for w > 0 {
			take := w
			if take > xAccum {
				take = xAccum
			}
			t := uint32(take)
			sum[0] += t * (p & 0xff)
			sum[1] += t * ((p >> 8) & 0xff)
			sum[2] += t * ((p >> 16) & 0xff)
			sum[3] += t * (p >> 24)
			xAccum -= take
			w -= take
			if xAccum == 0 {
				copy(r.frow[4*j:4*j+4], sum[:])
				sum = [4]uint32{}
				xAccum = r.srcWidth
				j++
			}
		}
	}
}

func (r *rescaler) absorb() {
	for r.wPending > 0 && r.yAccum > 0 {
		take := r.wPending
		if take > r.yAccum {
			take = r.yAccum
		}
		t := uint64(take)
		for i, f := range r.frow {
			r.irow[i] += t * uint64(f)
		}
		r.wPending -= take
		r.yAccum -= take
	}
}

// hasPendingOutput reports whether a fully accumulated output row awaits
// export.
func (r *rescaler) hasPendingOutput() bool {
	return r.yAccum == 0 && r.rowsOut < r.dstHeight
}

// exportRow finalizes the accumulated output row, resets the accumulator,
// and absorbs any weight left over from the current source row. The
// returned slice is reused by the next call.
func (r *rescaler) exportRow() []uint32 {
	den := uint64(r.srcWidth) * uint64(r.srcHeight)
	half := den / 2
	for j := 0; j < r.dstWidth; j++ {
		b := (r.irow[4*j+0] + half) / den
		g := (r.irow[4*j+1] + half) / den
		rr := (r.irow[4*j+2] + half) / den
		a := (r.irow[4*j+3] + half) / den
		r.out[j] = uint32(a)<<24 | uint32(rr)<<16 | uint32(g)<<8 | uint32(b)
		r.irow[4*j+0] = 0
		r.irow[4*j+1] = 0
		r.irow[4*j+2] = 0
		r.irow[4*j+3] = 0
	}
	r.rowsOut++
	r.yAccum = r.srcHeight
	r.absorb()
	return r.out
}
