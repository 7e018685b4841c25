package vp8l

const argbBlack = 0xff000000

func average2(a, b uint32) uint32 {
	return (((a ^ b) & 0xfefefefe) >> 1) + (a & b)
}

func average3(a, b, c uint32) uint32 {
	return average2(average2(a, c), b)
}

func average4(a, b, c, d uint32) uint32 {
	return average2(average2(a, b), average2(c, d))
}

func clip255(a int32) uint32 {
	if a < 0 {
		return 0
	}
	if a > 255 {
		return 255
	}
	return uint32(a)
}

func addSubtractComponentFull(a, b, c int32) uint32 {
	return clip255(a + b - c)
}

func clampedAddSubtractFull(c0, c1, c2 uint32) uint32 {
	a := addSubtractComponentFull(int32(c0>>24), int32(c1>>24), int32(c2>>24))
	r := addSubtractComponentFull(int32((c0>>16)&0xff), int32((c1>>16)&0xff), int32((c2>>16)&0xff))
	g := addSubtractComponentFull(int32((c0>>8)&0xff), int32((c1>>8)&0xff), int32((c2>>8)&0xff))
	b := addSubtractComponentFull(int32(c0&0xff), int32(c1&0xff), int32(c2&0xff))
	return a<<24 | r<<16 | g<<8 | b
}

func addSubtractComponentHalf(a, b int32) uint32 {
	return clip255(a + (a-b)/2)
}

func clampedAddSubtractHalf(c0, c1, c2 uint32) uint32 {
	ave := average2(c0, c1)
	a := addSubtractComponentHalf(int32(ave>>24), int32(c2>>24))
	r := addSubtractComponentHalf(int32((ave>>16)&0xff), int32((c2>>16)&0xff))
	g := addSubtractComponentHalf(int32((ave>>8)&0xff), int32((c2>>8)&0xff))
	b := addSubtractComponentHalf(int32(ave&0xff), int32(c2&0xff))
	return a<<24 | r<<16 | g<<8 | b
}

func sub3(a, b, c int32) int32 {
	pb := b - c
	pa := a - c
	if pb < 0 {
		pb = -pb
	}
	if pa < 0 {
		pa = -pa
	}
	return pb - pa
}

// sel picks top or left by gradient: the neighbor opposite the one that
// better matches the corner pixel.
func sel(a, b, c uint32) uint32 {
	paMinusPb := sub3(int32(a>>24), int32(b>>24), int32(c>>24)) +
		sub3(int32((a>>16)&0xff), int32((b>>16)&0xff), int32((c>>16)&0xff)) +
		sub3(int32((a>>8)&0xff), int32((b>>8)&0xff), int32((c>>8)&0xff)) +
		sub3(int32(a&0xff), int32(b&0xff), int32(c&0xff))
	if paMinusPb <= 0 {
		return a
	}
	return b
}

// predictorFunc computes the prediction from the left pixel and the top
// row window centered on the current column (top[0] is directly above,
// top[-1] top-left, top[1] top-right).
type predictorFunc func(left uint32, top []uint32, x int) uint32

var predictors = [16]predictorFunc{
	func(uint32, []uint32, int) uint32 { return argbBlack },
	func(left uint32, _ []uint32, _ int) uint32 { return left },
	func(_ uint32, top []uint32, x int) uint32 { return top[x] },
	func(_ uint32, top []uint32, x int) uint32 { return top[x+1] },
	func(_ uint32, top []uint32, x int) uint32 { return top[x-1] },
	func(left uint32, top []uint32, x int) uint32 { return average3(left, top[x], top[x+1]) },
	func(left uint32, top []uint32, x int) uint32 { return average2(left, top[x-1]) },
	func(left uint32, top []uint32, x int) uint32 { return average2(left, top[x]) },
	func(_ uint32, top []uint32, x int) uint32 { return average2(top[x-1], top[x]) },
	func(_ uint32, top []uint32, x int) uint32 { return average2(top[x], top[x+1]) },
	func(left uint32, top []uint32, x int) uint32 { return average4(left, top[x-1], top[x], top[x+1]) },
	func(left uint32, top []uint32, x int) uint32 { return sel(top[x], left, top[x-1]) },
	func(left uint32, top []uint32, x int) uint32 { return clampedAddSubtractFull(left, top[x], top[x-1]) },
	func(left uint32, top []uint32, x int) uint32 { return clampedAddSubtractHalf(left, top[x], top[x-1]) },
	// modes 14 and 15 are unused by encoders; alias the first two so a
	// hostile mode byte cannot index out of range
	func(uint32, []uint32, int) uint32 { return argbBlack },
	func(left uint32, _ []uint32, _ int) uint32 { return left },
}

// predictorInverse reconstructs rows [yStart, yEnd). in holds the decoded
// residual rows; rows holds one saved top row (the reconstruction of
// yStart-1, unused when yStart is 0) followed by the output block, which
// in may alias. Residuals are additive modulo 256 per channel. The first
// row and column fall back to fixed boundary predictors.
func (t *transform) predictorInverse(yStart, yEnd int, in, rows []uint32) {
	width := t.xsize
	y := yStart
	cur := width // first pixel of the block, past the saved top row
	res := 0

	if y == 0 {
		rows[cur] = addPixels(in[res], argbBlack)
		for x := 1; x < width; x++ {
			rows[cur+x] = addPixels(in[res+x], rows[cur+x-1])
		}
		cur += width
		res += width
		y++
	}

	mask := (1 << uint(t.bits)) - 1
	tilesPerRow := subSampleSize(width, t.bits)

	for y < yEnd {
		// Full-length slice so the top-right neighbor of the last column
		// resolves to the first pixel of the current row, already
		// reconstructed by the time any predictor can reference it.
		top := rows[cur-width:]
		tileRow := t.data[(y>>uint(t.bits))*tilesPerRow:]

		// First pixel follows the top pixel.
		rows[cur] = addPixels(in[res], top[0])
		pred := predictors[(tileRow[0]>>8)&0xf]
		for x := 1; x < width; x++ {
			if x&mask == 0 { // crossed into the next tile
				pred = predictors[(tileRow[x>>uint(t.bits)]>>8)&0xf]
			}
			rows[cur+x] = addPixels(in[res+x], pred(rows[cur+x-1], top, x))
		}
		cur += width
		res += width
		y++
	}
}
