package vp8l

import "fmt"

// maxTransforms bounds the transform stack; each kind may also appear at
// most once per stream.
const maxTransforms = 4

type transformType int

const (
	transformPredictor     transformType = 0
	transformCrossColor    transformType = 1
	transformSubtractGreen transformType = 2
	transformColorIndexing transformType = 3
)

func (t transformType) String() string {
	switch t {
	case transformPredictor:
		return "predictor"
	case transformCrossColor:
		return "cross-color"
	case transformSubtractGreen:
		return "subtract-green"
	case transformColorIndexing:
		return "color-indexing"
	}
	return fmt.Sprintf("transform(%d)", int(t))
}

// transform is one reversible pixel-domain transform. xsize/ysize are the
// dimensions of the image the transform applies to (pre-packing for
// color-indexing); data is the auxiliary sub-image, nil for subtract-green.
type transform struct {
	kind  transformType
	bits  int
	xsize int
	ysize int
	data  []uint32
}

// readTransform parses one transform entry, recursing into this decoder for
// any auxiliary sub-image, and appends it to the stack. It returns the
// (possibly packed) dimensions the remaining stream is coded at.
func (d *Decoder) readTransform(xsize, ysize int) (int, int, error) {
	br := d.br
	if len(d.transforms) >= maxTransforms {
		return 0, 0, fmt.Errorf("more than %d transforms: %w", maxTransforms, ErrBitstream)
	}
	kind := transformType(br.readBits(2))
	for _, prev := range d.transforms {
		if prev.kind == kind {
			return 0, 0, fmt.Errorf("duplicate %v transform: %w", kind, ErrBitstream)
		}
	}

	t := transform{kind: kind, xsize: xsize, ysize: ysize}
	switch kind {
	case transformPredictor, transformCrossColor:
		t.bits = int(br.readBits(4))
		data, err := d.decodeImageStream(
			subSampleSize(xsize, t.bits), subSampleSize(ysize, t.bits), false, true)
		if err != nil {
			return 0, 0, err
		}
		t.data = data

	case transformColorIndexing:
		numColors := int(br.readBits(8)) + 1
		switch {
		case numColors > 16:
			t.bits = 0
		case numColors > 4:
			t.bits = 1
		case numColors > 2:
			t.bits = 2
		default:
			t.bits = 3
		}
		palette, err := d.decodeImageStream(numColors, 1, false, true)
		if err != nil {
			return 0, 0, err
		}
		t.data = expandColorMap(numColors, t.bits, palette)
		xsize = subSampleSize(xsize, t.bits)

	case transformSubtractGreen:
		// no parameters, no auxiliary data
	}

	d.transforms = append(d.transforms, t)
	return xsize, ysize, nil
}

// expandColorMap finishes the palette: entries are cumulative per-channel
// deltas off their predecessor, and the table is padded with zero entries
// up to the full range addressable by the packed index width, so a
// malicious index can never read outside it.
func expandColorMap(numColors, bits int, palette []uint32) []uint32 {
	finalNumColors := 1 << uint(8>>bits)
	colorMap := make([]uint32, finalNumColors)
	if numColors > 0 {
		colorMap[0] = palette[0]
	}
	for i := 1; i < numColors; i++ {
		colorMap[i] = addPixels(palette[i], colorMap[i-1])
	}
	return colorMap
}

// addPixels adds two pixels channel-wise modulo 256.
func addPixels(a, b uint32) uint32 {
	alphaAndGreen := (a & 0xff00ff00) + (b & 0xff00ff00)
	redAndBlue := (a & 0x00ff00ff) + (b & 0x00ff00ff)
	return (alphaAndGreen & 0xff00ff00) | (redAndBlue & 0x00ff00ff)
}

// inverse applies the transform's inversion to rows [yStart, yEnd). in
// holds the source rows at the transform's coded width; scratch is the
// pipeline scratch laid out as one saved row of prediction headroom of
// headroom pixels followed by the output block. in may alias the output
// block when an earlier inversion already landed the rows there.
func (t *transform) inverse(yStart, yEnd int, in, scratch []uint32, headroom int) {
	out := scratch[headroom:]
	numRows := yEnd - yStart
	switch t.kind {
	case transformSubtractGreen:
		addGreenToBlueAndRed(in[:numRows*t.xsize], out)

	case transformPredictor:
		t.predictorInverse(yStart, yEnd, in, scratch[headroom-t.xsize:])
		if yEnd != t.ysize {
			// The last reconstructed row seeds top prediction for the
			// next block.
			copy(scratch[headroom-t.xsize:headroom],
				out[(numRows-1)*t.xsize:numRows*t.xsize])
		}

	case transformCrossColor:
		t.crossColorInverse(yStart, yEnd, in, out)

	case transformColorIndexing:
		if t.bits > 0 && len(in) > 0 && len(out) > 0 && &in[0] == &out[0] {
			// Unpacking in place would overwrite pending packed input, so
			// slide the packed rows to the tail of the output region first.
			packedWidth := subSampleSize(t.xsize, t.bits)
			outPixels := numRows * t.xsize
			inPixels := numRows * packedWidth
			packed := out[outPixels-inPixels : outPixels]
			copy(packed, in[:inPixels])
			t.colorIndexInverse(yStart, yEnd, packed, out)
		} else {
			t.colorIndexInverse(yStart, yEnd, in, out)
		}
	}
}

func addGreenToBlueAndRed(src, dst []uint32) {
	for i, argb := range src {
		green := (argb >> 8) & 0xff
		redBlue := argb & 0x00ff00ff
		redBlue += (green << 16) | green
		redBlue &= 0x00ff00ff
		dst[i] = (argb & 0xff00ff00) | redBlue
	}
}

// colorTransformDelta computes the signed multiplier contribution; both
// arguments are reinterpreted as signed bytes.
func colorTransformDelta(colorPred, color uint8) uint32 {
	return uint32((int32(int8(colorPred)) * int32(int8(color))) >> 5)
}

type multipliers struct {
	greenToRed  uint8
	greenToBlue uint8
	redToBlue   uint8
}

func colorCodeToMultipliers(colorCode uint32) multipliers {
	return multipliers{
		greenToRed:  uint8(colorCode),
		greenToBlue: uint8(colorCode >> 8),
		redToBlue:   uint8(colorCode >> 16),
	}
}

func (m multipliers) transformColorInverse(argb uint32) uint32 {
	green := uint8(argb >> 8)
	newRed := (argb >> 16) & 0xff
	newBlue := argb & 0xff
	newRed += colorTransformDelta(m.greenToRed, green)
	newRed &= 0xff
	newBlue += colorTransformDelta(m.greenToBlue, green)
	newBlue += colorTransformDelta(m.redToBlue, uint8(newRed))
	newBlue &= 0xff
	return (argb & 0xff00ff00) | (newRed << 16) | newBlue
}

// crossColorInverse undoes the per-tile decorrelation for rows
// [yStart, yEnd), reading src and writing dst (which may alias).
func (t *transform) crossColorInverse(yStart, yEnd int, src, dst []uint32) {
	width := t.xsize
	mask := (1 << uint(t.bits)) - 1
	tilesPerRow := subSampleSize(width, t.bits)

	pos := 0
	for y := yStart; y < yEnd; y++ {
		tileRow := t.data[(y>>uint(t.bits))*tilesPerRow:]
		var m multipliers
		for x := 0; x < width; x++ {
			if x&mask == 0 {
				m = colorCodeToMultipliers(tileRow[x>>uint(t.bits)])
			}
			dst[pos] = m.transformColorInverse(src[pos])
			pos++
		}
	}
}

// colorIndexInverse maps packed palette indices from in (coded width) to
// full-width pixels in out. Indices live in the green byte; with fewer than
// 8 bits per pixel several indices share one coded pixel.
func (t *transform) colorIndexInverse(yStart, yEnd int, in, out []uint32) {
	width := t.xsize
	colorMap := t.data
	bitsPerPixel := 8 >> uint(t.bits)

	if bitsPerPixel < 8 {
		pixelsPerByte := 1 << uint(t.bits)
		countMask := pixelsPerByte - 1
		bitMask := uint32(1<<uint(bitsPerPixel)) - 1
		src, dst := 0, 0
		for y := yStart; y < yEnd; y++ {
			var packed uint32
			for x := 0; x < width; x++ {
				if x&countMask == 0 {
					packed = (in[src] >> 8) & 0xff
					src++
				}
				out[dst] = colorMap[packed&bitMask]
				dst++
				packed >>= uint(bitsPerPixel)
			}
		}
		return
	}
	src, dst := 0, 0
	for y := yStart; y < yEnd; y++ {
		for x := 0; x < width; x++ {
			out[dst] = colorMap[(in[src]>>8)&0xff]
			src++
			dst++
		}
	}
}
