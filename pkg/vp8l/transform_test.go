package vp8l

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPixels(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint32
		expected uint32
	}{
		{name: "plain", a: 0x01020304, b: 0x01020304, expected: 0x02040608},
		{name: "wrap all channels", a: 0xffffffff, b: 0x01010101, expected: 0x00000000},
		{name: "wrap one channel", a: 0x00ff0000, b: 0x00020000, expected: 0x00010000},
		{name: "identity", a: 0xdeadbeef, b: 0, expected: 0xdeadbeef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, addPixels(tt.a, tt.b))
		})
	}
}

func TestExpandColorMap(t *testing.T) {
	// Entries are deltas off their predecessor; the table pads out to the
	// full packed-index range.
	palette := []uint32{0xff000010, 0x00000010, 0x00000010}
	colorMap := expandColorMap(3, 2, palette)

	assert.Equal(t, []uint32{0xff000010, 0xff000020, 0xff000030, 0}, colorMap)
}

func TestExpandColorMap_FullWidthIndices(t *testing.T) {
	palette := []uint32{0xff102030, 0x00010101}
	colorMap := expandColorMap(2, 0, palette)

	require.Len(t, colorMap, 256)
	assert.Equal(t, uint32(0xff102030), colorMap[0])
	assert.Equal(t, uint32(0xff112131), colorMap[1])
	assert.Equal(t, uint32(0), colorMap[255])
}

func TestAddGreenToBlueAndRed(t *testing.T) {
	tests := []struct {
		name     string
		in       uint32
		expected uint32
	}{
		{name: "plain", in: 0x00102030, expected: 0x00302050},
		{name: "wrap", in: 0x00ffff02, expected: 0x00feff01},
		{name: "zero green", in: 0x80110022, expected: 0x80110022},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]uint32, 1)
			addGreenToBlueAndRed([]uint32{tt.in}, got)
			assert.Equal(t, tt.expected, got[0])
		})
	}
}

func TestTransformColorInverse(t *testing.T) {
	t.Run("zero multipliers are identity", func(t *testing.T) {
		m := colorCodeToMultipliers(0)
		assert.Equal(t, uint32(0xff817242), m.transformColorInverse(0xff817242))
	})

	t.Run("positive green to red", func(t *testing.T) {
		m := multipliers{greenToRed: 4}
		// delta = (4 * 64) >> 5 = 8
		got := m.transformColorInverse(0xff104000)
		assert.Equal(t, uint32(0xff184000), got)
	})

	t.Run("negative green to red", func(t *testing.T) {
		m := multipliers{greenToRed: 0xfc} // -4 as int8
		// delta = (-4 * 64) >> 5 = -8
		got := m.transformColorInverse(0xff104000)
		assert.Equal(t, uint32(0xff084000), got)
	})

	t.Run("red to blue uses the restored red", func(t *testing.T) {
		m := multipliers{greenToRed: 4, redToBlue: 32}
		// red becomes 0x18, then blue delta = (32 * 0x18) >> 5 = 0x18.
		got := m.transformColorInverse(0xff104000)
		assert.Equal(t, uint32(0xff184018), got)
	})
}

func TestCrossColorInverse(t *testing.T) {
	code := uint32(4) | uint32(3)<<8 | uint32(2)<<16 // g2r, g2b, r2b
	tr := &transform{
		kind:  transformCrossColor,
		bits:  3,
		xsize: 2,
		ysize: 1,
		data:  []uint32{code},
	}
	src := []uint32{0xff104020, 0xff000000}
	dst := make([]uint32, 2)
	tr.crossColorInverse(0, 1, src, dst)

	m := colorCodeToMultipliers(code)
	assert.Equal(t, m.transformColorInverse(src[0]), dst[0])
	assert.Equal(t, m.transformColorInverse(src[1]), dst[1])
}

func TestColorIndexInverse_Packed(t *testing.T) {
	palette := []uint32{0xff000001, 0x00000001, 0x00000001, 0x00000001}
	tr := &transform{
		kind:  transformColorIndexing,
		bits:  2, // four indices per coded pixel
		xsize: 5,
		ysize: 1,
		data:  expandColorMap(4, 2, palette),
	}
	// Indices 0,1,2,3 packed into one green byte, then index 1.
	in := []uint32{uint32(0b11100100) << 8, uint32(1) << 8}
	out := make([]uint32, 5)
	tr.colorIndexInverse(0, 1, in, out)

	assert.Equal(t, []uint32{
		0xff000001, 0xff000002, 0xff000003, 0xff000004, 0xff000002,
	}, out)
}

func TestColorIndexInverse_Direct(t *testing.T) {
	colorMap := make([]uint32, 256)
	colorMap[7] = 0xff123456
	tr := &transform{
		kind:  transformColorIndexing,
		bits:  0,
		xsize: 2,
		ysize: 1,
		data:  colorMap,
	}
	in := []uint32{uint32(7) << 8, 0}
	out := make([]uint32, 2)
	tr.colorIndexInverse(0, 1, in, out)

	assert.Equal(t, []uint32{0xff123456, 0}, out)
}

func TestColorIndexInverse_InPlaceViaDispatch(t *testing.T) {
	palette := []uint32{0xff000001, 0x00000001, 0x00000001, 0x00000001}
	tr := &transform{
		kind:  transformColorIndexing,
		bits:  2,
		xsize: 5,
		ysize: 1,
		data:  expandColorMap(4, 2, palette),
	}
	headroom := 5
	scratch := make([]uint32, headroom+5)
	block := scratch[headroom:]
	block[0] = uint32(0b11100100) << 8
	block[1] = uint32(1) << 8

	// Aliased input: a previous inversion left the packed rows in the block.
	tr.inverse(0, 1, block, scratch, headroom)

	assert.Equal(t, []uint32{
		0xff000001, 0xff000002, 0xff000003, 0xff000004, 0xff000002,
	}, block)
}

func TestPredictorInverse_TopMode(t *testing.T) {
	tr := &transform{
		kind:  transformPredictor,
		bits:  2,
		xsize: 2,
		ysize: 3,
		data:  []uint32{2 << 8}, // top predictor for the whole tile
	}
	headroom := 2
	scratch := make([]uint32, headroom+2*3)
	in := []uint32{0, 0, 1, 2}

	tr.inverse(0, 2, in, scratch, headroom)
	out := scratch[headroom:]
	// Row 0: black, then left. Row 1: top with residuals 1 and 2.
	assert.Equal(t, uint32(0xff000000), out[0])
	assert.Equal(t, uint32(0xff000000), out[1])
	assert.Equal(t, uint32(0xff000001), out[2])
	assert.Equal(t, uint32(0xff000002), out[3])

	// The block boundary saved row 1 as the next top row.
	assert.Equal(t, []uint32{0xff000001, 0xff000002}, scratch[:2])

	tr.inverse(2, 3, []uint32{5, 6}, scratch, headroom)
	assert.Equal(t, uint32(0xff000006), out[0])
	assert.Equal(t, uint32(0xff000008), out[1])
}

func TestPredictorInverse_LeftMode(t *testing.T) {
	tr := &transform{
		kind:  transformPredictor,
		bits:  2,
		xsize: 3,
		ysize: 2,
		data:  []uint32{1 << 8}, // left predictor
	}
	headroom := 3
	scratch := make([]uint32, headroom+3*2)
	in := []uint32{1, 1, 1, 2, 3, 4}

	tr.inverse(0, 2, in, scratch, headroom)
	out := scratch[headroom:]
	// Row 0 always uses black then left.
	assert.Equal(t, []uint32{0xff000001, 0xff000002, 0xff000003}, out[:3])
	// Row 1: first pixel from top, then left accumulation.
	assert.Equal(t, []uint32{0xff000003, 0xff000006, 0xff00000a}, out[3:])
}

func TestPredictorHelpers(t *testing.T) {
	assert.Equal(t, uint32(0x00000010), average2(0x00000010, 0x00000010))
	assert.Equal(t, uint32(0x00000018), average2(0x00000010, 0x00000020))

	t.Run("clamped add subtract full saturates", func(t *testing.T) {
		got := clampedAddSubtractFull(0xff0000f0, 0xff0000f0, 0xff000000)
		assert.Equal(t, uint32(0xff0000ff), got)
	})

	t.Run("clamped add subtract full floors", func(t *testing.T) {
		got := clampedAddSubtractFull(0xff000010, 0xff000010, 0xff0000ff)
		assert.Equal(t, uint32(0xff000000), got)
	})

	t.Run("select follows the gradient", func(t *testing.T) {
		top := uint32(0xff000010)
		left := uint32(0xff0000f0)
		topLeft := uint32(0xff0000f8)
		// left matches the corner, so the gradient points at top.
		assert.Equal(t, top, sel(top, left, topLeft))
		// and the other way around
		assert.Equal(t, left, sel(left, top, 0xff000008))
	})
}

func TestSubtractGreenViaDispatch(t *testing.T) {
	tr := &transform{kind: transformSubtractGreen, xsize: 2, ysize: 1}
	headroom := 2
	scratch := make([]uint32, headroom+2)
	in := []uint32{0x00102030, 0x00ffff02}

	tr.inverse(0, 1, in, scratch, headroom)
	assert.Equal(t, []uint32{0x00302050, 0x00feff01}, scratch[headroom:])
}
