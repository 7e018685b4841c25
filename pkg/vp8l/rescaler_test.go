package vp8l

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescaler_Identity(t *testing.T) {
	r := newRescaler(3, 2, 3, 2)
	rows := [][]uint32{
		{0xff102030, 0x80405060, 0x00718293},
		{0x01020304, 0xfffefdfc, 0x7f7f7f7f},
	}
	for _, row := range rows {
		r.importRow(row)
		require.True(t, r.hasPendingOutput())
		got := r.exportRow()
		assert.Equal(t, row, got)
		assert.False(t, r.hasPendingOutput())
	}
}

func TestRescaler_Downscale(t *testing.T) {
	// 2x2 -> 1x1 averages the four pixels exactly.
	r := newRescaler(2, 2, 1, 1)
	r.importRow([]uint32{0x00000010, 0x00000020})
	require.False(t, r.hasPendingOutput())
	r.importRow([]uint32{0x00000030, 0x00000040})
	require.True(t, r.hasPendingOutput())

	got := r.exportRow()
	assert.Equal(t, []uint32{0x00000028}, got)
}

func TestRescaler_UpscaleRows(t *testing.T) {
	// One source row expands to three identical output rows.
	r := newRescaler(2, 1, 2, 3)
	r.importRow([]uint32{0xff000011, 0xff000022})

	var out [][]uint32
	for r.hasPendingOutput() {
		row := r.exportRow()
		out = append(out, append([]uint32(nil), row...))
	}
	require.Len(t, out, 3)
	for _, row := range out {
		assert.Equal(t, []uint32{0xff000011, 0xff000022}, row)
	}
}

func TestRescaler_RowCountIsExact(t *testing.T) {
	tests := []struct {
		name       string
		srcH, dstH int
	}{
		{name: "downscale rows", srcH: 7, dstH: 3},
		{name: "upscale rows", srcH: 3, dstH: 7},
		{name: "one to many", srcH: 1, dstH: 5},
		{name: "many to one", srcH: 9, dstH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRescaler(4, tt.srcH, 4, tt.dstH)
			row := []uint32{1, 2, 3, 4}
			exported := 0
			for i := 0; i < tt.srcH; i++ {
				r.importRow(row)
				for r.hasPendingOutput() {
					r.exportRow()
					exported++
				}
			}
			assert.Equal(t, tt.dstH, exported)
		})
	}
}

func TestRescaler_HorizontalAverage(t *testing.T) {
	// 4 -> 2: adjacent pairs average.
	r := newRescaler(4, 1, 2, 1)
	r.importRow([]uint32{0x00000010, 0x00000020, 0x000000f0, 0x000000f0})
	require.True(t, r.hasPendingOutput())
	assert.Equal(t, []uint32{0x00000018, 0x000000f0}, r.exportRow())
}
