package vp8l

// processRows runs the output pipeline over the finished rows [lastRow,
// row): transform inversion into the scratch block, crop intersection,
// optional rescaling, and colorspace conversion into the caller's buffer.
func (d *Decoder) processRows(row int) {
	numRows := row - d.lastRow
	if numRows <= 0 {
		return
	}
	rows := d.applyInverseTransforms(numRows, d.argb[d.width*d.lastRow:])
	d.emitRows(rows, d.lastRow, row)
	d.lastRow = row
}

// applyInverseTransforms undoes the transform stack, last-read first, over
// numRows finished rows. The first inversion reads the decoded buffer and
// every later one reads the scratch block in place; the result always ends
// up in the scratch block, which is returned.
func (d *Decoder) applyInverseTransforms(numRows int, rows []uint32) []uint32 {
	yStart := d.lastRow
	yEnd := yStart + numRows
	block := d.argbScratch[d.ioWidth:]

	in := rows
	for n := len(d.transforms) - 1; n >= 0; n-- {
		d.transforms[n].inverse(yStart, yEnd, in, d.argbScratch, d.ioWidth)
		in = block
	}
	if len(d.transforms) == 0 {
		copy(block[:d.ioWidth*numRows], rows)
	}
	return block[:d.ioWidth*numRows]
}

// emitRows intersects the finished rows [yStart, yEnd) with the crop
// window and hands the visible part to the direct or rescaled emitter.
func (d *Decoder) emitRows(rows []uint32, yStart, yEnd int) {
	y0, y1 := yStart, yEnd
	if y0 < d.crop.top {
		y0 = d.crop.top
	}
	if y1 > d.crop.bottom {
		y1 = d.crop.bottom
	}
	if y0 >= y1 {
		return
	}
	first := rows[(y0-yStart)*d.ioWidth:]
	if d.useScaling {
		d.emitRescaledRows(first, y1-y0)
	} else {
		d.emitDirectRows(first, y1-y0)
	}
}

func (d *Decoder) emitDirectRows(rows []uint32, numRows int) {
	out := d.out
	bpp := out.Colorspace.BytesPerPixel()
	for i := 0; i < numRows; i++ {
		src := rows[i*d.ioWidth+d.crop.left : i*d.ioWidth+d.crop.right]
		dst := out.Pix[d.lastOutRow*out.Stride:]
		convertBGRARow(src, dst[:len(src)*bpp], out.Colorspace)
		d.lastOutRow++
	}
}

func (d *Decoder) emitRescaledRows(rows []uint32, numRows int) {
	out := d.out
	bpp := out.Colorspace.BytesPerPixel()
	for i := 0; i < numRows; i++ {
		src := rows[i*d.ioWidth+d.crop.left : i*d.ioWidth+d.crop.right]
		d.scaler.importRow(src)
		for d.scaler.hasPendingOutput() {
			scaled := d.scaler.exportRow()
			dst := out.Pix[d.lastOutRow*out.Stride:]
			convertBGRARow(scaled, dst[:len(scaled)*bpp], out.Colorspace)
			d.lastOutRow++
		}
	}
}
