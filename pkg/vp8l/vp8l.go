// Package vp8l implements a decoder for a lossless raster-image bitstream
// built on canonical Huffman entropy coding, LZ77-style backward references,
// a small recent-colors cache, and a stack of reversible pixel transforms
// (predictor, cross-color, subtract-green, color-indexing).
//
// The package decodes the raw lossless stream only; container framing that
// carries the stream bytes is a collaborator, not part of this package.
// Decoded pixels are 32-bit BGRA words internally and are emitted row by
// row through an optional crop window, an optional rescaler, and a
// colorspace conversion into a caller-owned buffer.
package vp8l

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

const (
	// magicByte opens every lossless stream; the reserved value is
	// accepted as an alias.
	magicByte         = 0x64
	magicByteReserved = 0x65

	// imageSizeBits is the width of the width-1/height-1 header fields.
	imageSizeBits = 14

	// headerBytes is the minimum stream size that can carry dimensions.
	headerBytes = 5

	// numRowBlockRows is the row-block granularity of the output pipeline.
	numRowBlockRows = 16
)

// Common errors, one per terminal status.
var (
	ErrOutOfMemory  = errors.New("vp8l: allocation limit exceeded")
	ErrInvalidParam = errors.New("vp8l: invalid parameter")
	ErrBitstream    = errors.New("vp8l: bitstream error")
	// ErrSuspended means the declared input ran out before the stream's
	// logical end. Distinct from ErrBitstream so a streaming caller can
	// supply more bytes and retry instead of treating the data as corrupt.
	ErrSuspended = errors.New("vp8l: truncated input")
)

// Status is the terminal status of a decode entry point.
type Status int

const (
	StatusOk Status = iota
	StatusOutOfMemory
	StatusInvalidParam
	StatusBitstreamError
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusOutOfMemory:
		return "out of memory"
	case StatusInvalidParam:
		return "invalid param"
	case StatusBitstreamError:
		return "bitstream error"
	case StatusSuspended:
		return "suspended"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// statusOf maps an error chain onto the status taxonomy.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOk
	case errors.Is(err, ErrSuspended):
		return StatusSuspended
	case errors.Is(err, ErrInvalidParam):
		return StatusInvalidParam
	case errors.Is(err, ErrOutOfMemory):
		return StatusOutOfMemory
	default:
		return StatusBitstreamError
	}
}

// Colorspace selects the byte layout of emitted rows.
type Colorspace int

const (
	ColorspaceRGBA Colorspace = iota
	ColorspaceARGB
	ColorspaceBGRA
	ColorspaceRGB
	ColorspaceBGR
)

// BytesPerPixel returns the output pixel width in bytes.
func (c Colorspace) BytesPerPixel() int {
	switch c {
	case ColorspaceRGB, ColorspaceBGR:
		return 3
	case ColorspaceRGBA, ColorspaceARGB, ColorspaceBGRA:
		return 4
	}
	return 0
}

func (c Colorspace) valid() bool { return c.BytesPerPixel() != 0 }

// Output describes the caller-owned destination for decoded rows.
// Indexed and packed 16-bit layouts are not representable here; requests
// outside the Colorspace enum are rejected before decode begins.
type Output struct {
	Colorspace Colorspace
	Pix        []byte // destination, at least Stride*output-height bytes
	Stride     int    // row stride in bytes; 0 means tightly packed

	// Crop, when non-nil, restricts output to the intersection of decoded
	// rows with this rectangle in source coordinates.
	Crop *image.Rectangle

	// ScaleWidth/ScaleHeight, when non-zero, rescale the (cropped) image
	// to the given dimensions.
	ScaleWidth  int
	ScaleHeight int
}

type cropWindow struct {
	left, top, right, bottom int
}

func (w cropWindow) width() int  { return w.right - w.left }
func (w cropWindow) height() int { return w.bottom - w.top }

type decodeState int

const (
	stateReadDim decodeState = iota
	stateReadHeader
	stateReadData
	stateDone
	stateError
	stateSuspended
)

// Decoder is the top-level state machine. It is single-threaded and owned
// by one call sequence at a time: DecodeHeader, then DecodeImage, then the
// decoder can be reused for another stream. Both entry points release all
// intermediate buffers on every exit path, including failures.
type Decoder struct {
	br *bitReader

	width  int // current pixel-buffer width (packed when color-indexed)
	height int

	ioWidth  int // dimensions declared in the header
	ioHeight int

	argb        []uint32 // decoded pixel buffer
	argbScratch []uint32 // saved top row + one transformed row block

	transforms []transform

	hdr metadata

	out        *Output
	crop       cropWindow
	useScaling bool
	scaler     *rescaler

	lastRow    int // rows decoded and handed to the pipeline
	lastOutRow int // rows emitted to the caller

	state  decodeState
	status Status
}

// NewDecoder returns an idle decoder.
func NewDecoder() *Decoder {
	return &Decoder{state: stateReadDim}
}

// Status reports the terminal status of the last entry point call.
func (d *Decoder) Status() Status { return d.status }

// Clear releases every buffer owned by the decoder and returns it to the
// idle state. Safe to call at any point, including after failures.
func (d *Decoder) Clear() {
	d.br = nil
	d.argb = nil
	d.argbScratch = nil
	d.transforms = nil
	d.hdr = metadata{}
	d.out = nil
	d.scaler = nil
	d.useScaling = false
	d.lastRow = 0
	d.lastOutRow = 0
	d.width = 0
	d.height = 0
	d.ioWidth = 0
	d.ioHeight = 0
	d.state = stateReadDim
}

// fail records a terminal failure, releases all intermediate state, and
// returns the error for propagation.
func (d *Decoder) fail(err error) error {
	d.status = statusOf(err)
	d.Clear()
	if d.status == StatusSuspended {
		d.state = stateSuspended
	} else {
		d.state = stateError
	}
	return err
}

// readImageSize parses the signature byte and the 14-bit dimension fields.
func readImageSize(br *bitReader) (width, height int, ok bool) {
	signature := br.readBits(8)
	if signature != magicByte && signature != magicByteReserved {
		return 0, 0, false
	}
	width = int(br.readBits(imageSizeBits)) + 1
	height = int(br.readBits(imageSizeBits)) + 1
	return width, height, !br.err
}

// GetInfo peeks at the stream header and reports the image dimensions
// without decoding anything else.
func GetInfo(data []byte) (width, height int, ok bool) {
	if len(data) < headerBytes {
		return 0, 0, false
	}
	return readImageSize(newBitReader(data))
}

// DecodeHeader parses the dimensions, the top-level transform list, and the
// Huffman-code section, leaving the decoder ready for DecodeImage. It
// returns the declared image dimensions.
func (d *Decoder) DecodeHeader(data []byte) (width, height int, err error) {
	d.Clear()
	d.status = StatusOk
	if data == nil {
		return 0, 0, d.fail(fmt.Errorf("nil input: %w", ErrInvalidParam))
	}

	d.br = newBitReader(data)
	w, h, ok := readImageSize(d.br)
	if !ok {
		return 0, 0, d.fail(fmt.Errorf("image header: %w", ErrBitstream))
	}
	d.ioWidth, d.ioHeight = w, h

	if _, err := d.decodeImageStream(w, h, true, true); err != nil {
		return 0, 0, d.fail(err)
	}
	return w, h, nil
}

// DecodeImage decodes the pixel section, feeding finished row blocks
// through transform inversion, cropping, optional rescaling, and colorspace
// conversion into out. Rows emitted before a mid-stream failure remain
// valid; the caller decides whether a partial image is usable.
func (d *Decoder) DecodeImage(out *Output) error {
	if d.state != stateReadHeader {
		return d.fail(fmt.Errorf("header not decoded: %w", ErrInvalidParam))
	}
	if err := d.initOutput(out); err != nil {
		return d.fail(err)
	}

	numPixels := d.width * d.height
	scratchPixels := d.ioWidth * (1 + numRowBlockRows)
	d.argb = make([]uint32, numPixels)
	d.argbScratch = make([]uint32, scratchPixels)

	if d.useScaling {
		d.scaler = newRescaler(d.crop.width(), d.crop.height(),
			out.ScaleWidth, out.ScaleHeight)
	}

	d.state = stateReadData
	if err := d.decodeImageData(d.argb, d.width, d.height, true); err != nil {
		return d.fail(err)
	}

	d.status = StatusOk
	d.Clear()
	d.state = stateDone
	return nil
}

// initOutput validates the caller's descriptor and sets up the crop window
// and scaling mode.
func (d *Decoder) initOutput(out *Output) error {
	if out == nil || out.Pix == nil {
		return fmt.Errorf("nil output: %w", ErrInvalidParam)
	}
	if !out.Colorspace.valid() {
		return fmt.Errorf("unsupported colorspace: %w", ErrInvalidParam)
	}

	crop := cropWindow{0, 0, d.ioWidth, d.ioHeight}
	if out.Crop != nil {
		r := *out.Crop
		if r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y ||
			r.Min.X < 0 || r.Min.Y < 0 ||
			r.Max.X > d.ioWidth || r.Max.Y > d.ioHeight {
			return fmt.Errorf("crop rectangle %v: %w", r, ErrInvalidParam)
		}
		crop = cropWindow{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
	}
	d.crop = crop

	outWidth, outHeight := crop.width(), crop.height()
	d.useScaling = false
	if out.ScaleWidth != 0 || out.ScaleHeight != 0 {
		if out.ScaleWidth <= 0 || out.ScaleHeight <= 0 {
			return fmt.Errorf("scale %dx%d: %w",
				out.ScaleWidth, out.ScaleHeight, ErrInvalidParam)
		}
		if out.ScaleWidth != outWidth || out.ScaleHeight != outHeight {
			d.useScaling = true
			outWidth, outHeight = out.ScaleWidth, out.ScaleHeight
		}
	}

	bpp := out.Colorspace.BytesPerPixel()
	if out.Stride == 0 {
		out.Stride = outWidth * bpp
	}
	if out.Stride < outWidth*bpp || len(out.Pix) < out.Stride*outHeight {
		return fmt.Errorf("output buffer too small: %w", ErrInvalidParam)
	}

	d.out = out
	return nil
}

// Decode reads a complete lossless stream and returns the image. It is the
// convenience entry point mirroring the other codec packages.
func Decode(data []byte) (image.Image, error) {
	d := NewDecoder()
	w, h, err := d.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	out := &Output{
		Colorspace: ColorspaceRGBA,
		Pix:        img.Pix,
		Stride:     img.Stride,
	}
	if err := d.DecodeImage(out); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeConfig returns the image dimensions and color model without
// decoding pixel data.
func DecodeConfig(data []byte) (image.Config, error) {
	w, h, ok := GetInfo(data)
	if !ok {
		return image.Config{}, fmt.Errorf("image header: %w", ErrBitstream)
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      w,
		Height:     h,
	}, nil
}
