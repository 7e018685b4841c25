package vp8l

import (
	"fmt"
)

const (
	numLiteralCodes  = 256
	numLengthCodes   = 24
	numDistanceCodes = 40
	lenCodeLimit     = numLiteralCodes + numLengthCodes

	numCodeLengthCodes = 19
	defaultCodeLength  = 8
	codeLengthLiterals = 16
	codeLengthRepeat   = 16

	codeToPlaneCodes = 120
)

// Five Huffman codes make up one group: green combined with length prefixes
// and cache indexes, then red, blue, alpha, and the distance prefixes.
const (
	huffGreen = iota
	huffRed
	huffBlue
	huffAlpha
	huffDist
	huffCodesPerGroup
)

var alphabetSizes = [huffCodesPerGroup]int{
	numLiteralCodes + numLengthCodes,
	numLiteralCodes, numLiteralCodes, numLiteralCodes,
	numDistanceCodes,
}

// codeLengthCodeOrder is the fixed traversal order of the 19-symbol
// code-length alphabet.
var codeLengthCodeOrder = [numCodeLengthCodes]uint8{
	17, 18, 0, 1, 2, 3, 4, 5, 16, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var (
	codeLengthExtraBits     = [3]int{2, 3, 7}
	codeLengthRepeatOffsets = [3]int{3, 3, 11}
)

// codeToPlane maps small distance codes to (dy, dx) spatial offsets packed
// as nibbles, ordered by likelihood in natural images.
var codeToPlane = [codeToPlaneCodes]uint8{
	0x18, 0x07, 0x17, 0x19, 0x28, 0x06, 0x27, 0x29, 0x16, 0x1a,
	0x26, 0x2a, 0x38, 0x05, 0x37, 0x39, 0x15, 0x1b, 0x36, 0x3a,
	0x25, 0x2b, 0x48, 0x04, 0x47, 0x49, 0x14, 0x1c, 0x35, 0x3b,
	0x46, 0x4a, 0x24, 0x2c, 0x58, 0x45, 0x4b, 0x34, 0x3c, 0x03,
	0x57, 0x59, 0x13, 0x1d, 0x56, 0x5a, 0x23, 0x2d, 0x44, 0x4c,
	0x55, 0x5b, 0x33, 0x3d, 0x68, 0x02, 0x67, 0x69, 0x12, 0x1e,
	0x66, 0x6a, 0x22, 0x2e, 0x54, 0x5c, 0x43, 0x4d, 0x65, 0x6b,
	0x32, 0x3e, 0x78, 0x01, 0x77, 0x79, 0x53, 0x5d, 0x11, 0x1f,
	0x64, 0x6c, 0x42, 0x4e, 0x76, 0x7a, 0x21, 0x2f, 0x75, 0x7b,
	0x31, 0x3f, 0x63, 0x6d, 0x52, 0x5e, 0x00, 0x74, 0x7c, 0x41,
	0x4f, 0x10, 0x20, 0x62, 0x6e, 0x30, 0x73, 0x7d, 0x51, 0x5f,
	0x40, 0x72, 0x7e, 0x61, 0x6f, 0x50, 0x71, 0x7f, 0x60, 0x70,
}

// htreeGroup bundles the five codes used to decode one pixel or one
// backward-reference event.
type htreeGroup struct {
	htrees [huffCodesPerGroup]huffTree
}

// metadata is the per-stream decode state: Huffman groups, the optional
// meta-Huffman index, and the optional color cache. It is created per
// image-stream invocation and released once that stream's pixel section is
// consumed.
type metadata struct {
	colorCache     *colorCache
	colorCacheSize int

	huffmanImage         []uint32
	huffmanSubsampleBits int
	huffmanXsize         int
	huffmanMask          int

	htreeGroups []htreeGroup
}

// htreeGroupFor selects the active group for a pixel position via the
// meta-Huffman index, or the sole group when there is none.
func (h *metadata) htreeGroupFor(x, y int) *htreeGroup {
	if h.huffmanImage == nil {
		return &h.htreeGroups[0]
	}
	b := uint(h.huffmanSubsampleBits)
	idx := h.huffmanImage[(y>>b)*h.huffmanXsize+(x>>b)]
	return &h.htreeGroups[idx]
}

func subSampleSize(size, samplingBits int) int {
	return (size + (1 << uint(samplingBits)) - 1) >> uint(samplingBits)
}

func getCopyDistance(distanceSymbol int, br *bitReader) int {
	if distanceSymbol < 4 {
		return distanceSymbol + 1
	}
	extraBits := (distanceSymbol - 2) >> 1
	offset := (2 + (distanceSymbol & 1)) << uint(extraBits)
	return offset + int(br.readBits(extraBits)) + 1
}

// Length and distance prefixes are encoded the same way.
func getCopyLength(lengthSymbol int, br *bitReader) int {
	return getCopyDistance(lengthSymbol, br)
}

func planeCodeToDistance(xsize, planeCode int) int {
	if planeCode > codeToPlaneCodes {
		return planeCode - codeToPlaneCodes
	}
	distCode := int(codeToPlane[planeCode-1])
	yoffset := distCode >> 4
	xoffset := 8 - (distCode & 0xf)
	dist := yoffset*xsize + xoffset
	if dist < 1 {
		dist = 1
	}
	return dist
}

// readHuffmanCodeLengths decodes the run-length-coded length array for a
// full canonical code, using the small code-length code built from
// codeLengthCodeLengths.
func (d *Decoder) readHuffmanCodeLengths(codeLengthCodeLengths []int, numSymbols int) ([]int, error) {
	br := d.br
	var tree huffTree
	if !tree.buildImplicit(codeLengthCodeLengths) {
		return nil, fmt.Errorf("code length code: %w", ErrBitstream)
	}

	maxSymbol := numSymbols
	if br.readBits(1) != 0 { // explicit symbol-count limit
		lengthNBits := 2 + 2*int(br.readBits(3))
		maxSymbol = 2 + int(br.readBits(lengthNBits))
		if maxSymbol > numSymbols {
			return nil, fmt.Errorf("code length limit %d > %d: %w",
				maxSymbol, numSymbols, ErrBitstream)
		}
	}

	codeLengths := make([]int, numSymbols)
	prevCodeLen := defaultCodeLength
	symbol := 0
	for symbol < numSymbols {
		if maxSymbol == 0 {
			break // remaining symbols stay absent
		}
		maxSymbol--
		br.fillWindow()
		codeLen := tree.readSymbol(br)
		if codeLen < codeLengthLiterals {
			codeLengths[symbol] = codeLen
			symbol++
			if codeLen != 0 {
				prevCodeLen = codeLen
			}
			continue
		}
		usePrev := codeLen == codeLengthRepeat
		slot := codeLen - codeLengthLiterals
		repeat := int(br.readBits(codeLengthExtraBits[slot])) + codeLengthRepeatOffsets[slot]
		if symbol+repeat > numSymbols {
			return nil, fmt.Errorf("code length repeat overflow: %w", ErrBitstream)
		}
		length := 0
		if usePrev {
			length = prevCodeLen
		}
		for ; repeat > 0; repeat-- {
			codeLengths[symbol] = length
			symbol++
		}
	}
	return codeLengths, nil
}

// readHuffmanCode reads one code in either the simple 1-2 symbol explicit
// form or the full canonical form.
func (d *Decoder) readHuffmanCode(alphabetSize int) (huffTree, error) {
	br := d.br
	var tree huffTree

	if br.readBits(1) != 0 { // simple: symbols, codes & lengths inline
		nbits := int(br.readBits(3))
		if nbits == 0 { // single symbol 0, zero-length code
			if !tree.buildExplicit([]int{0}, []int{0}, []int{0}) {
				return tree, fmt.Errorf("simple code: %w", ErrBitstream)
			}
			return tree, nil
		}
		numSymbols := 1 + int(br.readBits(1))
		numBits := (nbits-1)*2 + 4
		symbols := make([]int, numSymbols)
		codes := make([]int, numSymbols)
		codeLengths := make([]int, numSymbols)
		for i := 0; i < numSymbols; i++ {
			symbols[i] = int(br.readBits(numBits))
			if symbols[i] >= alphabetSize {
				return tree, fmt.Errorf("simple code symbol %d out of alphabet: %w",
					symbols[i], ErrBitstream)
			}
			codes[i] = i
			codeLengths[i] = numSymbols - 1
		}
		if !tree.buildExplicit(codeLengths, codes, symbols) {
			return tree, fmt.Errorf("simple code: %w", ErrBitstream)
		}
		return tree, nil
	}

	// Full form: the main alphabet's lengths are themselves entropy coded.
	numCodes := int(br.readBits(4)) + 4
	if numCodes > numCodeLengthCodes {
		return tree, fmt.Errorf("code length code count %d: %w", numCodes, ErrBitstream)
	}
	codeLengthCodeLengths := make([]int, numCodeLengthCodes)
	for i := 0; i < numCodes; i++ {
		codeLengthCodeLengths[codeLengthCodeOrder[i]] = int(br.readBits(3))
	}
	codeLengths, err := d.readHuffmanCodeLengths(codeLengthCodeLengths, alphabetSize)
	if err != nil {
		return tree, err
	}
	if br.err {
		return tree, fmt.Errorf("code lengths: %w", ErrBitstream)
	}
	if !tree.buildImplicit(codeLengths) {
		return tree, fmt.Errorf("invalid prefix code: %w", ErrBitstream)
	}
	return tree, nil
}

// readHuffmanCodes parses the whole Huffman-code section of one stream:
// the optional meta-Huffman index (a recursively decoded sub-image), the
// color cache field, and N groups of five codes. On success the decoder's
// per-stream metadata holds the result.
func (d *Decoder) readHuffmanCodes(xsize, ysize int, allowMeta bool) (useCache bool, cacheBits int, err error) {
	br := d.br

	var huffmanImage []uint32
	subsampleBits := 0
	numHtreeGroups := 1

	if br.readBits(1) != 0 { // use meta Huffman codes
		if !allowMeta {
			// A meta index sub-image may not carry a meta index of its
			// own; without this bound nesting depth is limited only by
			// input length.
			return false, 0, fmt.Errorf("meta index inside a meta index: %w", ErrBitstream)
		}
		subsampleBits = int(br.readBits(4))
		huffmanXsize := subSampleSize(xsize, subsampleBits)
		huffmanYsize := subSampleSize(ysize, subsampleBits)
		huffmanImage, err = d.decodeImageStream(huffmanXsize, huffmanYsize, false, false)
		if err != nil {
			return false, 0, err
		}
		// The group index is carried in the red and green bytes.
		maxIndex := uint32(0)
		for i, pix := range huffmanImage {
			idx := (pix >> 8) & 0xffff
			huffmanImage[i] = idx
			if idx > maxIndex {
				maxIndex = idx
			}
		}
		metaCodesNBits := int(br.readBits(4))
		numHtreeGroups = 2 + int(br.readBits(metaCodesNBits))
		if int(maxIndex) >= numHtreeGroups {
			return false, 0, fmt.Errorf("meta index %d >= %d groups: %w",
				maxIndex, numHtreeGroups, ErrBitstream)
		}
	}

	if br.readBits(1) != 0 { // use color cache
		useCache = true
		cacheBits = int(br.readBits(4))
		if cacheBits > maxCacheBits {
			return false, 0, fmt.Errorf("color cache bits %d: %w", cacheBits, ErrBitstream)
		}
	}
	if br.err {
		return false, 0, fmt.Errorf("huffman section: %w", ErrBitstream)
	}

	colorCacheSize := 0
	if useCache {
		colorCacheSize = 1 << uint(cacheBits)
	}

	groups := make([]htreeGroup, numHtreeGroups)
	for i := range groups {
		for j := 0; j < huffCodesPerGroup; j++ {
			alphabetSize := alphabetSizes[j]
			if j == huffGreen {
				alphabetSize += colorCacheSize
			}
			tree, err := d.readHuffmanCode(alphabetSize)
			if err != nil {
				return false, 0, err
			}
			if br.err {
				return false, 0, fmt.Errorf("huffman group %d: %w", i, ErrBitstream)
			}
			groups[i].htrees[j] = tree
		}
	}

	d.hdr.huffmanImage = huffmanImage
	d.hdr.huffmanSubsampleBits = subsampleBits
	d.hdr.htreeGroups = groups
	return useCache, cacheBits, nil
}

// updateDecoder points the decoder at the current stream's dimensions and
// derives the meta-Huffman tile geometry.
func (d *Decoder) updateDecoder(width, height int) {
	d.width = width
	d.height = height
	bits := d.hdr.huffmanSubsampleBits
	d.hdr.huffmanXsize = subSampleSize(width, bits)
	if bits == 0 {
		d.hdr.huffmanMask = -1 // only position (0,0) reselects
	} else {
		d.hdr.huffmanMask = (1 << uint(bits)) - 1
	}
}

// streamErr downgrades a structural error to ErrSuspended when the header
// parse failed purely because the declared input ran out.
func (d *Decoder) streamErr(err error) error {
	if statusOf(err) == StatusBitstreamError && d.br.eos {
		return fmt.Errorf("%v: %w", err, ErrSuspended)
	}
	return err
}

// decodeImageStream parses one image stream, top-level or nested. For the
// top level it stops after the header sections (the pixel section belongs
// to DecodeImage); for nested streams it decodes and returns the pixel
// buffer, releasing the stream's metadata behind itself. allowMeta is
// cleared when recursing into a meta index sub-image so that meta nesting
// stays single-level.
func (d *Decoder) decodeImageStream(xsize, ysize int, isLevel0, allowMeta bool) ([]uint32, error) {
	br := d.br
	transformXsize, transformYsize := xsize, ysize

	// Step 1: transform list (top level only, may recurse).
	if isLevel0 {
		for br.readBits(1) != 0 {
			var err error
			transformXsize, transformYsize, err = d.readTransform(transformXsize, transformYsize)
			if err != nil {
				return nil, d.streamErr(err)
			}
		}
	}

	// Step 2: Huffman codes (may recurse one level for the meta index).
	useCache, cacheBits, err := d.readHuffmanCodes(transformXsize, transformYsize, allowMeta)
	if err != nil {
		d.hdr = metadata{}
		return nil, d.streamErr(err)
	}
	if useCache {
		d.hdr.colorCacheSize = 1 << uint(cacheBits)
		d.hdr.colorCache = newColorCache(cacheBits)
	}
	d.updateDecoder(transformXsize, transformYsize)

	if isLevel0 { // header complete; pixel section deferred
		d.state = stateReadHeader
		return nil, nil
	}

	data := make([]uint32, transformXsize*transformYsize)

	// Step 3: decode the LZ77/color-cache coded pixel section. Nested
	// streams carry no transform list of their own, so nothing needs
	// inverting here.
	if err := d.decodeImageData(data, transformXsize, transformYsize, false); err != nil {
		d.hdr = metadata{}
		return nil, err
	}
	d.hdr = metadata{} // per-stream metadata is dead weight from here on
	return data, nil
}

// decodeImageData is the pixel decode loop: literals, backward references,
// and color-cache hits, with per-tile Huffman group reselection and
// row-block post-processing.
func (d *Decoder) decodeImageData(data []uint32, width, height int, processRows bool) error {
	br := d.br
	hdr := &d.hdr
	cache := hdr.colorCache
	colorCacheLimit := lenCodeLimit + hdr.colorCacheSize
	mask := hdr.huffmanMask

	if len(hdr.htreeGroups) == 0 {
		return fmt.Errorf("no huffman groups: %w", ErrBitstream)
	}
	htg := hdr.htreeGroupFor(0, 0)

	src := 0
	lastCached := 0
	srcEnd := width * height
	col, row := 0, 0

	for !br.eos && src < srcEnd {
		// Only reselect when crossing into a new tile column.
		if col&mask == 0 {
			htg = hdr.htreeGroupFor(col, row)
		}
		br.fillWindow()
		code := htg.htrees[huffGreen].readSymbol(br)

		switch {
		case code < numLiteralCodes: // literal
			red := htg.htrees[huffRed].readSymbol(br)
			green := code
			br.fillWindow()
			blue := htg.htrees[huffBlue].readSymbol(br)
			alpha := htg.htrees[huffAlpha].readSymbol(br)
			data[src] = uint32(alpha)<<24 | uint32(red)<<16 |
				uint32(green)<<8 | uint32(blue)
			src++
			col++
			if col >= width {
				col = 0
				row++
				if processRows && row%numRowBlockRows == 0 {
					d.processRows(row)
				}
				if cache != nil {
					for ; lastCached < src; lastCached++ {
						cache.insert(data[lastCached])
					}
				}
			}

		case code < lenCodeLimit: // backward reference
			lengthSym := code - numLiteralCodes
			length := getCopyLength(lengthSym, br)
			distSymbol := htg.htrees[huffDist].readSymbol(br)
			br.fillWindow()
			distCode := getCopyDistance(distSymbol, br)
			dist := planeCodeToDistance(width, distCode)
			if src-dist < 0 || src+length > srcEnd {
				return fmt.Errorf("backward reference out of bounds: %w", ErrBitstream)
			}
			// Overlapping copies are sequential on purpose.
			for i := 0; i < length; i++ {
				data[src+i] = data[src+i-dist]
			}
			src += length
			col += length
			for col >= width {
				col -= width
				row++
				if processRows && row%numRowBlockRows == 0 {
					d.processRows(row)
				}
			}
			if src < srcEnd {
				htg = hdr.htreeGroupFor(col, row)
				if cache != nil {
					for ; lastCached < src; lastCached++ {
						cache.insert(data[lastCached])
					}
				}
			}

		case code < colorCacheLimit: // color cache hit
			if cache == nil {
				return fmt.Errorf("cache symbol without cache: %w", ErrBitstream)
			}
			// Pending insertions must land before any lookup.
			for ; lastCached < src; lastCached++ {
				cache.insert(data[lastCached])
			}
			data[src] = cache.lookup(code - lenCodeLimit)
			src++
			col++
			if col >= width {
				col = 0
				row++
				if processRows && row%numRowBlockRows == 0 {
					d.processRows(row)
				}
				for ; lastCached < src; lastCached++ {
					cache.insert(data[lastCached])
				}
			}

		default:
			return fmt.Errorf("symbol %d out of range: %w", code, ErrBitstream)
		}

		if br.err {
			if br.eos {
				break
			}
			return fmt.Errorf("bit reader: %w", ErrBitstream)
		}
	}

	if src < srcEnd {
		return fmt.Errorf("pixel data ended at %d of %d: %w", src, srcEnd, ErrSuspended)
	}
	if processRows {
		d.processRows(row)
	}
	return nil
}
