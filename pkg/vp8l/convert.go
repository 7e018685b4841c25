package vp8l

// convertBGRARow serializes one row of internal pixel words into dst in
// the requested byte order. Each word holds alpha in bits 24-31, red in
// 16-23, green in 8-15 and blue in 0-7.
func convertBGRARow(src []uint32, dst []byte, cs Colorspace) {
	switch cs {
	case ColorspaceRGBA:
		for i, p := range src {
			dst[4*i+0] = byte(p >> 16)
			dst[4*i+1] = byte(p >> 8)
			dst[4*i+2] = byte(p)
			dst[4*i+3] = byte(p >> 24)
		}
	case ColorspaceARGB:
		for i, p := range src {
			dst[4*i+0] = byte(p >> 24)
			dst[4*i+1] = byte(p >> 16)
			dst[4*i+2] = byte(p >> 8)
			dst[4*i+3] = byte(p)
		}
	case ColorspaceBGRA:
		for i, p := range src {
			dst[4*i+0] = byte(p)
			dst[4*i+1] = byte(p >> 8)
			dst[4*i+2] = byte(p >> 16)
			dst[4*i+3] = byte(p >> 24)
		}
	case ColorspaceRGB:
		for i, p := range src {
			dst[3*i+0] = byte(p >> 16)
			dst[3*i+1] = byte(p >> 8)
			dst[3*i+2] = byte(p)
		}
	case ColorspaceBGR:
		for i, p := range src {
			dst[3*i+0] = byte(p)
			dst[3*i+1] = byte(p >> 8)
			dst[3*i+2] = byte(p >> 16)
		}
	}
}
