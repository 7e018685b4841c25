package vp8l

// colorCacheHashMul spreads ARGB words over the cache slots.
const colorCacheHashMul = 0x1e35a7bd

// maxCacheBits caps the color cache size exponent.
const maxCacheBits = 11

// colorCache is a small hash table of recently emitted pixels. Insertions
// must follow strict decode order, including pixels produced by backward
// reference expansion, or later indexed lookups return the wrong color.
type colorCache struct {
	colors []uint32
	shift  uint // 32 - bits
}

func newColorCache(bits int) *colorCache {
	return &colorCache{
		colors: make([]uint32, 1<<uint(bits)),
		shift:  uint(32 - bits),
	}
}

// insert stores argb in its hash slot, overwriting unconditionally.
func (c *colorCache) insert(argb uint32) {
	c.colors[(argb*colorCacheHashMul)>>c.shift] = argb
}

// lookup returns the pixel in the given slot. The key comes straight from
// the decoded symbol, not from re-hashing.
func (c *colorCache) lookup(key int) uint32 {
	return c.colors[key]
}
