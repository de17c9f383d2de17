package neighbour

// DilatedInteger spreads an integer's bits two apart so three dilated
// coordinates can be OR'd together into a single Morton code, matching the
// bit-interleaving original_source uses for its Morton-ordered cell list
// (src/schedulers/sorters/*/DilatedInteger equivalents). Keeping cells in
// Morton order instead of row-major improves cache locality for the 27-cell
// neighbour stencil walk, at the cost of needing dilate/undilate on every
// coordinate lookup - a pure performance tradeoff against PlainGrid, never a
// behavioural one.
type DilatedInteger uint64

// dilate3 spreads x's low 21 bits so consecutive set bits are 2 apart,
// leaving room to OR in two more interleaved axes without collision.
func dilate3(x uint32) uint64 {
	v := uint64(x) & 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// undilate3 is dilate3's inverse: given a dilated coordinate (bits 2 apart),
// recover the original low 21 bits.
func undilate3(v uint64) uint32 {
	v &= 0x1249249249249249
	v = (v | v>>2) & 0x10c30c30c30c30c3
	v = (v | v>>4) & 0x100f00f00f00f00f
	v = (v | v>>8) & 0x1f0000ff0000ff
	v = (v | v>>16) & 0x1f00000000ffff
	v = (v | v>>32) & 0x1fffff
	return uint32(v)
}

// mortonEncode packs three cell coordinates into a single Morton code.
func mortonEncode(x, y, z int) DilatedInteger {
	return DilatedInteger(dilate3(uint32(x)) | dilate3(uint32(y))<<1 | dilate3(uint32(z))<<2)
}

// mortonDecode is mortonEncode's inverse.
func mortonDecode(m DilatedInteger) (x, y, z int) {
	v := uint64(m)
	x = int(undilate3(v))
	y = int(undilate3(v >> 1))
	z = int(undilate3(v >> 2))
	return
}
