package fleece

// sizeofUvarint returns the number of bytes WriteVarUint would emit for
// x, without allocating — used by the encoder's header-sizing pass, which
// needs to know how many prefix bytes a composite's overflow count will
// take before it can compute where the child slots start.
func sizeofUvarint(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
