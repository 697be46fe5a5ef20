package fleece

import "github.com/gofleece/fleece/internal/common"

// A pointer is a width-sized (2 or 4 byte) big-endian field whose top bit
// is always set; every plain tag header's top bit is always clear (tags
// only span 0-7), so the two are unambiguous at any child slot without
// extra context.
//
// putPointer writes a pointer at dst (len(dst) >= width) whose target,
// resolved from fromPos (the position of dst's first byte), is childPos.
// childPos must be strictly less than fromPos.
func putPointer(dst []byte, width int, fromPos, childPos int) bool {
	delta := uint32(fromPos - childPos)
	if !common.FitsPointer(delta, width) {
		return false
	}
	common.PutPointer(dst, width, delta)
	return true
}

// resolvePointer returns the absolute position the width-sized pointer
// field at buf[pos:] resolves to, given pos is that field's own position.
func resolvePointer(buf []byte, pos, width int) (target int, ok bool) {
	delta, isPtr := common.ReadPointer(buf[pos:pos+width], width)
	if !isPtr {
		return 0, false
	}
	return pos - int(delta), true
}

// isPointer reports whether the byte at buf[pos] begins a back-pointer
// rather than an inline tag header.
func isPointer(buf []byte, pos int) bool {
	return buf[pos]&0x80 != 0
}
