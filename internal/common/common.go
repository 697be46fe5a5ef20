package common

import "encoding/binary"

// WriteVarUint appends a varint to buf (allocating if needed).
func WriteVarUint(buf []byte, x uint64) []byte {
    for x >= 0x80 {
        buf = append(buf, byte(x)|0x80)
        x >>= 7
    }
    return append(buf, byte(x))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
func ReadVarUint(b []byte) (uint64, int) {
    var x uint64
    var s uint
    for i, c := range b {
        x |= uint64(c&0x7F) << s
        if c&0x80 == 0 {
            return x, i + 1
        }
        s += 7
    }
    return 0, 0
}

// pointerFlag marks a width-sized big-endian field as a relative
// back-pointer rather than an inline value header (top bit of the
// field's first byte).
const pointerFlag = 0x80

// PutPointer writes a width-byte (2 or 4) big-endian back-pointer at
// dst whose target, once resolved by ReadPointer from the same byte
// position, is fromPos-delta. delta must be even and fit in width*8-1
// bits once halved.
func PutPointer(dst []byte, width int, delta uint32) {
    scaled := delta / 2
    switch width {
    case 2:
        binary.BigEndian.PutUint16(dst, uint16(scaled)|pointerFlag<<8)
    case 4:
        binary.BigEndian.PutUint32(dst, scaled|pointerFlag<<24)
    default:
        panic("common: PutPointer: width must be 2 or 4")
    }
}

// FitsPointer reports whether delta (already an even byte distance) can
// be represented as a width-byte scaled pointer.
func FitsPointer(delta uint32, width int) bool {
    if delta%2 != 0 {
        return false
    }
    scaled := delta / 2
    switch width {
    case 2:
        return scaled <= 0x7FFF
    case 4:
        return scaled <= 0x7FFFFFFF
    default:
        return false
    }
}

// ReadPointer reports whether the width bytes at b form a back-pointer
// and, if so, the byte distance to subtract from the pointer field's
// own position to reach the target.
func ReadPointer(b []byte, width int) (delta uint32, ok bool) {
    switch width {
    case 2:
        v := binary.BigEndian.Uint16(b)
        if v&(pointerFlag<<8) == 0 {
            return 0, false
        }
        return uint32(v&^(pointerFlag<<8)) * 2, true
    case 4:
        v := binary.BigEndian.Uint32(b)
        if v&(pointerFlag<<24) == 0 {
            return 0, false
        }
        return (v &^ (pointerFlag << 24)) * 2, true
    default:
        panic("common: ReadPointer: width must be 2 or 4")
    }
}
