// Package wireframe wraps an encoded fleece buffer in a length-prefixed,
// CRC32-checked envelope for shipping it over a stream transport — the
// natural carrier for replicating fleece-encoded values between the
// producer and a remote collaborator.
package wireframe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
)

var magic = [2]byte{'F', 'L'}

// FlagCompressed marks the frame's payload as a zstd stream wrapping the
// fleece buffer rather than the raw buffer itself — compression never
// touches the wire format's own bytes, only the transport envelope
// around them.
const FlagCompressed byte = 0x01

var (
	ErrNotAFrame = errors.New("wireframe: not a frame")
	ErrLength    = errors.New("wireframe: length mismatch")
	ErrChecksum  = errors.New("wireframe: crc mismatch")
	ErrTruncated = errors.New("wireframe: truncated frame")
)

// EncodeFrame builds a frame carrying payload, a complete fleece buffer.
// When compress is true the payload is zstd-compressed first as an
// opaque blob and FlagCompressed is set.
func EncodeFrame(payload []byte, compress bool) ([]byte, error) {
	var flags byte
	body := payload
	if compress {
		flags |= FlagCompressed
		w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, err
		}
		body = w.EncodeAll(payload, nil)
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	buf.Write(magic[:])
	binary.Write(buf, binary.LittleEndian, uint32(0)) // length placeholder
	buf.WriteByte(flags)
	buf.Write(body)

	out := buf.Bytes()
	total := uint32(len(out) + 4) // +4 for the trailing CRC
	binary.LittleEndian.PutUint32(out[2:], total)

	crc := crc32.ChecksumIEEE(out[6:])
	out = append(out, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(out[len(out)-4:], crc)
	return out, nil
}

// DecodeFrame validates and unwraps a frame built by EncodeFrame,
// returning the original fleece buffer.
func DecodeFrame(data []byte) ([]byte, error) {
	if len(data) < 11 {
		return nil, ErrTruncated
	}
	if data[0] != magic[0] || data[1] != magic[1] {
		return nil, ErrNotAFrame
	}
	length := binary.LittleEndian.Uint32(data[2:6])
	if int(length) != len(data) {
		return nil, ErrLength
	}
	flags := data[6]
	payloadEnd := len(data) - 4
	body := data[7:payloadEnd]

	want := binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(data[6:payloadEnd]) != want {
		return nil, ErrChecksum
	}

	if flags&FlagCompressed == 0 {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.DecodeAll(body, nil)
}
