package normalize

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// embedDpi inserts a pHYs chunk recording dpi (converted to pixels per
// meter) into an already-encoded PNG byte stream, immediately after IHDR.
// No library in the dependency set exposes PNG metadata writing, so this
// chunk-level splice is done directly against the format's documented
// structure.
func embedDpi(pngBytes []byte, dpi float64) []byte {
	const sigLen = 8
	if len(pngBytes) < sigLen+8 {
		return pngBytes
	}
	ihdrLenBytes := pngBytes[sigLen : sigLen+4]
	ihdrLen := binary.BigEndian.Uint32(ihdrLenBytes)
	ihdrEnd := sigLen + 8 + int(ihdrLen) + 4 // length+type+data+crc

	if ihdrEnd > len(pngBytes) {
		return pngBytes
	}

	pxPerMeter := uint32(dpi / 0.0254)
	data := make([]byte, 9)
	binary.BigEndian.PutUint32(data[0:4], pxPerMeter)
	binary.BigEndian.PutUint32(data[4:8], pxPerMeter)
	data[8] = 1 // unit specifier: meters

	chunk := buildChunk("pHYs", data)

	out := make([]byte, 0, len(pngBytes)+len(chunk))
	out = append(out, pngBytes[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, pngBytes[ihdrEnd:]...)
	return out
}

func buildChunk(chunkType string, data []byte) []byte {
	var buf bytes.Buffer
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(data)))
	buf.Write(lenBytes[:])

	typeAndData := append([]byte(chunkType), data...)
	buf.Write(typeAndData)

	crc := crc32.ChecksumIEEE(typeAndData)
	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)
	buf.Write(crcBytes[:])

	return buf.Bytes()
}
