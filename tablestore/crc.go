package tablestore

import "encoding/binary"

// wordsToBytes serializes words as little-endian 32-bit words, matching
// the image format's native byte order (spec.md §6).
func wordsToBytes(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// wordsToBytesSlice serializes a []uint32 the same way.
func wordsToBytesSlice(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}
