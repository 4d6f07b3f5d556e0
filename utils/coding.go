package utils

import (
	"encoding/binary"
)

// EncodeVarint32 writes v to buf using the varint encoding and returns the
// number of bytes written. buf must have room for binary.MaxVarintLen32 bytes.
func EncodeVarint32(buf []byte, v uint32) int {
	return binary.PutUvarint(buf, uint64(v))
}

// AppendVarint32 appends the varint encoding of v to buf.
func AppendVarint32(buf []byte, v uint32) []byte {
	var scratch [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(scratch[:], uint64(v))
	return append(buf, scratch[:n]...)
}

// DecodeVarint32 reads a varint32 from buf. It returns the value and the
// number of bytes consumed. n == 0 means buf held no complete varint or the
// decoded value did not fit in 32 bits.
func DecodeVarint32(buf []byte) (v uint32, n int) {
	u, n := binary.Uvarint(buf)
	if n <= 0 || u > (1<<32)-1 {
		return 0, 0
	}
	return uint32(u), n
}

// VarintLength return the length that needed
// the highest bit is used to mark the end
func VarintLength(v uint64) int {
	len := 1
	for v >= 128 {
		v >>= 7
		len++
	}
	return len
}

func U32ToBytes(v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return buf[:]
}

func BytesToU32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

func U64ToBytes(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

func BytesToU64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// U32SliceToBytes encodes each element little-endian, back to back.
func U32SliceToBytes(u32s []uint32) []byte {
	buf := make([]byte, 0, 4*len(u32s))
	for _, v := range u32s {
		buf = append(buf, U32ToBytes(v)...)
	}
	return buf
}

// BytesToU32Slice decodes len(buf)/4 little-endian u32s.
func BytesToU32Slice(buf []byte) []uint32 {
	u32s := make([]uint32, 0, len(buf)/4)
	for off := 0; off+4 <= len(buf); off += 4 {
		u32s = append(u32s, BytesToU32(buf[off:]))
	}
	return u32s
}
