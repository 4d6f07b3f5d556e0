package ikey

import (
	"slatekv/utils"
)

// ValueType distinguishes a live value from a tombstone. The values are
// embedded in the on-disk key encoding and must not change.
type ValueType byte

const (
	TypeDeletion ValueType = 0x0
	TypeValue    ValueType = 0x1

	// TypeForSeek is the ValueType to use when constructing a key for
	// seeking to a particular sequence number. Sequence numbers sort in
	// decreasing order and the type occupies the low 8 bits of the tag,
	// so the seek type is the highest-numbered one.
	TypeForSeek = TypeValue
)

// SequenceNumber is the per-database monotonic write counter. The low
// eight bits of the tag word are left for the ValueType, so sequence
// numbers are limited to 56 bits.
type SequenceNumber uint64

const MaxSequenceNumber SequenceNumber = (1 << 56) - 1

// ParsedInternalKey is the decoded form of an internal key.
type ParsedInternalKey struct {
	UserKey []byte
	Seq     SequenceNumber
	Type    ValueType
}

// PackSeqAndType builds the 64-bit tag stored at the tail of an internal
// key.
func PackSeqAndType(seq SequenceNumber, t ValueType) uint64 {
	return uint64(seq)<<8 | uint64(t)
}

// EncodingLength returns the encoded size of key.
func EncodingLength(key ParsedInternalKey) int {
	return len(key.UserKey) + 8
}

// AppendInternalKey appends the encoding of key to dst:
// user key bytes followed by the fixed64 tag.
func AppendInternalKey(dst []byte, key ParsedInternalKey) []byte {
	dst = append(dst, key.UserKey...)
	return append(dst, utils.U64ToBytes(PackSeqAndType(key.Seq, key.Type))...)
}

// ParseInternalKey decodes ikey. ok is false when ikey is shorter than a
// tag or the tag's type byte is undefined; the result is unspecified in
// that case. The user key aliases ikey.
func ParseInternalKey(ikey []byte) (key ParsedInternalKey, ok bool) {
	n := len(ikey)
	if n < 8 {
		return key, false
	}
	num := utils.BytesToU64(ikey[n-8:])
	c := byte(num & 0xff)
	key.Seq = SequenceNumber(num >> 8)
	key.Type = ValueType(c)
	key.UserKey = ikey[:n-8]
	return key, c <= byte(TypeValue)
}

// ExtractUserKey returns the user key portion of ikey. Requires
// len(ikey) >= 8.
func ExtractUserKey(ikey []byte) []byte {
	return ikey[:len(ikey)-8]
}

// ExtractTag returns the packed (sequence, type) tag of ikey. Requires
// len(ikey) >= 8.
func ExtractTag(ikey []byte) uint64 {
	return utils.BytesToU64(ikey[len(ikey)-8:])
}

// ExtractValueType returns the type byte of ikey. Requires len(ikey) >= 8.
func ExtractValueType(ikey []byte) ValueType {
	return ValueType(ExtractTag(ikey) & 0xff)
}
