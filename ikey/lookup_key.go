package ikey

import (
	"slatekv/utils"
)

const lookupKeyInlineSize = 200

// LookupKey is the probe key for a memtable Get at a snapshot. It holds a
// single encoding
//
//	varint32(len(userKey)+8) || userKey || tag
//
// and exposes three views of it without copying. Short keys live in an
// inline buffer, so their encoding needs no allocation beyond the
// LookupKey itself.
type LookupKey struct {
	mkey   []byte
	kstart int
	space  [lookupKeyInlineSize]byte
}

// NewLookupKey builds the probe key for userKey as of snapshot seq.
func NewLookupKey(userKey []byte, seq SequenceNumber) *LookupKey {
	lk := &LookupKey{}
	needed := 5 + len(userKey) + 8 // varint32 worst case
	var dst []byte
	if needed <= len(lk.space) {
		dst = lk.space[:0]
	} else {
		dst = make([]byte, 0, needed)
	}
	dst = utils.AppendVarint32(dst, uint32(len(userKey)+8))
	lk.kstart = len(dst)
	dst = append(dst, userKey...)
	dst = append(dst, utils.U64ToBytes(PackSeqAndType(seq, TypeForSeek))...)
	lk.mkey = dst
	return lk
}

// MemtableKey returns the full length-prefixed key.
func (lk *LookupKey) MemtableKey() []byte {
	return lk.mkey
}

// InternalKey returns the internal-key suffix, without the length prefix.
func (lk *LookupKey) InternalKey() []byte {
	return lk.mkey[lk.kstart:]
}

// UserKey returns the bare user-key slice.
func (lk *LookupKey) UserKey() []byte {
	return lk.mkey[lk.kstart : len(lk.mkey)-8]
}
