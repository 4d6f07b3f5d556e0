package ikey

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slatekv/utils"
	"slatekv/utils/cmp"
)

func ik(userKey string, seq SequenceNumber, t ValueType) []byte {
	return AppendInternalKey(nil, ParsedInternalKey{
		UserKey: []byte(userKey),
		Seq:     seq,
		Type:    t,
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	keys := []string{"", "k", "hello", "longggggggggggggggggggggg"}
	seqs := []SequenceNumber{0, 1, 100, 1<<22 - 1, 1 << 23, MaxSequenceNumber}
	for _, uk := range keys {
		for _, seq := range seqs {
			for _, vt := range []ValueType{TypeValue, TypeDeletion} {
				encoded := ik(uk, seq, vt)
				require.Equal(t, len(uk)+8, len(encoded))
				require.Equal(t, len(encoded), EncodingLength(ParsedInternalKey{UserKey: []byte(uk), Seq: seq, Type: vt}))

				decoded, ok := ParseInternalKey(encoded)
				require.True(t, ok)
				assert.Equal(t, []byte(uk), decoded.UserKey)
				assert.Equal(t, seq, decoded.Seq)
				assert.Equal(t, vt, decoded.Type)

				assert.Equal(t, []byte(uk), ExtractUserKey(encoded))
				assert.Equal(t, vt, ExtractValueType(encoded))
			}
		}
	}
}

func TestParseMalformed(t *testing.T) {
	// Shorter than a tag.
	_, ok := ParseInternalKey([]byte("short"))
	assert.False(t, ok)
	_, ok = ParseInternalKey(nil)
	assert.False(t, ok)

	// Undefined type byte.
	bad := append([]byte("key"), utils.U64ToBytes(PackSeqAndType(7, ValueType(0x7)))...)
	_, ok = ParseInternalKey(bad)
	assert.False(t, ok)
}

func TestInternalKeyOrder(t *testing.T) {
	icmp := NewComparator(cmp.ByteComparator{})

	// Newest record first within a user key, user keys ascending.
	ordered := [][]byte{
		ik("a", 5, TypeValue),
		ik("a", 3, TypeDeletion),
		ik("b", 1, TypeValue),
	}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			assert.Less(t, icmp.Compare(ordered[i], ordered[j]), 0,
				"expected %d < %d", i, j)
			assert.Greater(t, icmp.Compare(ordered[j], ordered[i]), 0)
		}
		assert.Equal(t, 0, icmp.Compare(ordered[i], ordered[i]))
	}

	// Same user key and sequence, larger type sorts first.
	assert.Less(t, icmp.Compare(ik("k", 9, TypeValue), ik("k", 9, TypeDeletion)), 0)
}

func TestSeekKeyLandsOnSnapshot(t *testing.T) {
	icmp := NewComparator(cmp.ByteComparator{})

	// Seeking at snapshot 4 must order after seq 5 and before seq 3.
	seek := ik("a", 4, TypeForSeek)
	assert.Greater(t, icmp.Compare(seek, ik("a", 5, TypeValue)), 0)
	assert.Less(t, icmp.Compare(seek, ik("a", 3, TypeDeletion)), 0)

	// At the exact sequence the seek key orders at or before both types.
	assert.Equal(t, 0, icmp.Compare(seek, ik("a", 4, TypeValue)))
	assert.Less(t, icmp.Compare(seek, ik("a", 4, TypeDeletion)), 0)
}

func TestFindShortestSeparatorInternal(t *testing.T) {
	icmp := NewComparator(cmp.ByteComparator{})

	start := ik("helloworld", 5, TypeValue)
	limit := ik("helpme", 7, TypeValue)
	sep := icmp.FindShortestSeparator(start, limit)
	require.NotEqual(t, start, sep)
	assert.Equal(t, []byte("helm"), ExtractUserKey(sep))
	assert.Equal(t, PackSeqAndType(MaxSequenceNumber, TypeForSeek), ExtractTag(sep))
	assert.Less(t, icmp.Compare(start, sep), 0)
	assert.Less(t, icmp.Compare(sep, limit), 0)

	// No shorter user key exists, start comes back unchanged.
	start = ik("abc", 5, TypeValue)
	limit = ik("abd", 5, TypeValue)
	assert.Equal(t, start, icmp.FindShortestSeparator(start, limit))
}

func TestFindShortSuccessorInternal(t *testing.T) {
	icmp := NewComparator(cmp.ByteComparator{})

	key := ik("abc", 5, TypeValue)
	succ := icmp.FindShortSuccessor(key)
	assert.Equal(t, []byte("b"), ExtractUserKey(succ))
	assert.Equal(t, PackSeqAndType(MaxSequenceNumber, TypeForSeek), ExtractTag(succ))
	assert.Less(t, icmp.Compare(key, succ), 0)

	key = ik(string([]byte{0xff, 0xff}), 5, TypeValue)
	assert.Equal(t, key, icmp.FindShortSuccessor(key))
}

func TestLookupKeyViews(t *testing.T) {
	for _, n := range []int{0, 1, 17, 150, 400} {
		userKey := bytes.Repeat([]byte{'u'}, n)
		lk := NewLookupKey(userKey, 42)

		mkey := lk.MemtableKey()
		klen, m := utils.DecodeVarint32(mkey)
		require.Greater(t, m, 0)
		assert.Equal(t, uint32(n+8), klen)
		assert.Equal(t, mkey[m:], lk.InternalKey())

		assert.Equal(t, userKey, lk.UserKey())
		decoded, ok := ParseInternalKey(lk.InternalKey())
		require.True(t, ok)
		assert.Equal(t, SequenceNumber(42), decoded.Seq)
		assert.Equal(t, TypeForSeek, decoded.Type)
	}
}

func TestLookupKeyInlineBuffer(t *testing.T) {
	// Short keys stay in the inline space, long ones spill to the heap.
	short := NewLookupKey([]byte("key"), 1)
	assert.Equal(t, &short.space[0], &short.MemtableKey()[0])

	long := NewLookupKey(bytes.Repeat([]byte{'x'}, lookupKeyInlineSize), 1)
	assert.NotEqual(t, &long.space[0], &long.MemtableKey()[0])
}

func TestLookupKeyAllocs(t *testing.T) {
	userKey := []byte("user-key")
	allocs := testing.AllocsPerRun(100, func() {
		lk := NewLookupKey(userKey, 7)
		if len(lk.UserKey()) != len(userKey) {
			t.Fatal("bad lookup key")
		}
	})
	// One allocation for the LookupKey itself, none for its encoding.
	assert.LessOrEqual(t, allocs, 1.0)
}

func TestInternalKeyDebugOrderScan(t *testing.T) {
	// A larger soup of keys must sort exactly like (user asc, seq desc,
	// type desc).
	icmp := NewComparator(cmp.ByteComparator{})
	var keys [][]byte
	for _, uk := range []string{"a", "ab", "b", "c"} {
		for _, seq := range []SequenceNumber{9, 5, 2} {
			for _, vt := range []ValueType{TypeValue, TypeDeletion} {
				keys = append(keys, ik(uk, seq, vt))
			}
		}
	}
	for i := 1; i < len(keys); i++ {
		assert.Less(t, icmp.Compare(keys[i-1], keys[i]), 0,
			fmt.Sprintf("keys[%d] should precede keys[%d]", i-1, i))
	}
}
