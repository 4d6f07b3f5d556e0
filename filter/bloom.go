package filter

import (
	metro "github.com/dgryski/go-metro"
)

// Policy builds and probes per-table filters over user keys.
type Policy interface {
	// Name identifies the filter encoding. Stored filters are only probed
	// by a policy of the same name.
	Name() string

	// CreateFilter returns a filter summarizing keys.
	CreateFilter(keys [][]byte) []byte

	// KeyMayMatch reports whether key may be present in the set filter
	// was built from. False positives are allowed, false negatives are
	// not.
	KeyMayMatch(key, filter []byte) bool
}

const bloomSeed = 0xbc9f1d34

type bloomFilter struct {
	bitsPerKey int
	k          int
}

// NewBloomFilter returns a bloom filter policy using roughly bitsPerKey
// bits per key. 10 gives ~1% false positives.
func NewBloomFilter(bitsPerKey int) Policy {
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	// k ~= bitsPerKey * ln(2), clamped to keep probe cost bounded.
	k := int(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &bloomFilter{bitsPerKey: bitsPerKey, k: k}
}

func (b *bloomFilter) Name() string {
	return "slatekv.BuiltinBloomFilter"
}

func bloomHash(key []byte) uint32 {
	return uint32(metro.Hash64(key, bloomSeed))
}

func (b *bloomFilter) CreateFilter(keys [][]byte) []byte {
	bits := len(keys) * b.bitsPerKey
	// Tiny sets would otherwise see a very high false positive rate.
	if bits < 64 {
		bits = 64
	}
	nBytes := (bits + 7) / 8
	bits = nBytes * 8

	array := make([]byte, nBytes+1)
	array[nBytes] = byte(b.k) // remember probe count in the filter itself
	for _, key := range keys {
		// Double hashing: derive the probe sequence from one hash.
		h := bloomHash(key)
		delta := h>>17 | h<<15
		for j := 0; j < b.k; j++ {
			bitpos := h % uint32(bits)
			array[bitpos/8] |= 1 << (bitpos % 8)
			h += delta
		}
	}
	return array
}

func (b *bloomFilter) KeyMayMatch(key, filter []byte) bool {
	n := len(filter)
	if n < 2 {
		return false
	}
	bits := uint32((n - 1) * 8)

	k := filter[n-1]
	if k > 30 {
		// Reserved for future encodings, treat as a match.
		return true
	}

	h := bloomHash(key)
	delta := h>>17 | h<<15
	for j := byte(0); j < k; j++ {
		bitpos := h % bits
		if filter[bitpos/8]&(1<<(bitpos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}
