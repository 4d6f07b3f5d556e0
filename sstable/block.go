package sstable

import (
	"slatekv/utils"
	"slatekv/utils/cmp"
	"slatekv/utils/errs"
)

// Block wraps the bytes of one sorted table block:
//
//	entry ... entry | restart offsets (u32 each) | u32 restart count
//
// Entries are prefix-compressed against their predecessor; every entry at
// a restart offset stores its key in full, which is what makes the restart
// array bisectable. A Block is immutable and safe for concurrent iterator
// creation; individual iterators are not shareable.
type Block struct {
	data          []byte
	restartOffset uint32
	owned         bool
}

// NewBlock wraps data as a block. If owned, the block takes ownership of
// data; otherwise the caller must keep data live for the lifetime of the
// block and its iterators. Malformed trailers mark the block corrupt and
// NewIterator reports it.
func NewBlock(data []byte, owned bool) *Block {
	b := &Block{owned: owned}
	if len(data) < 4 {
		return b // too small for a restart count
	}
	numRestarts := utils.BytesToU32(data[len(data)-4:])
	if numRestarts > uint32(len(data)-4)/4 {
		return b // restart count does not fit the block
	}
	b.data = data
	b.restartOffset = uint32(len(data)) - (1+numRestarts)*4
	return b
}

// Size returns the block size in bytes, 0 for a corrupt block.
func (b *Block) Size() int {
	return len(b.data)
}

// NumRestarts returns the number of restart points.
func (b *Block) NumRestarts() uint32 {
	if len(b.data) < 4 {
		return 0
	}
	return utils.BytesToU32(b.data[len(b.data)-4:])
}

// NewIterator returns a cursor over the block ordered by ucmp. Corrupt
// blocks yield an error iterator, restart-free blocks an empty one.
func (b *Block) NewIterator(ucmp cmp.Comparator) Iterator {
	if len(b.data) < 4 {
		return NewErrorIterator(errs.Corruption("bad block contents"))
	}
	numRestarts := b.NumRestarts()
	if numRestarts == 0 {
		return NewEmptyIterator()
	}
	return &blockIter{
		cmp:          ucmp,
		data:         b.data,
		restarts:     b.restartOffset,
		numRestarts:  numRestarts,
		current:      b.restartOffset,
		restartIndex: numRestarts,
	}
}

// decodeEntry decodes the entry header at data[p:limit]: three varint32s
// (shared, non-shared, value length) followed by the key suffix and value.
// keyOff is the offset of the key suffix. ok is false when the header is
// malformed or the declared payload crosses limit.
func decodeEntry(data []byte, p, limit uint32) (shared, nonShared, valueLen, keyOff uint32, ok bool) {
	if p > limit || limit-p < 3 {
		return 0, 0, 0, 0, false
	}
	shared = uint32(data[p])
	nonShared = uint32(data[p+1])
	valueLen = uint32(data[p+2])
	if shared|nonShared|valueLen < 128 {
		// Fast path: all three lengths fit in one byte each.
		p += 3
	} else {
		var n int
		if shared, n = utils.DecodeVarint32(data[p:limit]); n == 0 {
			return 0, 0, 0, 0, false
		}
		p += uint32(n)
		if nonShared, n = utils.DecodeVarint32(data[p:limit]); n == 0 {
			return 0, 0, 0, 0, false
		}
		p += uint32(n)
		if valueLen, n = utils.DecodeVarint32(data[p:limit]); n == 0 {
			return 0, 0, 0, 0, false
		}
		p += uint32(n)
	}
	if limit-p < nonShared+valueLen {
		return 0, 0, 0, 0, false
	}
	return shared, nonShared, valueLen, p, true
}

type blockIter struct {
	cmp         cmp.Comparator
	data        []byte
	restarts    uint32 // offset of the restart array
	numRestarts uint32

	current      uint32 // offset of the current entry; >= restarts iff !Valid
	restartIndex uint32 // restart range containing current
	key          []byte // materialized key, reused across moves
	value        []byte // borrowed from data
	valueEnd     uint32 // offset just past the current entry
	err          error
}

func (it *blockIter) Valid() bool {
	return it.current < it.restarts
}

func (it *blockIter) Error() error {
	return it.err
}

func (it *blockIter) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.key
}

func (it *blockIter) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.value
}

func (it *blockIter) restartPoint(index uint32) uint32 {
	errs.AssertTrue(index < it.numRestarts)
	return utils.BytesToU32(it.data[it.restarts+index*4:])
}

func (it *blockIter) seekToRestartPoint(index uint32) {
	it.key = it.key[:0]
	it.restartIndex = index
	// current is fixed up by the next parseNextKey; position the entry
	// cursor at the restart offset.
	it.valueEnd = it.restartPoint(index)
	it.value = nil
}

// nextEntryOffset returns the offset just past the current entry.
func (it *blockIter) nextEntryOffset() uint32 {
	return it.valueEnd
}

func (it *blockIter) SeekToFirst() {
	it.seekToRestartPoint(0)
	it.parseNextKey()
}

func (it *blockIter) SeekToLast() {
	it.seekToRestartPoint(it.numRestarts - 1)
	for it.parseNextKey() && it.nextEntryOffset() < it.restarts {
		// Keep skipping
	}
}

func (it *blockIter) Seek(target []byte) {
	// Binary search the restart array for the last restart whose first
	// key is < target. Restart-first keys are stored in full, so they can
	// be compared without reconstruction.
	left := uint32(0)
	right := it.numRestarts - 1
	for left < right {
		mid := (left + right + 1) / 2
		regionOffset := it.restartPoint(mid)
		shared, nonShared, _, keyOff, ok := decodeEntry(it.data, regionOffset, it.restarts)
		if !ok || shared != 0 {
			it.corruptionError()
			return
		}
		midKey := it.data[keyOff : keyOff+nonShared]
		if it.cmp.Compare(midKey, target) < 0 {
			// Everything before mid is smaller still.
			left = mid
		} else {
			right = mid - 1
		}
	}

	// Linear scan within the restart range for the first key >= target.
	it.seekToRestartPoint(left)
	for {
		if !it.parseNextKey() {
			return
		}
		if it.cmp.Compare(it.key, target) >= 0 {
			return
		}
	}
}

func (it *blockIter) Next() {
	if !it.Valid() {
		return
	}
	it.parseNextKey()
}

func (it *blockIter) Prev() {
	if !it.Valid() {
		return
	}

	// Back up to a restart point strictly before the current entry.
	original := it.current
	for it.restartPoint(it.restartIndex) >= original {
		if it.restartIndex == 0 {
			// No more entries
			it.current = it.restarts
			it.restartIndex = it.numRestarts
			return
		}
		it.restartIndex--
	}

	it.seekToRestartPoint(it.restartIndex)
	for it.parseNextKey() && it.nextEntryOffset() < original {
		// Scan until the entry just before original
	}
}

func (it *blockIter) corruptionError() {
	if it.err == nil {
		it.err = errs.Corruption("bad entry in block")
	}
	it.current = it.restarts
	it.restartIndex = it.numRestarts
	it.key = it.key[:0]
	it.value = nil
}

func (it *blockIter) parseNextKey() bool {
	it.current = it.nextEntryOffset()
	if it.current >= it.restarts {
		// Ran off the end, mark invalid.
		it.current = it.restarts
		it.restartIndex = it.numRestarts
		return false
	}

	shared, nonShared, valueLen, keyOff, ok := decodeEntry(it.data, it.current, it.restarts)
	if !ok || uint32(len(it.key)) < shared {
		it.corruptionError()
		return false
	}
	it.key = append(it.key[:shared], it.data[keyOff:keyOff+nonShared]...)
	it.value = it.data[keyOff+nonShared : keyOff+nonShared+valueLen]
	it.valueEnd = keyOff + nonShared + valueLen
	// Track the largest restart whose offset is <= current.
	for it.restartIndex+1 < it.numRestarts &&
		it.restartPoint(it.restartIndex+1) <= it.current {
		it.restartIndex++
	}
	return true
}
