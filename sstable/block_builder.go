package sstable

import (
	"slatekv/utils"
	"slatekv/utils/errs"
)

// BlockBuilder assembles the prefix-compressed block layout consumed by
// Block. Keys must be added in ascending order under the comparator the
// reader will use. Every restartInterval-th key is stored uncompressed and
// recorded in the restart array.
type BlockBuilder struct {
	restartInterval int
	buf             []byte
	restarts        []uint32
	counter         int // entries since the last restart
	finished        bool
	lastKey         []byte
}

func NewBlockBuilder(restartInterval int) *BlockBuilder {
	errs.CondPanic(restartInterval < 1, errs.ErrInvalidArgument)
	return &BlockBuilder{
		restartInterval: restartInterval,
		restarts:        []uint32{0}, // first entry always restarts
	}
}

// Reset clears the builder for reuse.
func (b *BlockBuilder) Reset() {
	b.buf = b.buf[:0]
	b.restarts = append(b.restarts[:0], 0)
	b.counter = 0
	b.finished = false
	b.lastKey = b.lastKey[:0]
}

// Empty reports whether no entries have been added since the last Reset.
func (b *BlockBuilder) Empty() bool {
	return len(b.buf) == 0
}

// CurrentSizeEstimate returns the size Finish would currently produce.
func (b *BlockBuilder) CurrentSizeEstimate() int {
	return len(b.buf) + len(b.restarts)*4 + 4
}

// Add appends a key/value entry. key must be greater than every key added
// since the last Reset.
func (b *BlockBuilder) Add(key, value []byte) {
	errs.CondPanic(b.finished, errs.ErrInvalidArgument)
	errs.CondPanic(b.counter > b.restartInterval, errs.ErrInvalidArgument)

	shared := 0
	if b.counter < b.restartInterval {
		// Shared prefix with the previous key in this restart range.
		n := len(b.lastKey)
		if len(key) < n {
			n = len(key)
		}
		for shared < n && b.lastKey[shared] == key[shared] {
			shared++
		}
	} else {
		// Start a new restart range, key is stored in full.
		b.restarts = append(b.restarts, uint32(len(b.buf)))
		b.counter = 0
	}
	nonShared := len(key) - shared

	// +-------------------------------------------------+
	// | shared | non_shared | value_len | suffix | value |
	// +-------------------------------------------------+
	b.buf = utils.AppendVarint32(b.buf, uint32(shared))
	b.buf = utils.AppendVarint32(b.buf, uint32(nonShared))
	b.buf = utils.AppendVarint32(b.buf, uint32(len(value)))
	b.buf = append(b.buf, key[shared:]...)
	b.buf = append(b.buf, value...)

	b.lastKey = append(b.lastKey[:shared], key[shared:]...)
	b.counter++
}

// Finish appends the restart array and its count and returns the block
// bytes. The returned slice is only valid until the next Reset.
func (b *BlockBuilder) Finish() []byte {
	for _, r := range b.restarts {
		b.buf = append(b.buf, utils.U32ToBytes(r)...)
	}
	b.buf = append(b.buf, utils.U32ToBytes(uint32(len(b.restarts)))...)
	b.finished = true
	return b.buf
}
