package cmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteComparatorCompare(t *testing.T) {
	c := ByteComparator{}
	assert.Equal(t, 0, c.Compare([]byte("abc"), []byte("abc")))
	assert.Less(t, c.Compare([]byte("abc"), []byte("abd")), 0)
	assert.Greater(t, c.Compare([]byte("b"), []byte("abc")), 0)
	assert.Less(t, c.Compare([]byte("abc"), []byte("abcd")), 0)
}

func TestFindShortestSeparator(t *testing.T) {
	c := ByteComparator{}

	// Diverging byte can be bumped.
	sep := c.FindShortestSeparator([]byte("helloworld"), []byte("helpme"))
	assert.Equal(t, []byte("helm"), sep)
	require.Less(t, c.Compare([]byte("helloworld"), sep), 0)
	require.Less(t, c.Compare(sep, []byte("helpme")), 0)

	sep = c.FindShortestSeparator([]byte("foo"), []byte("hello"))
	assert.Equal(t, []byte("g"), sep)

	// Adjacent diverging bytes leave start unchanged.
	assert.Equal(t, []byte("abc"), c.FindShortestSeparator([]byte("abc"), []byte("abd")))

	// One key a prefix of the other leaves start unchanged.
	assert.Equal(t, []byte("abc"), c.FindShortestSeparator([]byte("abc"), []byte("abcdef")))
}

func TestFindShortSuccessor(t *testing.T) {
	c := ByteComparator{}

	succ := c.FindShortSuccessor([]byte("abc"))
	assert.Equal(t, []byte("b"), succ)
	require.Less(t, c.Compare([]byte("abc"), succ), 0)

	succ = c.FindShortSuccessor([]byte{0xff, 0xff, 'a'})
	assert.Equal(t, []byte{0xff, 0xff, 'b'}, succ)

	// A run of 0xff bytes is its own successor.
	key := []byte{0xff, 0xff}
	assert.Equal(t, key, c.FindShortSuccessor(key))
}
