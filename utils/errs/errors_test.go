package errs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorruptionCarriesContext(t *testing.T) {
	err := Corruption("bad entry in block")
	assert.True(t, IsCorruption(err))
	assert.Contains(t, err.Error(), "bad entry in block")
	assert.False(t, IsNotFound(err))
}

func TestIOErrorWrapsCause(t *testing.T) {
	_, cause := os.Stat("/definitely/not/a/file")
	err := IOError("/definitely/not/a/file", cause)
	assert.Contains(t, err.Error(), "/definitely/not/a/file")
	assert.True(t, os.IsNotExist(asOSError(err)))
}

// asOSError unwraps down to the deepest cause.
func asOSError(err error) error {
	type causer interface{ Cause() error }
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotSupported(ErrNotSupported))
	assert.False(t, IsCorruption(ErrInvalidArgument))
}
