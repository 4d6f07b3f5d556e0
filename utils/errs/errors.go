package errs

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds, returned possibly wrapped with context via pkg/errors.
// I/O failures are not among them: IOError wraps the underlying OS error.
var (
	ErrNotFound        = errors.New("not found")
	ErrCorruption      = errors.New("corruption")
	ErrNotSupported    = errors.New("not supported")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Corruption returns a corruption error carrying msg as context.
func Corruption(msg string) error {
	return errors.Wrap(ErrCorruption, msg)
}

// IOError wraps an OS error with the path or operation it occurred on.
func IOError(name string, err error) error {
	return errors.Wrapf(err, "IO error: %s", name)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func IsCorruption(err error) bool {
	return stderrors.Is(err, ErrCorruption)
}

func IsNotSupported(err error) bool {
	return stderrors.Is(err, ErrNotSupported)
}

// Panic 如果err 不为nil 则panic
func Panic(err error) {
	if err != nil {
		panic(err)
	}
}

// CondPanic e
func CondPanic(condition bool, err error) {
	if condition {
		Panic(err)
	}
}

// AssertTrue panics when b is false. Used for programming errors only,
// never for data-dependent failures.
func AssertTrue(b bool) {
	if !b {
		panic(fmt.Errorf("assert failed"))
	}
}

// Err prints err with its caller location and returns it unchanged.
func Err(err error) error {
	if err != nil {
		fmt.Printf("%+v\n", errors.WithStack(err))
	}
	return err
}
