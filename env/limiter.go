//go:build linux
// +build linux

package env

import (
	"math"
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"slatekv/utils/errs"
)

// limiter caps concurrent use of a resource, currently mmap regions and
// long-lived read-only descriptors. Acquisition never blocks; callers
// degrade to a cheaper strategy when it fails.
type limiter struct {
	avail int64
}

func newLimiter(n int64) *limiter {
	return &limiter{avail: n}
}

func (l *limiter) acquire() bool {
	if atomic.AddInt64(&l.avail, -1) >= 0 {
		return true
	}
	atomic.AddInt64(&l.avail, 1)
	return false
}

func (l *limiter) release() {
	atomic.AddInt64(&l.avail, 1)
}

var (
	openReadOnlyFileLimit int64 = -1
	mmapLimit             int64 = -1
)

// SetReadOnlyFDLimit overrides the long-lived read-only descriptor budget.
// Test hook, must be called before Default().
func SetReadOnlyFDLimit(limit int64) {
	errs.CondPanic(defaultEnv != nil, errs.ErrInvalidArgument)
	openReadOnlyFileLimit = limit
}

// SetReadOnlyMMapLimit overrides the concurrent mmap budget. Test hook,
// must be called before Default().
func SetReadOnlyMMapLimit(limit int64) {
	errs.CondPanic(defaultEnv != nil, errs.ErrInvalidArgument)
	mmapLimit = limit
}

// maxMmaps returns the maximum number of concurrent mmap regions.
func maxMmaps() int64 {
	if mmapLimit >= 0 {
		return mmapLimit
	}
	// Up to 1000 mmaps on 64-bit platforms, none on smaller ones.
	if strconv.IntSize >= 64 {
		mmapLimit = 1000
	} else {
		mmapLimit = 0
	}
	return mmapLimit
}

// maxOpenFiles returns the maximum number of read-only files to keep
// open.
func maxOpenFiles() int64 {
	if openReadOnlyFileLimit >= 0 {
		return openReadOnlyFileLimit
	}
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		// getrlimit failed, use a conservative default.
		openReadOnlyFileLimit = 50
	} else if rl.Cur == unix.RLIM_INFINITY {
		openReadOnlyFileLimit = math.MaxInt64
	} else {
		// 20% of the soft descriptor budget for read-only files.
		openReadOnlyFileLimit = int64(rl.Cur / 5)
	}
	return openReadOnlyFileLimit
}
