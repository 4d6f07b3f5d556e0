//go:build linux
// +build linux

package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"slatekv/file"
	"slatekv/utils/errs"
)

const writableBufferSize = 1 << 16

var (
	defaultOnce sync.Once
	defaultEnv  *posixEnv
)

// Default returns the shared POSIX Env.
func Default() Env {
	defaultOnce.Do(func() {
		defaultEnv = newPosixEnv()
	})
	return defaultEnv
}

type bgItem struct {
	fn  func(interface{})
	arg interface{}
}

type posixEnv struct {
	mu        sync.Mutex
	bgCond    *sync.Cond
	bgStarted bool
	queue     []bgItem

	locks lockTable

	mmapLimit *limiter
	fdLimit   *limiter
}

func newPosixEnv() *posixEnv {
	p := &posixEnv{
		locks:     lockTable{files: make(map[string]struct{})},
		mmapLimit: newLimiter(maxMmaps()),
		fdLimit:   newLimiter(maxOpenFiles()),
	}
	p.bgCond = sync.NewCond(&p.mu)
	return p
}

// lockTable records paths locked by this process. fcntl locks do not
// protect against the same process locking a file twice.
type lockTable struct {
	mu    sync.Mutex
	files map[string]struct{}
}

func (t *lockTable) insert(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.files[name]; ok {
		return false
	}
	t.files[name] = struct{}{}
	return true
}

func (t *lockTable) remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, name)
}

// sequentialFile

type sequentialFile struct {
	name string
	f    *os.File
}

func (s *sequentialFile) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.f, p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// Short read at end of file is not an error.
		return n, nil
	}
	if err != nil {
		return n, errs.IOError(s.name, err)
	}
	return n, nil
}

func (s *sequentialFile) Skip(n int64) error {
	if _, err := s.f.Seek(n, io.SeekCurrent); err != nil {
		return errs.IOError(s.name, err)
	}
	return nil
}

func (s *sequentialFile) Close() error {
	return s.f.Close()
}

func (p *posixEnv) NewSequentialFile(name string) (SequentialFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	return &sequentialFile{name: name, f: f}, nil
}

// mmapReadableFile serves reads straight out of a shared read-only
// mapping, which makes it inherently safe for concurrent use.
type mmapReadableFile struct {
	name    string
	data    []byte
	limiter *limiter
}

func (m *mmapReadableFile) Read(p []byte, off int64) ([]byte, error) {
	if off >= int64(len(m.data)) {
		return nil, nil
	}
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	return m.data[off:end], nil
}

func (m *mmapReadableFile) Close() error {
	var err error
	if m.data != nil {
		err = file.Munmap(m.data)
		m.data = nil
	}
	m.limiter.release()
	return err
}

// fdRandomAccessFile reads with pread. When the descriptor budget is
// exhausted it holds no descriptor and opens per call instead.
type fdRandomAccessFile struct {
	name      string
	temporary bool // no held descriptor, open on every read
	f         *os.File
	limiter   *limiter
}

func newFDRandomAccessFile(name string, f *os.File, l *limiter) *fdRandomAccessFile {
	r := &fdRandomAccessFile{name: name, f: f, limiter: l}
	if !l.acquire() {
		// Open file on every access.
		f.Close()
		r.f = nil
		r.temporary = true
	}
	return r
}

func (r *fdRandomAccessFile) Read(p []byte, off int64) ([]byte, error) {
	f := r.f
	if r.temporary {
		var err error
		f, err = os.Open(r.name)
		if err != nil {
			return nil, errs.IOError(r.name, err)
		}
		defer f.Close()
	}
	n, err := f.ReadAt(p, off)
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return p[:n], errs.IOError(r.name, err)
	}
	return p[:n], nil
}

func (r *fdRandomAccessFile) Close() error {
	if r.temporary {
		return nil
	}
	err := r.f.Close()
	r.limiter.release()
	return err
}

func (p *posixEnv) NewRandomAccessFile(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	if p.mmapLimit.acquire() {
		fi, serr := f.Stat()
		if serr == nil && fi.Size() == 0 {
			// Nothing to map, every read is past the end.
			f.Close()
			return &mmapReadableFile{name: name, limiter: p.mmapLimit}, nil
		}
		if serr == nil {
			data, merr := file.Mmap(f, false, fi.Size())
			if merr == nil {
				// The mapping outlives the descriptor.
				f.Close()
				return &mmapReadableFile{name: name, data: data, limiter: p.mmapLimit}, nil
			}
		}
		p.mmapLimit.release()
	}
	return newFDRandomAccessFile(name, f, p.fdLimit), nil
}

// writableFile

type writableFile struct {
	name string
	f    *os.File
	w    *bufio.Writer
}

func (wf *writableFile) Append(data []byte) error {
	if _, err := wf.w.Write(data); err != nil {
		return errs.IOError(wf.name, err)
	}
	return nil
}

func (wf *writableFile) Flush() error {
	if err := wf.w.Flush(); err != nil {
		return errs.IOError(wf.name, err)
	}
	return nil
}

// syncDirIfManifest syncs the containing directory so a freshly created
// manifest's name is durable before its contents are relied on.
func (wf *writableFile) syncDirIfManifest() error {
	if !file.IsManifest(wf.name) {
		return nil
	}
	d, err := os.Open(filepath.Dir(wf.name))
	if err != nil {
		return errs.IOError(wf.name, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return errs.IOError(wf.name, err)
	}
	return nil
}

func (wf *writableFile) Sync() error {
	if err := wf.syncDirIfManifest(); err != nil {
		return err
	}
	if err := wf.w.Flush(); err != nil {
		return errs.IOError(wf.name, err)
	}
	if err := unix.Fdatasync(int(wf.f.Fd())); err != nil {
		return errs.IOError(wf.name, err)
	}
	return nil
}

func (wf *writableFile) Close() error {
	ferr := wf.w.Flush()
	cerr := wf.f.Close()
	if ferr != nil {
		return errs.IOError(wf.name, ferr)
	}
	if cerr != nil {
		return errs.IOError(wf.name, cerr)
	}
	return nil
}

func (p *posixEnv) NewWritableFile(name string) (WritableFile, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	return &writableFile{name: name, f: f, w: bufio.NewWriterSize(f, writableBufferSize)}, nil
}

func (p *posixEnv) NewAppendableFile(name string) (WritableFile, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	return &writableFile{name: name, f: f, w: bufio.NewWriterSize(f, writableBufferSize)}, nil
}

// filesystem operations

func (p *posixEnv) FileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (p *posixEnv) GetChildren(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.IOError(dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (p *posixEnv) DeleteFile(name string) error {
	if err := os.Remove(name); err != nil {
		return errs.IOError(name, err)
	}
	return nil
}

func (p *posixEnv) CreateDir(name string) error {
	if err := os.Mkdir(name, 0755); err != nil {
		return errs.IOError(name, err)
	}
	return nil
}

func (p *posixEnv) DeleteDir(name string) error {
	if err := os.Remove(name); err != nil {
		return errs.IOError(name, err)
	}
	return nil
}

func (p *posixEnv) GetFileSize(name string) (uint64, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return 0, errs.IOError(name, err)
	}
	return uint64(fi.Size()), nil
}

func (p *posixEnv) RenameFile(src, target string) error {
	if err := os.Rename(src, target); err != nil {
		return errs.IOError(src, err)
	}
	return nil
}

// file locking

type posixFileLock struct {
	f    *os.File
	name string
}

func (l *posixFileLock) Name() string {
	return l.name
}

func lockOrUnlock(f *os.File, lock bool) error {
	typ := int16(unix.F_UNLCK)
	if lock {
		typ = unix.F_WRLCK
	}
	// Start and Len zero cover the whole file. F_SETLK fails instead of
	// blocking when the lock is held elsewhere.
	fl := unix.Flock_t{
		Type:   typ,
		Whence: io.SeekStart,
	}
	return unix.FcntlFlock(f.Fd(), unix.F_SETLK, &fl)
}

func (p *posixEnv) LockFile(name string) (FileLock, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	if !p.locks.insert(name) {
		f.Close()
		return nil, errs.IOError("lock "+name, errors.New("already held by process"))
	}
	if err := lockOrUnlock(f, true); err != nil {
		f.Close()
		p.locks.remove(name)
		return nil, errs.IOError("lock "+name, err)
	}
	return &posixFileLock{f: f, name: name}, nil
}

func (p *posixEnv) UnlockFile(l FileLock) error {
	pl, ok := l.(*posixFileLock)
	if !ok {
		return errs.ErrInvalidArgument
	}
	var result error
	if err := lockOrUnlock(pl.f, false); err != nil {
		result = errs.IOError("unlock "+pl.name, err)
	}
	p.locks.remove(pl.name)
	pl.f.Close()
	return result
}

// background work

func (p *posixEnv) Schedule(fn func(interface{}), arg interface{}) {
	p.mu.Lock()

	// Start background worker if necessary
	if !p.bgStarted {
		p.bgStarted = true
		go p.bgWorker()
	}

	p.queue = append(p.queue, bgItem{fn: fn, arg: arg})
	// Signal after the insert so the wakeup's reason is already visible.
	p.bgCond.Signal()

	p.mu.Unlock()
}

func (p *posixEnv) bgWorker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			p.bgCond.Wait()
		}
		item := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		// Run outside the mutex so producers are never blocked on us.
		item.fn(item.arg)
	}
}

func (p *posixEnv) StartThread(fn func(interface{}), arg interface{}) {
	go fn(arg)
}

// utilities

func (p *posixEnv) GetTestDirectory() (string, error) {
	dir := os.Getenv("TEST_TMPDIR")
	if dir == "" {
		dir = fmt.Sprintf("%s/slatekvtest-%d", os.TempDir(), os.Getuid())
	}
	// Directory may already exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.IOError(dir, err)
	}
	return dir, nil
}

func (p *posixEnv) NewLogger(name string) (Logger, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errs.IOError(name, err)
	}
	return newFileLogger(f), nil
}

func (p *posixEnv) NowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

func (p *posixEnv) SleepForMicroseconds(micros int) {
	time.Sleep(time.Duration(micros) * time.Microsecond)
}
