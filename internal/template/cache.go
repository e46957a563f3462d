// Package template shares the current block template between the producer
// and worker processes on one host through a memory-mapped file.
package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/pkg/safe"
	"go.uber.org/multierr"
)

const (
	DefaultPath = "/dev/shm/pool-template"
	DefaultSize = 1 << 20
)

type options struct {
	size          int
	create        bool
	unlinkOnClose bool
}

// Option configures Open.
type Option func(*options)

// WithSize sets the region size used when creating the backing file.
func WithSize(size int) Option {
	return func(o *options) { o.size = size }
}

// WithCreate creates and sizes the backing file when needed. Only the producer should pass it.
func WithCreate() Option {
	return func(o *options) { o.create = true }
}

// WithUnlinkOnClose removes the backing file on Close.
func WithUnlinkOnClose() Option {
	return func(o *options) { o.unlinkOnClose = true }
}

// Cache is one process's handle on the shared template region.
//
// Update and GetLatest hold the in-process mutex and a flock on the backing
// file for the duration of one copy. IsNewer and Version only load atomics,
// so they never wait behind a copy in this or any other process.
type Cache struct {
	path          string
	unlinkOnClose bool

	mu     sync.Mutex
	file   *os.File
	fd     int
	region []byte

	version atomic.Pointer[uint64]
	closed  atomic.Bool
	// lock-free readers in flight; Close waits for them before unmapping
	readers atomic.Int64
}

// Open maps the region at path, creating it first when WithCreate is given.
// An existing initialized region keeps its version counter. A creator asking
// for a different size than the live region gets an error instead of a
// resize, since attached workers keep their old mapping.
func Open(path string, opts ...Option) (*Cache, error) {
	o := options{size: DefaultSize}
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		return nil, &InitError{Path: path, Op: "validate", Err: errors.New("path is required")}
	}
	if o.size <= headerSize {
		return nil, &InitError{Path: path, Op: "validate", Err: fmt.Errorf("size %d must exceed header %d", o.size, headerSize)}
	}
	if _, err := safe.Uint32(o.size); err != nil {
		return nil, &InitError{Path: path, Op: "validate", Err: err}
	}

	flag := os.O_RDWR
	if o.create {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o660)
	if err != nil {
		return nil, &InitError{Path: path, Op: "open", Err: err}
	}

	c, err := attach(f, o)
	if err != nil {
		_ = f.Close()
		return nil, &InitError{Path: path, Op: "map", Err: err}
	}
	c.path = path
	c.unlinkOnClose = o.unlinkOnClose
	return c, nil
}

func attach(f *os.File, o options) (*Cache, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	size := int(info.Size())
	if o.create && size != o.size {
		if live, ok := readRegionSize(f); ok && live == size {
			return nil, fmt.Errorf("live region is %d bytes, requested %d: remove %s to resize it", size, o.size, f.Name())
		}
		if err := f.Truncate(int64(o.size)); err != nil {
			return nil, fmt.Errorf("truncate: %w", err)
		}
		size = o.size
	}
	if size <= headerSize {
		return nil, fmt.Errorf("region is %d bytes, not initialized", size)
	}

	region, err := mapFile(f, size)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	c := &Cache{
		file:   f,
		fd:     int(f.Fd()),
		region: region,
	}
	if err := c.checkHeader(o.create); err != nil {
		_ = unmapFile(region)
		return nil, err
	}
	c.version.Store((*uint64)(unsafe.Pointer(&region[offVersion])))
	return c, nil
}

func readRegionSize(f *os.File) (int, bool) {
	hdr := make([]byte, headerSize)
	if _, err := f.ReadAt(hdr, 0); err != nil && !errors.Is(err, io.EOF) {
		return 0, false
	}
	return regionSize(hdr)
}

func (c *Cache) checkHeader(create bool) error {
	if err := lockFile(c.fd, create); err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	defer func() {
		_ = unlockFile(c.fd)
	}()

	size, ok := regionSize(c.region)
	if ok && size == len(c.region) {
		return nil
	}
	if !create {
		if ok {
			return fmt.Errorf("header records %d bytes, file is %d", size, len(c.region))
		}
		return fmt.Errorf("unexpected header magic %#x layout %d",
			le.Uint32(c.region[offMagic:]), le.Uint32(c.region[offLayout:]))
	}

	initHeader(c.region)
	return nil
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Capacity is the number of bytes available for the hashing and block blobs together.
func (c *Cache) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0
	}
	return len(c.region) - headerSize
}

// Update overwrites the shared template and returns the new version.
// Nothing is written when the template does not fit.
func (c *Cache) Update(tpl *model.BlockTemplate) (uint64, error) {
	if tpl == nil {
		return 0, model.ErrIncompleteTemplate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if err := checkFits(tpl, len(c.region)-headerSize); err != nil {
		return 0, err
	}

	if err := lockFile(c.fd, true); err != nil {
		return 0, fmt.Errorf("lock template cache: %w", err)
	}
	encodeFields(c.region, tpl)
	word := c.version.Load()
	version := atomic.LoadUint64(word) + 1
	atomic.StoreUint64(word, version)
	if err := unlockFile(c.fd); err != nil {
		return version, fmt.Errorf("unlock template cache: %w", err)
	}
	return version, nil
}

// GetLatest copies the shared template into out and returns its version.
func (c *Cache) GetLatest(out *model.BlockTemplate) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, ErrClosed
	}

	if err := lockFile(c.fd, false); err != nil {
		return 0, fmt.Errorf("lock template cache: %w", err)
	}
	version := atomic.LoadUint64(c.version.Load())
	var decodeErr error
	if version != 0 {
		decodeErr = decodeFields(c.region, out)
	}
	if err := unlockFile(c.fd); err != nil {
		return 0, fmt.Errorf("unlock template cache: %w", err)
	}

	switch {
	case version == 0:
		return 0, ErrNoTemplate
	case decodeErr != nil:
		return 0, decodeErr
	}
	out.Version = version
	return version, nil
}

// IsNewer reports whether the shared version differs from known.
func (c *Cache) IsNewer(known uint64) bool {
	version, ok := c.loadVersion()
	return ok && version != known
}

// Version returns the live shared version, 0 before the first publish or after Close.
func (c *Cache) Version() uint64 {
	version, _ := c.loadVersion()
	return version
}

func (c *Cache) loadVersion() (uint64, bool) {
	c.readers.Add(1)
	defer c.readers.Add(-1)
	if c.closed.Load() {
		return 0, false
	}
	word := c.version.Load()
	if word == nil {
		return 0, false
	}
	return atomic.LoadUint64(word), true
}

// Close unmaps the region and closes the file. It is safe to call more than once.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Swap(true) {
		return nil
	}
	c.version.Store(nil)
	for c.readers.Load() > 0 {
		runtime.Gosched()
	}

	err := unmapFile(c.region)
	c.region = nil
	err = multierr.Append(err, c.file.Close())
	if c.unlinkOnClose {
		if rmErr := os.Remove(c.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	if err != nil {
		return fmt.Errorf("close template cache: %w", err)
	}
	return nil
}
