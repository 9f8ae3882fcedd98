package fileio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Fault identifies a single operation a Fake should fail on its next call.
type Fault int

const (
	// FaultNone injects no failure.
	FaultNone Fault = iota
	// FaultOpen fails the next Open call.
	FaultOpen
	// FaultRead fails the next Read call on any open file.
	FaultRead
	// FaultWrite fails the next Write call on any open file.
	FaultWrite
)

// Fake is an in-memory Capability implementation for deterministic tests.
// It lets a test inject a single failure on a specific operation (e.g.
// "io_failure on first read") without touching the real filesystem. All
// file content lives in Fake itself, keyed by path, so two fakeFile handles
// opened on the same path see each other's writes exactly like two open
// file descriptors on the same inode would.
type Fake struct {
	mu        sync.Mutex
	files     map[string][]byte
	processes map[uint32]string
	fault     Fault
	faultErr  error
	maxPath   int
	handleSeq atomic.Uint32
}

// NewFake returns an empty in-memory Capability.
func NewFake() *Fake {
	return &Fake{
		files:     make(map[string][]byte),
		processes: make(map[uint32]string),
		maxPath:   4096,
	}
}

// Seed writes content directly into the in-memory filesystem, bypassing
// Open, for test setup.
func (f *Fake) Seed(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(content))
	copy(cp, content)
	f.files[path] = cp
}

// SeedProcess registers a PID as alive with the given process name.
func (f *Fake) SeedProcess(pid uint32, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processes[pid] = name
}

// KillProcess removes a PID from the alive set.
func (f *Fake) KillProcess(pid uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.processes, pid)
}

// InjectFault arranges for the next call of the given kind to fail with err.
// The fault fires exactly once.
func (f *Fake) InjectFault(fault Fault, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fault = fault
	f.faultErr = err
}

func (f *Fake) takeFault(kind Fault) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fault == kind {
		f.fault = FaultNone
		return f.faultErr
	}
	return nil
}

func (f *Fake) Open(ctx context.Context, path string, flags int, mode os.FileMode) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.takeFault(FaultOpen); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[path]; !ok {
		if flags&os.O_CREATE == 0 {
			return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
		}
		f.files[path] = nil
	} else if flags&os.O_TRUNC != 0 {
		f.files[path] = nil
	}

	return &fakeFile{fake: f, path: path}, nil
}

func (f *Fake) Unlink(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *Fake) Canonicalize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	_, exists := f.files[path]
	f.mu.Unlock()
	if !exists {
		return path, fmt.Errorf("canonicalize %q: %w", path, os.ErrNotExist)
	}
	return path, nil
}

func (f *Fake) MaxPathLength() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxPath
}

// SetMaxPathLength overrides the simulated path length limit, used to
// exercise the /var/tmp fallback naming path deterministically.
func (f *Fake) SetMaxPathLength(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxPath = n
}

func (f *Fake) IsProcessAlive(pid uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processes[pid]
	return ok
}

func (f *Fake) ProcessName(pid uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.processes[pid]
	if !ok {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return name, nil
}

// NextHandleID hands out a fresh process-unique incarnation handle
// identifier, simulating the anonymous file descriptor the real Capability
// allocates when a session is opened.
func (f *Fake) NextHandleID() uint32 {
	return f.handleSeq.Add(1)
}

type fakeFile struct {
	fake *Fake
	path string
}

// ReadAt and WriteAt use explicit offsets against the shared content slice,
// exactly as two independent incarnations reading/writing the same
// simulated original would — no shared file position to race over.

func (ff *fakeFile) ReadAt(p []byte, off int64) (int, error) {
	if err := ff.fake.takeFault(FaultRead); err != nil {
		return 0, err
	}
	ff.fake.mu.Lock()
	defer ff.fake.mu.Unlock()
	data := ff.fake.files[ff.path]
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (ff *fakeFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ff.fake.takeFault(FaultWrite); err != nil {
		return 0, err
	}
	ff.fake.mu.Lock()
	defer ff.fake.mu.Unlock()

	data := ff.fake.files[ff.path]
	end := off + int64(len(p))
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[off:end], p)
	ff.fake.files[ff.path] = data
	return len(p), nil
}

func (ff *fakeFile) Close() error { return nil }

func (ff *fakeFile) Sync() error { return nil }

func (ff *fakeFile) Name() string { return ff.path }

func (ff *fakeFile) Truncate(size int64) error {
	ff.fake.mu.Lock()
	defer ff.fake.mu.Unlock()

	data := ff.fake.files[ff.path]
	switch {
	case int64(len(data)) > size:
		data = data[:size]
	case int64(len(data)) < size:
		grown := make([]byte, size)
		copy(grown, data)
		data = grown
	}
	ff.fake.files[ff.path] = data
	return nil
}
