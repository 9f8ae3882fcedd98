package fileio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// linuxMaxPathLength mirrors PATH_MAX on Linux. Go has no portable
// equivalent constant.
const linuxMaxPathLength = 4096

// OS is the real, os-backed implementation of Capability.
type OS struct {
	handleSeq atomic.Uint32
}

// NewOS returns the real File I/O capability.
func NewOS() *OS {
	return &OS{}
}

func (o *OS) Open(ctx context.Context, path string, flags int, mode os.FileMode) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (o *OS) Unlink(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (o *OS) Canonicalize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filepath.Clean(abs), fmt.Errorf("canonicalize %q: %w", path, os.ErrNotExist)
		}
		return "", err
	}

	return resolved, nil
}

func (o *OS) MaxPathLength() int {
	return linuxMaxPathLength
}

func (o *OS) IsProcessAlive(pid uint32) bool {
	if pid == 0 {
		return false
	}
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}

func (o *OS) ProcessName(pid uint32) (string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("process %d not found: %w", pid, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (o *OS) NextHandleID() uint32 {
	return o.handleSeq.Add(1)
}
