// SPDX-License-Identifier: Apache-2.0

package lvc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked is returned by Lock when another process already holds the
// lock for this AR's state directory.
var ErrLocked = errors.New("authentication repository is locked by another process")

// Lock is an advisory, O_EXCL-based lock over one AR's state directory,
// RECOMMENDED but not required by spec.md §5 to keep concurrent Updater
// invocations against the same AR from racing on its working copy or LVC
// file. No third-party file-locking dependency appears anywhere in the
// example pack, so this is implemented directly on os.OpenFile's O_EXCL
// guarantee rather than imported.
type Lock struct {
	path string
	file *os.File
}

// Acquire creates the lockfile exclusively, failing with ErrLocked if it
// already exists.
func Acquire(confDirRoot, namespace, name string) (*Lock, error) {
	dir := Dir(confDirRoot, namespace, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	path := dir + "/lock"
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("creating lockfile: %w", err)
	}

	fmt.Fprintf(file, "%d\n", os.Getpid())
	return &Lock{path: path, file: file}, nil
}

// Release removes the lockfile. Callers must not use the Lock afterward.
func (l *Lock) Release() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing lockfile: %w", err)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("removing lockfile: %w", err)
	}
	return nil
}

// HolderPID reads the PID recorded in an existing lockfile, for
// diagnosing a stale lock left by a crashed process.
func HolderPID(confDirRoot, namespace, name string) (int, error) {
	raw, err := os.ReadFile(Dir(confDirRoot, namespace, name) + "/lock")
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(trimNewline(raw)))
	if err != nil {
		return 0, fmt.Errorf("parsing lockfile contents: %w", err)
	}
	return pid, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
