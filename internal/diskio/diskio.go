// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diskio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"code.hybscloud.com/iox"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultAttempts is how many times a transient I/O failure is retried.
	DefaultAttempts = 5

	// DefaultLockBudget bounds how long Locked polls for an advisory lock.
	DefaultLockBudget = 3 * time.Second

	lockSuffix = ".lock"
	tempPrefix = ".tmp-"
	filePerm   = 0o644
	dirPerm    = 0o755
)

// ErrLockTimeout is returned when an advisory lock could not be obtained
// within the lock budget.
var ErrLockTimeout = errors.New("diskio: lock budget exhausted")

// FS performs file operations with bounded retries.
// The zero value is not usable; construct with [New].
type FS struct {
	attempts   uint64
	delay      time.Duration
	lockBudget time.Duration
	fsync      bool
}

// Option configures an FS.
type Option func(*FS)

// WithFsync makes Write flush file contents to stable storage before the
// rename becomes visible.
func WithFsync() Option {
	return func(f *FS) { f.fsync = true }
}

// WithAttempts sets the retry count for transient failures.
func WithAttempts(n uint64) Option {
	return func(f *FS) { f.attempts = n }
}

// WithLockBudget sets how long Locked keeps trying to obtain a lock.
func WithLockBudget(d time.Duration) Option {
	return func(f *FS) { f.lockBudget = d }
}

// New returns an FS with the default retry and lock budgets.
func New(opts ...Option) *FS {
	f := &FS{
		attempts:   DefaultAttempts,
		delay:      time.Millisecond,
		lockBudget: DefaultLockBudget,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *FS) backoff() retry.Backoff {
	return retry.WithMaxRetries(f.attempts, retry.NewConstant(f.delay))
}

// do runs op, retrying every error it returns up to the attempt limit.
func (f *FS) do(op func() error) error {
	return retry.Do(context.Background(), f.backoff(), func(context.Context) error {
		if err := op(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Read returns the whole content of path.
func (f *FS) Read(path string) ([]byte, error) {
	return retry.DoValue(context.Background(), f.backoff(), func(context.Context) ([]byte, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		return b, nil
	})
}

// Write atomically replaces path with data. Readers observe either the
// previous content or data, never a partial write.
func (f *FS) Write(path string, data []byte) error {
	return f.do(func() error {
		if f.fsync {
			return renameio.WriteFile(path, data, filePerm, renameio.WithTempDir(filepath.Dir(path)))
		}
		return replace(path, data)
	})
}

// replace writes data to a temporary sibling of path and renames it over
// path without flushing.
func replace(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// MkdirAll creates dir and any missing parents.
func (f *FS) MkdirAll(dir string) error {
	return f.do(func() error { return os.MkdirAll(dir, dirPerm) })
}

// Exists reports whether path exists. Errors other than not-exist are
// retried and then returned.
func (f *FS) Exists(path string) (bool, error) {
	var found bool
	err := f.do(func() error {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, os.ErrNotExist):
			found = false
			return nil
		}
		return err
	})
	return found, err
}

// Locked runs fn while holding the advisory lock file path+".lock".
// The lock is polled without blocking until the lock budget runs out,
// after which ErrLockTimeout is returned and fn is not run.
func (f *FS) Locked(path string, fn func() error) error {
	lk := flock.New(path+lockSuffix, flock.SetPermissions(filePerm))
	defer lk.Close()

	if err := f.acquire(lk); err != nil {
		return err
	}
	err := fn()
	if uerr := lk.Unlock(); uerr != nil && err == nil {
		err = fmt.Errorf("diskio: unlock %s: %w", lk.Path(), uerr)
	}
	return err
}

func (f *FS) acquire(lk *flock.Flock) error {
	deadline := time.Now().Add(f.lockBudget)
	backoff := iox.Backoff{}
	failures := uint64(0)
	for {
		ok, err := lk.TryLock()
		if err != nil {
			// Creating or opening the lock file failed.
			failures++
			if failures > f.attempts {
				return fmt.Errorf("diskio: lock %s: %w", lk.Path(), err)
			}
		} else if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, lk.Path())
		}
		backoff.Wait()
	}
}
