// Package lock serializes updates of one SDK root across processes.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// FileName is the lock file created inside the SDK root.
const FileName = ".studiosdk.lock"

// ErrLockHeld is returned when another update holds the lock.
var ErrLockHeld = errors.New("sdk lock held: another update may be in progress")

// Lock is an advisory lock on an SDK root.
type Lock struct {
	path  string
	flock *flock.Flock
	runID string
}

// Acquire takes the lock for dir without waiting. The lock file records
// the run id, pid and start time of the holder.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		if holder := readHolder(path); holder != "" {
			return nil, fmt.Errorf("%w (%s)", ErrLockHeld, holder)
		}
		return nil, ErrLockHeld
	}

	// a holder that released between our open and lock removed the file
	// we locked; its successor locks a new one
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		_ = fl.Unlock()
		return nil, ErrLockHeld
	}

	l := &Lock{path: path, flock: fl, runID: uuid.New().String()}
	data := fmt.Sprintf("run_id=%s\npid=%d\ntimestamp=%s\n",
		l.runID, os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write lock data: %w", err)
	}
	return l, nil
}

// RunID identifies the update holding the lock.
func (l *Lock) RunID() string {
	return l.runID
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file and unlocks. It is safe to call more
// than once.
func (l *Lock) Release() error {
	if l.flock == nil || !l.flock.Locked() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = l.flock.Unlock()
		return fmt.Errorf("remove lock file: %w", err)
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(string(data)), " ")
}
