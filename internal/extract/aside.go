package extract

import (
	"errors"
	"fmt"
	"os"
)

// asideSuffix names the previous tree of a version while it is replaced.
const asideSuffix = ".old"

// asideState is the lifecycle state of a set-aside tree.
type asideState string

const (
	stateNone      asideState = "none"
	stateAside     asideState = "aside"
	stateRestored  asideState = "restored"
	stateCompleted asideState = "completed"
)

// aside renames an existing version tree out of the way for the duration
// of an extraction. Exactly one of restore or release must be called.
type aside struct {
	path  string
	old   string
	state asideState
}

// setAside moves path to path+".old" when it exists. A stale aside tree
// from an interrupted run is removed first.
func setAside(path string) (*aside, error) {
	a := &aside{path: path, old: path + asideSuffix, state: stateNone}

	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.RemoveAll(a.old); err != nil {
		return nil, fmt.Errorf("remove stale %s: %w", a.old, err)
	}
	if err := os.Rename(path, a.old); err != nil {
		return nil, fmt.Errorf("set aside %s: %w", path, err)
	}
	a.state = stateAside
	return a, nil
}

// active reports whether a previous tree is held aside.
func (a *aside) active() bool {
	return a.state == stateAside
}

// restore discards the partial new tree and puts the previous one back.
func (a *aside) restore() error {
	if err := os.RemoveAll(a.path); err != nil {
		return fmt.Errorf("remove partial %s: %w", a.path, err)
	}
	if !a.active() {
		return nil
	}
	if err := os.Rename(a.old, a.path); err != nil {
		return fmt.Errorf("restore %s: %w", a.path, err)
	}
	a.state = stateRestored
	return nil
}

// release deletes the previous tree once the new one is complete.
func (a *aside) release() error {
	if !a.active() {
		return nil
	}
	if err := os.RemoveAll(a.old); err != nil {
		return fmt.Errorf("remove %s: %w", a.old, err)
	}
	a.state = stateCompleted
	return nil
}
