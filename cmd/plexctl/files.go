package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/schollz/progressbar/v3"
)

var errDestinationBusy = errors.New("destination is being written by another plexctl process")

// lockDestination takes an exclusive advisory lock next to path so two
// invocations never write the same file.
func lockDestination(path string) (*flock.Flock, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, errDestinationBusy)
	}
	return lock, nil
}

func releaseDestination(lock *flock.Flock) {
	_ = lock.Unlock()
	_ = os.Remove(lock.Path())
}

// writeAtomic runs fill against a pending file that only replaces path once
// fill succeeds. A failed fill leaves any previous file untouched.
func writeAtomic(path string, progress io.Writer, fill func(io.Writer) (int64, error)) (int64, error) {
	lock, err := lockDestination(path)
	if err != nil {
		return 0, err
	}
	defer releaseDestination(lock)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()

	var w io.Writer = pending
	if progress != nil {
		w = io.MultiWriter(pending, progress)
	}
	written, err := fill(w)
	if err != nil {
		return written, err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return written, fmt.Errorf("replace %s: %w", path, err)
	}
	return written, nil
}

// byteProgress returns a byte-counting progress bar on the command's stderr
// when it is a terminal, nil otherwise.
func byteProgress(w io.Writer, description string, total int64) *progressbar.ProgressBar {
	if !isTerminal(w) {
		return nil
	}
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// progressWriter avoids the typed-nil trap when no bar is shown.
func progressWriter(bar *progressbar.ProgressBar) io.Writer {
	if bar == nil {
		return nil
	}
	return bar
}
