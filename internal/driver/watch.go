package driver

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// debounce absorbs the burst of events editors emit on save.
const debounce = 200 * time.Millisecond

// Watch compiles path once, then recompiles on every change until ctx
// is cancelled. Compile failures are logged, not fatal: the next save
// gets another chance.
func (d *Driver) Watch(ctx context.Context, path, outPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	// Watch the directory: editors often replace the file, which drops
	// a watch held on the file itself.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	build := func() {
		exe, err := d.Compile(ctx, path, outPath)
		if err != nil {
			glog.Errorf("compile %s: %v", path, err)
			return
		}
		glog.Infof("compiled %s to %s", path, exe)
	}
	build()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			evAbs, err := filepath.Abs(ev.Name)
			if err != nil || evAbs != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			build()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			glog.Errorf("watch: %v", err)
		}
	}
}
