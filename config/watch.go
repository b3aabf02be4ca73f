package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"time"
)

const (
	// MinPollInterval is the floor for file stat polling.
	MinPollInterval     = 100 * time.Millisecond
	DefaultPollInterval = time.Second
	DefaultDebounce     = 500 * time.Millisecond
)

// WatchOptions configures file watching.
type WatchOptions struct {
	// PollInterval for file stat checks (minimum MinPollInterval)
	PollInterval time.Duration

	// Debounce is how long a change must settle before the file is reloaded
	Debounce time.Duration

	// VerifyPermissions refuses to reload while the group or world permission
	// bits differ from those seen when watching started
	VerifyPermissions bool
}

// DefaultWatchOptions returns the standard polling settings.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		VerifyPermissions: true,
	}
}

// Reload reports one attempt to reload the watched file.
type Reload struct {
	// Changed lists the paths whose resolved value changed, sorted
	Changed []string
	Err     error
}

// Watch polls the last loaded configuration file until ctx is done and reloads it
// after it changes. The returned channel is closed when ctx is done.
func (c *Config) Watch(ctx context.Context, opts WatchOptions) (<-chan Reload, error) {
	c.mutex.RLock()
	path := c.configFilePath
	c.mutex.RUnlock()
	if path == "" {
		return nil, fmt.Errorf("%w: no file loaded", ErrConfigNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	opts.PollInterval = max(opts.PollInterval, MinPollInterval)
	w := &fileWatcher{
		cfg:     c,
		path:    path,
		opts:    opts,
		modTime: info.ModTime(),
		size:    info.Size(),
		perm:    info.Mode().Perm(),
		events:  make(chan Reload, 1),
	}
	go w.run(ctx)

	c.logger.Debug("watching config file", "path", path, "interval", opts.PollInterval)
	return w.events, nil
}

type fileWatcher struct {
	cfg     *Config
	path    string
	opts    WatchOptions
	modTime time.Time
	size    int64
	perm    os.FileMode
	missing bool
	refused bool
	pending time.Time
	events  chan Reload
}

func (w *fileWatcher) run(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			event, ok := w.poll(now)
			if !ok {
				continue
			}
			select {
			case w.events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// poll checks the file once. It reports an event when the file disappears, when its
// permissions are refused, or when a settled change has been reloaded.
func (w *fileWatcher) poll(now time.Time) (Reload, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !w.missing {
			w.missing = true
			return Reload{Err: fmt.Errorf("%s: %w", w.path, ErrConfigNotFound)}, true
		}
		return Reload{}, false
	}

	if w.opts.VerifyPermissions && info.Mode().Perm()&0o077 != w.perm&0o077 {
		if w.refused {
			return Reload{}, false
		}
		w.refused = true
		return Reload{Err: fmt.Errorf("%w: %s is now %s", ErrPermissionsChanged, w.path, info.Mode().Perm())}, true
	}
	w.refused = false

	if w.missing || !info.ModTime().Equal(w.modTime) || info.Size() != w.size {
		w.missing = false
		w.modTime = info.ModTime()
		w.size = info.Size()
		w.pending = now
	}
	if w.pending.IsZero() || now.Sub(w.pending) < w.opts.Debounce {
		return Reload{}, false
	}
	w.pending = time.Time{}
	return w.reload(), true
}

func (w *fileWatcher) reload() Reload {
	before := w.cfg.snapshot()
	if err := w.cfg.loadFile(w.path); err != nil {
		return Reload{Err: err}
	}
	after := w.cfg.snapshot()

	var changed []string
	for path, value := range after {
		if old, existed := before[path]; !existed || !reflect.DeepEqual(old, value) {
			changed = append(changed, path)
		}
	}
	slices.Sort(changed)

	w.cfg.logger.Debug("config file reloaded", "path", w.path, "changed", len(changed))
	return Reload{Changed: changed}
}

// snapshot copies the resolved value of every path.
func (c *Config) snapshot() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	values := make(map[string]any, len(c.items))
	for path, item := range c.items {
		values[path] = item.currentValue
	}
	return values
}
