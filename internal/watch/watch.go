// Package watch reports changes to asset directories as debounced
// notifications.
package watch

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDelay is how long events must settle before a notification fires.
const DefaultDelay = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Delay  time.Duration
	Ignore func(path string) bool // optional, true drops the event
	Logger zerolog.Logger
}

// Watcher coalesces filesystem events on a set of directories.
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	delay   time.Duration
	ignore  func(string) bool
	logger  zerolog.Logger
	once    sync.Once
}

// New starts watching dirs.
func New(opts Options, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = func(string) bool { return false }
	}

	w := &Watcher{
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		delay:   delay,
		ignore:  ignore,
		logger:  opts.Logger,
	}
	go w.loop()

	w.logger.Debug().Strs("dirs", dirs).Msg("watching")
	return w, nil
}

// Changes receives one value per settled burst of events. Bursts that arrive
// while a value is still unread are merged into it.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher and closes Changes.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.changes)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod || w.ignore(event.Name) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change")

			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}
