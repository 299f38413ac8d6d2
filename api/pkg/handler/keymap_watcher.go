package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/loop"
)

const keyMapReloadDebounce = 100 * time.Millisecond

// KeyMapWatcher reloads a profile file when it changes on disk and hands the
// new profile to apply on the event loop. A profile that fails to parse is
// logged and the previous one stays in effect.
type KeyMapWatcher struct {
	path  string
	sched loop.Scheduler
	apply func(*Profile)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewKeyMapWatcher(path string, sched loop.Scheduler, apply func(*Profile)) *KeyMapWatcher {
	return &KeyMapWatcher{path: path, sched: sched, apply: apply}
}

// Start watches the directory holding the profile, so editors that replace
// the file by rename are picked up too. It returns once the watch is set up.
func (w *KeyMapWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Wait blocks until the watch goroutine has exited.
func (w *KeyMapWatcher) Wait() {
	w.wg.Wait()
}

func (w *KeyMapWatcher) run(ctx context.Context) {
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(keyMapReloadDebounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("key mapping watcher error")
		}
	}
}

func (w *KeyMapWatcher) reload() {
	profile, err := LoadProfile(w.path)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("keeping previous key mapping profile")
		return
	}
	w.sched.Post(func() {
		w.apply(profile)
	})
}
