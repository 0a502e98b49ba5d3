package preset

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/dkoerner/pluck/pluck"
)

// Watch reloads the preset at path whenever the file changes and delivers
// the parsed params on the params channel. Parse failures go to errs; the
// previous params stay in effect. Closing done stops the watcher.
func Watch(path string, params chan<- *pluck.Params, errs chan<- error, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	go func() {
	loop:
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					break loop
				}
				// Editors typically write via rename; treat both as a change.
				if ev.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Create) > 0 {
					p, err := LoadJSON(path)
					if err != nil {
						errs <- err
						continue loop
					}
					select {
					case params <- p:
					case <-done:
						break loop
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					break loop
				}
				errs <- err
			case <-done:
				break loop
			}
		}
		watcher.Close()
	}()
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}
	return nil
}
