package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounce is how long the watcher waits after the last change.
const debounce = 200 * time.Millisecond

// Sender receives messages from background goroutines. *tea.Program
// satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// StartWatcher watches dir for goal file changes and sends FileChangedMsg.
func StartWatcher(dir string, program Sender, log logrus.FieldLogger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})

	go func() {
		var debounceTimer *time.Timer

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Only care about .md file changes
				if !strings.HasSuffix(event.Name, ".md") {
					continue
				}

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					program.Send(FileChangedMsg{})
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if log != nil {
					log.WithError(err).Warn("file watcher error")
				}

			case <-done:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()

	cleanup := func() {
		close(done)
		watcher.Close()
	}

	return cleanup, nil
}
