package monitor

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/sdpower/connector-go/internal/logging"
	"go.uber.org/zap"
)

// FileWatcher calls onChange once a burst of writes to any watched file has
// settled for the debounce period.
type FileWatcher struct {
	files          map[string]bool
	watcher        *fsnotify.Watcher
	onChange       func()
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	done           chan struct{}
}

// NewFileWatcher watches the directories holding paths so editors that save
// by renaming a temp file are still noticed.
func NewFileWatcher(debounce time.Duration, onChange func(), paths ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	fw := &FileWatcher{
		files:          make(map[string]bool),
		watcher:        watcher,
		onChange:       onChange,
		debouncePeriod: debounce,
		done:           make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to resolve %s", path)
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	return fw, nil
}

// Start begins watching for changes
func (fw *FileWatcher) Start() {
	go fw.watchLoop()
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("watched file changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			fw.scheduleChange()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (fw *FileWatcher) scheduleChange() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debouncePeriod, fw.onChange)
}

// Stop stops watching and cancels a pending callback
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.done
	return err
}
