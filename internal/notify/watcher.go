// Package notify provides incremental corpus ingestion: a filesystem
// watcher over a drop directory where upstream pipelines deposit .jsonl
// unit batches, and a writer that deposits them.
package notify

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DropWatcher watches the corpus drop directory and dispatches a callback
// for each batch file. Files are consumed exactly once: the watcher renames
// a file before dispatching so a concurrent watcher cannot double-process
// it.
type DropWatcher struct {
	dir      string
	callback func(path string)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewDropWatcher creates a watcher for {dataPath}/drop/. The callback
// receives the path of a claimed batch file; the callee owns deleting it
// after a successful ingest.
func NewDropWatcher(dataPath string, callback func(path string)) *DropWatcher {
	return &DropWatcher{
		dir:      filepath.Join(dataPath, "drop"),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Dir returns the watched drop directory.
func (dw *DropWatcher) Dir() string {
	return dw.dir
}

// Start begins watching. Batch files already present are drained first,
// then new arrivals dispatch as they appear. Call Stop() to clean up.
func (dw *DropWatcher) Start() error {
	if err := os.MkdirAll(dw.dir, 0o700); err != nil {
		return err
	}

	dw.drainExisting()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dw.dir); err != nil {
		_ = w.Close()
		return err
	}
	dw.watcher = w

	go dw.loop()
	log.Printf("notify: watching %s for corpus batches", dw.dir)
	return nil
}

// Stop shuts down the watcher.
func (dw *DropWatcher) Stop() {
	if dw.watcher != nil {
		_ = dw.watcher.Close()
	}
	<-dw.done
}

func (dw *DropWatcher) loop() {
	defer close(dw.done)
	for {
		select {
		case evt, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			// Writers rename into place, so both Create and Rename signal a
			// new batch.
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isBatchFile(evt.Name) {
				dw.claimFile(evt.Name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

func (dw *DropWatcher) drainExisting() {
	entries, err := os.ReadDir(dw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && isBatchFile(entry.Name()) {
			dw.claimFile(filepath.Join(dw.dir, entry.Name()))
		}
	}
}

// claimFile takes ownership of a batch by renaming it out of the watched
// namespace, then dispatches. A rename failure means another consumer won.
func (dw *DropWatcher) claimFile(path string) {
	claimed := strings.TrimSuffix(path, ".jsonl") + ".claimed"
	if err := os.Rename(path, claimed); err != nil {
		return
	}
	if dw.callback != nil {
		dw.callback(claimed)
	}
}

func isBatchFile(name string) bool {
	return strings.HasSuffix(name, ".jsonl")
}
