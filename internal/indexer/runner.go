package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/stlalpha/pktindex/internal/logging"
)

// watchDebounce collapses bursts of inbound events into one run.
const watchDebounce = 500 * time.Millisecond

// Start runs the polling loop at the configured interval until ctx is done.
func (ix *Indexer) Start(ctx context.Context) {
	if ix.cfg.PollSeconds <= 0 {
		log.Printf("INFO: Indexer polling disabled (poll_interval_seconds=0). Use RunOnce() for a manual pass.")
		return
	}

	interval := time.Duration(ix.cfg.PollSeconds) * time.Second
	log.Printf("INFO: Indexer started. Polling every %v.", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Indexer stopping.")
			return
		case <-ticker.C:
			LogResult(ix.RunOnce(ctx))
		}
	}
}

// Schedule runs an indexing pass on a standard five-field cron schedule
// until ctx is done. A run still in progress when the next tick fires is
// not overlapped.
func (ix *Indexer) Schedule(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() { LogResult(ix.RunOnce(ctx)) }); err != nil {
		return fmt.Errorf("indexer: schedule %q: %w", spec, err)
	}
	c.Start()
	log.Printf("INFO: Indexer scheduled: %s", spec)

	<-ctx.Done()
	log.Printf("INFO: Indexer schedule stopping...")
	<-c.Stop().Done()
	return nil
}

// Watch runs an indexing pass whenever a packet or bundle appears in one of
// the inbound paths, and once at start. With Recursive set, subdirectories
// are watched too, including ones created later. It blocks until ctx is done.
func (ix *Indexer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	for _, p := range ix.cfg.Paths {
		if err := ix.watchTree(w, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		log.Printf("INFO: Watching %s for inbound packets", p)
	}

	work := ix.workDirs()
	trigger := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	LogResult(ix.RunOnce(ctx))
	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Stopping inbound watcher")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			newDir := false
			if ix.cfg.Recursive && event.Has(fsnotify.Create) && !work[absPath(event.Name)] {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := ix.watchTree(w, event.Name); err != nil {
						log.Printf("WARN: Failed to watch %s: %v", event.Name, err)
					}
					newDir = true
				}
			}
			// A new directory may already hold packets moved in with it.
			if !newDir && !isInboundName(event.Name) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			LogResult(ix.RunOnce(ctx))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("ERROR: Inbound watcher error: %v", err)
		}
	}
}

// watchTree adds root to w and, when Recursive is set, every directory below
// it except the temp and bad paths.
func (ix *Indexer) watchTree(w *fsnotify.Watcher, root string) error {
	if !ix.cfg.Recursive {
		return w.Add(root)
	}
	skip := ix.workDirs()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("WARN: Skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skip[absPath(path)] {
			return filepath.SkipDir
		}
		logging.Debug("Watching directory %s", path)
		return w.Add(path)
	})
}

func isInboundName(path string) bool {
	name := path[strings.LastIndexAny(path, `/\`)+1:]
	return isPacketName(name) || BundleExtension(name)
}
