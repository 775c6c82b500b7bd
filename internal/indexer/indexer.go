// Package indexer finds packets on disk, parses them and hands the extracted
// metadata to a storage sink.
package indexer

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/stlalpha/pktindex/internal/ftn"
	"github.com/stlalpha/pktindex/internal/logging"
	"github.com/stlalpha/pktindex/internal/store"
)

// Sink stores extracted messages. *store.Store implements it.
type Sink interface {
	SaveMessages(ctx context.Context, pkt store.PacketRecord, msgs []ftn.ExtractedMessage) (int, error)
	PacketSeen(ctx context.Context, hash uint64) (bool, error)
}

// Config controls discovery, parsing and the post-import file policy.
type Config struct {
	Paths       []string
	Recursive   bool
	Delete      bool   // remove sources whose messages were all stored
	BadPath     string // partial or unreadable packets are moved here
	TempPath    string // bundle extraction root
	Workers     int
	PollSeconds int
	DryRun      bool // list extracted fields; no writes, deletes or moves
	Parse       ftn.Options
}

// Result holds the results of one indexing run.
type Result struct {
	RunID            string
	PacketsFound     int
	PacketsProcessed int
	PacketsSkipped   int // already stored, by content hash
	PacketsPartial   int
	PacketsFailed    int
	BundlesExtracted int
	MessagesFound    int
	MessagesInserted int
	FilesDeleted     int
	Errors           []string
}

// Indexer runs indexing passes over the configured paths.
type Indexer struct {
	cfg  Config
	sink Sink
	out  io.Writer

	runMu sync.Mutex // one run at a time across poll, cron and watch triggers
}

// New creates an Indexer. sink may be nil only in dry-run mode; out
// receives the dry-run listing.
func New(cfg Config, sink Sink, out io.Writer) (*Indexer, error) {
	if sink == nil && !cfg.DryRun {
		return nil, fmt.Errorf("indexer: a storage sink is required unless dry-run is set")
	}
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("indexer: no inbound paths configured")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.TempPath == "" {
		cfg.TempPath = filepath.Join(os.TempDir(), "pktindex")
	}
	if out == nil {
		out = io.Discard
	}
	return &Indexer{cfg: cfg, sink: sink, out: out}, nil
}

// RunOnce performs a single discovery, parse and store pass.
func (ix *Indexer) RunOnce(ctx context.Context) Result {
	ix.runMu.Lock()
	defer ix.runMu.Unlock()

	result := Result{RunID: uuid.NewString()}
	logging.Debug("Index run %s starting over %d path(s)", result.RunID, len(ix.cfg.Paths))

	jobs, bundles := ix.discover(&result)
	defer ix.cleanupBundles(bundles)
	result.PacketsFound = len(jobs)
	if len(jobs) == 0 {
		return result
	}

	// Parse a batch in parallel, then store it in input order.
	batch := ix.cfg.Workers * 4
	for start := 0; start < len(jobs) && ctx.Err() == nil; start += batch {
		end := min(start+batch, len(jobs))
		parsed := ix.parseAll(ctx, jobs[start:end])
		for i, p := range parsed {
			ix.handle(ctx, jobs[start+i], p, &result)
		}
	}
	if ctx.Err() != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
	}

	if !ix.cfg.DryRun {
		ix.finishBundles(bundles, &result)
	}
	return result
}

// LogResult writes a one-line summary and each collected error.
func LogResult(result Result) {
	if result.PacketsFound > 0 {
		log.Printf("INFO: Index run %s: packets=%d, processed=%d, skipped=%d, partial=%d, failed=%d, messages=%d, inserted=%d, deleted=%d",
			result.RunID, result.PacketsFound, result.PacketsProcessed, result.PacketsSkipped,
			result.PacketsPartial, result.PacketsFailed, result.MessagesFound,
			result.MessagesInserted, result.FilesDeleted)
	}
	for _, e := range result.Errors {
		log.Printf("ERROR: Index run %s: %s", result.RunID, e)
	}
}
