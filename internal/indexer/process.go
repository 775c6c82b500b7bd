package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/stlalpha/pktindex/internal/ftn"
	"github.com/stlalpha/pktindex/internal/logging"
	"github.com/stlalpha/pktindex/internal/store"
)

// parsed is the outcome of reading and parsing one job.
type parsed struct {
	hash    uint64
	size    int64
	res     *ftn.Result
	readErr error // file could not be read
	err     error // fatal header error
}

// parseFile reads a whole packet and parses it.
func parseFile(path string, opts ftn.Options) parsed {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsed{readErr: err}
	}
	p := parsed{hash: xxh3.Hash(data), size: int64(len(data))}
	p.res, p.err = ftn.Parse(data, opts)
	return p
}

// parseAll parses jobs with at most Workers concurrent parses. Results are
// returned in job order.
func (ix *Indexer) parseAll(ctx context.Context, jobs []job) []parsed {
	out := make([]parsed, len(jobs))
	sem := make(chan struct{}, ix.cfg.Workers)
	var wg sync.WaitGroup

	for i := range jobs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				out[j] = parsed{readErr: ctx.Err()}
			}
			wg.Wait()
			return out
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = parseFile(jobs[i].path, ix.cfg.Parse)
		}(i)
	}
	wg.Wait()
	return out
}

// handle stores one parsed packet and applies the file policy: sources are
// deleted only when a complete packet had every message stored; partial and
// unreadable packets go to the bad path.
func (ix *Indexer) handle(ctx context.Context, j job, p parsed, result *Result) {
	result.PacketsProcessed++

	if p.readErr != nil {
		result.PacketsFailed++
		result.Errors = append(result.Errors, fmt.Sprintf("read %s: %v", j.name, p.readErr))
		return
	}
	if p.err != nil {
		result.PacketsFailed++
		result.Errors = append(result.Errors, fmt.Sprintf("parse %s: %v", j.name, p.err))
		if ix.cfg.DryRun {
			fmt.Fprintf(ix.out, "[ERROR] %s: %v\n", j.name, p.err)
			return
		}
		rec := store.PacketRecord{File: j.name, Hash: p.hash, Size: p.size, Status: store.StatusFailed, RunID: result.RunID}
		if _, err := ix.sink.SaveMessages(ctx, rec, nil); err != nil {
			log.Printf("WARN: Failed to record bad packet %s: %v", j.name, err)
		}
		ix.quarantine(j.path)
		return
	}

	res := p.res
	result.MessagesFound += len(res.Messages)
	if ix.cfg.DryRun {
		ix.list(j, res)
		if !res.Complete() {
			result.PacketsPartial++
		}
		return
	}

	seen, err := ix.sink.PacketSeen(ctx, p.hash)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("lookup %s: %v", j.name, err))
		return
	}
	if seen {
		result.PacketsSkipped++
		logging.Debug("Packet %s already indexed (hash %016x)", j.name, p.hash)
		ix.stored(j, result)
		return
	}

	rec := store.PacketRecord{
		File:         j.name,
		Hash:         p.hash,
		Size:         p.size,
		Status:       store.StatusComplete,
		BytesSkipped: res.BytesSkipped,
		Messages:     len(res.Messages),
		RunID:        result.RunID,
	}
	if !res.Complete() {
		rec.Status = store.StatusPartial
	}
	inserted, err := ix.sink.SaveMessages(ctx, rec, res.Messages)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("store %s: %v", j.name, err))
		return
	}
	result.MessagesInserted += inserted

	if !res.Complete() {
		result.PacketsPartial++
		result.Errors = append(result.Errors, fmt.Sprintf("partial %s: %d msgs recovered, %d bytes skipped: %v",
			j.name, len(res.Messages), res.BytesSkipped, res.Err))
		ix.quarantine(j.path)
		return
	}

	log.Printf("INFO: Indexed %s: %d msgs (inserted %d)", filepath.Base(j.name), len(res.Messages), inserted)
	if inserted == len(res.Messages) {
		ix.stored(j, result)
	}
}

// stored marks a packet whose content is fully in the store.
func (ix *Indexer) stored(j job, result *Result) {
	if j.bundle != nil {
		j.bundle.stored++
		return
	}
	if !ix.cfg.Delete {
		return
	}
	if err := os.Remove(j.path); err != nil {
		log.Printf("WARN: Failed to remove processed packet %s: %v", j.path, err)
		return
	}
	result.FilesDeleted++
}

// list prints the dry-run view of one packet.
func (ix *Indexer) list(j job, res *ftn.Result) {
	fmt.Fprintf(ix.out, "=== %s: %d messages (%s, %s) ===\n",
		filepath.Base(j.name), len(res.Messages), res.Status, res.Header.Orig)
	for _, m := range res.Messages {
		date := "-"
		if m.DateErr == nil {
			date = m.Date.Format(store.DateLayout)
		}
		fmt.Fprintf(ix.out, "%s #%d: date=%s raw=%q area=%q size=%d lines=%d quoted=%.1f from=%q subj=%q\n",
			j.name, m.Index, date, m.DateRaw, m.Area, m.Size, m.Lines, m.QuotedPct, m.From, m.Subject)
	}
	if !res.Complete() {
		fmt.Fprintf(ix.out, "(partial: %d bytes skipped: %v)\n", res.BytesSkipped, res.Err)
	}
}
