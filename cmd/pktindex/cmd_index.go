package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stlalpha/pktindex/internal/config"
	"github.com/stlalpha/pktindex/internal/indexer"
)

// indexFlags override the indexer settings of the config file.
type indexFlags struct {
	paths     stringList
	recursive bool
	deleteOK  bool
	badPath   string
	workers   int
}

func addIndexFlags(fs *flag.FlagSet) *indexFlags {
	f := &indexFlags{}
	fs.Var(&f.paths, "path", "Inbound directory to scan (repeatable; default from config)")
	fs.BoolVar(&f.recursive, "recursive", false, "Descend into subdirectories")
	fs.BoolVar(&f.deleteOK, "delete", false, "Delete packets and bundles once every message is stored")
	fs.StringVar(&f.badPath, "bad", "", "Move partial or unreadable packets to this directory")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent packet parsers (default from config)")
	return f
}

// apply copies explicitly set flags and positional paths onto cfg.
func (f *indexFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "recursive":
			cfg.Recursive = f.recursive
		case "delete":
			cfg.Delete = f.deleteOK
		case "bad":
			cfg.BadPath = f.badPath
		case "workers":
			cfg.Workers = f.workers
		}
	})
	paths := append([]string(nil), f.paths...)
	paths = append(paths, fs.Args()...)
	if len(paths) > 0 {
		cfg.InboundPaths = paths
	}
}

func indexerConfig(cfg config.Config) (indexer.Config, error) {
	opts, err := cfg.ParseOptions()
	if err != nil {
		return indexer.Config{}, err
	}
	return indexer.Config{
		Paths:       cfg.InboundPaths,
		Recursive:   cfg.Recursive,
		Delete:      cfg.Delete,
		BadPath:     cfg.BadPath,
		TempPath:    cfg.TempPath,
		Workers:     cfg.Workers,
		PollSeconds: cfg.PollSeconds,
		Parse:       opts,
	}, nil
}

// cmdIndex implements 'pktindex index': one indexing pass.
func cmdIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	g := addGlobalFlags(fs)
	f := addIndexFlags(fs)
	dryRun := fs.Bool("dry-run", false, "List extracted fields; write, delete and move nothing")
	fs.BoolVar(dryRun, "test", false, "Alias for -dry-run")
	quiet := fs.Bool("q", false, "Quiet mode")
	fs.Parse(args)

	cfg, closer, err := g.setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	f.apply(fs, &cfg)

	icfg, err := indexerConfig(cfg)
	if err != nil {
		return err
	}
	icfg.DryRun = *dryRun

	ctx, cancel := signalContext()
	defer cancel()

	var sink indexer.Sink
	if !*dryRun {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		sink = st
	}

	ix, err := indexer.New(icfg, sink, os.Stdout)
	if err != nil {
		return err
	}
	result := ix.RunOnce(ctx)

	if !*quiet {
		fmt.Printf("Index complete: %d packets (%d bundles), %d messages found, %d inserted, %d skipped, %d partial, %d failed, %d files deleted\n",
			result.PacketsFound, result.BundlesExtracted, result.MessagesFound, result.MessagesInserted,
			result.PacketsSkipped, result.PacketsPartial, result.PacketsFailed, result.FilesDeleted)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  ERROR: %s\n", e)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d packet(s) had errors", len(result.Errors))
	}
	return nil
}

// cmdWatch implements 'pktindex watch': index continuously. A cron
// schedule wins over a poll interval; with neither, inbound directories
// are watched for new files.
func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	g := addGlobalFlags(fs)
	f := addIndexFlags(fs)
	poll := fs.Int("poll", -1, "Poll interval in seconds (default from config)")
	schedule := fs.String("schedule", "", "Cron schedule, e.g. \"*/15 * * * *\" (default from config)")
	fs.Parse(args)

	cfg, closer, err := g.setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	f.apply(fs, &cfg)
	if *poll >= 0 {
		cfg.PollSeconds = *poll
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
	}

	icfg, err := indexerConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ix, err := indexer.New(icfg, st, nil)
	if err != nil {
		return err
	}

	switch {
	case cfg.Schedule != "":
		return ix.Schedule(ctx, cfg.Schedule)
	case cfg.PollSeconds > 0:
		indexer.LogResult(ix.RunOnce(ctx))
		ix.Start(ctx)
		return nil
	default:
		log.Printf("INFO: No schedule or poll interval set; watching inbound directories")
		return ix.Watch(ctx)
	}
}
