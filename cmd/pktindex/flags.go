package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stlalpha/pktindex/internal/config"
	"github.com/stlalpha/pktindex/internal/logging"
	"github.com/stlalpha/pktindex/internal/store"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	debug      bool
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "", "Config file, JSON or YAML (default: "+config.DefaultFileName+" if present)")
	fs.StringVar(&g.dbPath, "db", "", "SQLite DB file (overrides config)")
	fs.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	return g
}

// setup loads the configuration, applies global overrides and starts file
// logging. The returned closer stops file logging.
func (g *globalFlags) setup() (config.Config, io.Closer, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	logging.DebugEnabled = g.debug || cfg.Debug || os.Getenv("DEBUG") == "1"

	closer, err := logging.Setup(cfg.LogFile)
	if err != nil {
		return cfg, nil, err
	}
	logging.Debug("Config: db=%s paths=%v workers=%d", cfg.DBPath, cfg.InboundPaths, cfg.Workers)
	return cfg, closer, nil
}

// openStore opens the configured database.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return st, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
