package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/stlalpha/pktindex/internal/ftn"
)

// DefaultFileName is looked up in the working directory when no -config is given.
const DefaultFileName = "pktindex.json"

var errInvalidConfig = errors.New("config: invalid configuration")

// ReportConfig holds defaults for the report and top subcommands.
type ReportConfig struct {
	Title        string `json:"title" yaml:"title"`
	AreaWidth    int    `json:"area_width" yaml:"area_width"`
	TopLimit     int    `json:"top_limit" yaml:"top_limit"`
	KnownAreas   string `json:"known_areas" yaml:"known_areas"`     // area list file, zero-count rows
	OnlyAreas    string `json:"only_areas" yaml:"only_areas"`       // area list file, restricts output
	ExcludeAreas string `json:"exclude_areas" yaml:"exclude_areas"` // area list file, removes rows
}

// Config is the pktindex configuration, loaded from JSON or YAML.
type Config struct {
	InboundPaths []string `json:"inbound_paths" yaml:"inbound_paths"`
	Recursive    bool     `json:"recursive" yaml:"recursive"`

	// Delete removes packets whose messages were all stored.
	Delete bool `json:"delete" yaml:"delete"`
	// BadPath receives partial or unreadable packets; empty leaves them in place.
	BadPath  string `json:"bad_path" yaml:"bad_path"`
	TempPath string `json:"temp_path" yaml:"temp_path"`
	DBPath   string `json:"db_path" yaml:"db_path"`
	Workers  int    `json:"workers" yaml:"workers"`

	// PollSeconds drives the watch loop; 0 = manual only.
	PollSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	// Schedule is an optional cron expression for scheduled indexing.
	Schedule string `json:"schedule" yaml:"schedule"`

	Charset          string `json:"charset" yaml:"charset"`
	QuoteMarkers     string `json:"quote_markers" yaml:"quote_markers"`
	QuoteAttribution bool   `json:"quote_attribution" yaml:"quote_attribution"` // count "SR> text" as quoted
	SkipSeenBy       bool   `json:"skip_seen_by" yaml:"skip_seen_by"`           // SEEN-BY lines not counted
	KludgeByte       int    `json:"kludge_byte" yaml:"kludge_byte"`
	FallbackArea     string `json:"fallback_area" yaml:"fallback_area"`

	LogFile string `json:"log_file" yaml:"log_file"`
	Debug   bool   `json:"debug" yaml:"debug"`

	Report ReportConfig `json:"report" yaml:"report"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InboundPaths: []string{"."},
		TempPath:     filepath.Join(os.TempDir(), "pktindex"),
		DBPath:       "pkt_index.db",
		Workers:      4,
		Charset:      string(ftn.CharsetLatin1),
		QuoteMarkers: ">",
		KludgeByte:   ftn.KludgeByte,
		FallbackArea: ftn.DefaultFallbackArea,
		Report: ReportConfig{
			Title:     "EchoMail area report",
			AreaWidth: 34,
			TopLimit:  10,
		},
	}
}

// Load reads the configuration at path. The format follows the extension:
// .yaml and .yml are YAML, anything else JSON. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			return cfg, nil
		}
		path = DefaultFileName
	}
	log.Printf("INFO: Loading configuration from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("INFO: %s not found. Using default settings.", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		log.Printf("ERROR: Failed to parse config from %s: %v", path, err)
		return Default(), fmt.Errorf("failed to parse config from %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	log.Printf("INFO: Loaded configuration: %d inbound path(s), db=%s", len(cfg.InboundPaths), cfg.DBPath)
	return cfg, nil
}

// Validate checks values that would otherwise fail later at run time.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", errInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", errInvalidConfig)
	}
	if c.PollSeconds < 0 {
		return fmt.Errorf("%w: poll_interval_seconds must not be negative", errInvalidConfig)
	}
	if c.KludgeByte < 0 || c.KludgeByte > 0xFF {
		return fmt.Errorf("%w: kludge_byte %d out of range", errInvalidConfig, c.KludgeByte)
	}
	if _, err := ftn.ParseCharset(c.Charset); err != nil {
		return fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("%w: schedule %q: %v", errInvalidConfig, c.Schedule, err)
		}
	}
	if c.Report.AreaWidth < 0 || c.Report.TopLimit < 0 {
		return fmt.Errorf("%w: report widths and limits must not be negative", errInvalidConfig)
	}
	return nil
}

// ParseOptions converts the parsing settings into ftn.Options.
func (c Config) ParseOptions() (ftn.Options, error) {
	cs, err := ftn.ParseCharset(c.Charset)
	if err != nil {
		return ftn.Options{}, err
	}
	return ftn.Options{
		KludgeByte:       byte(c.KludgeByte),
		QuoteMarkers:     c.QuoteMarkers,
		QuoteAttribution: c.QuoteAttribution,
		SkipSeenBy:       c.SkipSeenBy,
		FallbackArea:     c.FallbackArea,
		Charset:          cs,
	}, nil
}
