package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./oai-harvest.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing harvest source configuration files"`
	LicensesFile      string `long:"licenses-file" env:"LICENSES_FILE" description:"Path to a license registry YAML file (built-in registry used when empty)"`
	ArchiveDir        string `long:"archive-dir" env:"ARCHIVE_DIR" default:"./archive" description:"Directory for archived raw record XML"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for harvest processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Harvesting configuration
	MetadataPrefix      string `long:"metadata-prefix" env:"METADATA_PREFIX" default:"oai_dc" description:"Default OAI-PMH metadata prefix requested from remote endpoints"`
	RequestTimeout      int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"60" description:"Timeout in seconds for a single OAI-PMH request"`
	MaxRetries          int    `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Maximum HTTP retries per OAI-PMH request"`
	VocabDomain         string `long:"vocab-domain" env:"VOCAB_DOMAIN" default:"http://www.yso.fi" description:"URI prefix of the controlled vocabulary resolved to tag labels"`
	AttachFileResources bool   `long:"attach-file-resources" env:"ATTACH_FILE_RESOURCES" description:"Attach file descriptors extracted from format fields to datasets"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"OAI Harvest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Helsinki)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		SourcesDir:          raw.SourcesDir,
		LicensesFile:        raw.LicensesFile,
		ArchiveDir:          raw.ArchiveDir,
		Port:                raw.Port,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		MetadataPrefix:      raw.MetadataPrefix,
		RequestTimeout:      raw.RequestTimeout,
		MaxRetries:          raw.MaxRetries,
		VocabDomain:         raw.VocabDomain,
		AttachFileResources: raw.AttachFileResources,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
