// Package config collects the settings shared by the rmx commands.
// Values come from defaults, then RMX_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/rapidmidiex/rmxscore/store"
)

type (
	// StoreKind selects the score store used by the server.
	StoreKind string

	Config struct {
		// Base URL of the score server used by clients.
		Server string
		// Listen address of the server.
		Addr string

		Store StoreKind
		// Directory holding the file store snapshot.
		DataDir string
		// Directory exported MIDI files are written to.
		ExportDir      string
		AllowedOrigins []string
		// Quiet period before live watchers receive an update.
		Debounce time.Duration

		DynamoTable    string
		DynamoEndpoint string
		DynamoRegion   string

		// SoundFont for playback. Playback is disabled when empty.
		SoundFont string
		LogFile   string
		Debug     bool
	}
)

const (
	MemoryStore StoreKind = "memory"
	FileStore   StoreKind = "file"
	DynamoStore StoreKind = "dynamo"
)

const envPrefix = "RMX_"

func Default() Config {
	return Config{
		Server:         "http://localhost:8080",
		Addr:           ":8080",
		Store:          FileStore,
		DataDir:        "./data",
		ExportDir:      "./exports",
		AllowedOrigins: []string{"http://localhost:3000"},
		Debounce:       250 * time.Millisecond,
		DynamoTable:    "rmx-scores",
		DynamoRegion:   "localhost",
		LogFile:        "rmx.log",
	}
}

// Load returns the defaults overridden by the environment.
func Load() (Config, error) {
	return FromEnv(Default(), os.LookupEnv)
}

// FromEnv overrides c with RMX_* variables found by lookup.
func FromEnv(c Config, lookup func(string) (string, bool)) (Config, error) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	str("SERVER", &c.Server)
	str("ADDR", &c.Addr)
	str("DATA_DIR", &c.DataDir)
	str("EXPORT_DIR", &c.ExportDir)
	str("DYNAMO_TABLE", &c.DynamoTable)
	str("DYNAMO_ENDPOINT", &c.DynamoEndpoint)
	str("DYNAMO_REGION", &c.DynamoRegion)
	str("SOUND_FONT", &c.SoundFont)
	str("LOG_FILE", &c.LogFile)

	var errs []error
	if v, ok := lookup(envPrefix + "STORE"); ok {
		c.Store = StoreKind(v)
	}
	if v, ok := lookup(envPrefix + "ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(envPrefix + "DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDEBOUNCE: %w", envPrefix, err))
		}
		c.Debounce = d
	}
	if v, ok := lookup(envPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDEBUG: %w", envPrefix, err))
		}
		c.Debug = b
	}
	if err := errors.Join(errs...); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// ClientFlags binds the settings used by the TUI and other clients.
func (c *Config) ClientFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Server, "server", c.Server, "API server base URL")
	fs.StringVar(&c.SoundFont, "sound-font", c.SoundFont, "SoundFont (.sf2) used for playback")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "file debug logs are written to")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "write debug logs")
}

// ServerFlags binds the settings used by the server.
func (c *Config) ServerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar((*string)(&c.Store), "store", string(c.Store), "score store: memory, file or dynamo")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory of the file store")
	fs.StringVar(&c.ExportDir, "export-dir", c.ExportDir, "directory exported files are written to")
	fs.StringSliceVar(&c.AllowedOrigins, "allowed-origins", c.AllowedOrigins, "CORS allowed origins")
	fs.DurationVar(&c.Debounce, "debounce", c.Debounce, "quiet period before live updates are sent")
	fs.StringVar(&c.DynamoTable, "dynamo-table", c.DynamoTable, "DynamoDB table")
	fs.StringVar(&c.DynamoEndpoint, "dynamo-endpoint", c.DynamoEndpoint, "DynamoDB endpoint, ex: http://localhost:8000")
	fs.StringVar(&c.DynamoRegion, "dynamo-region", c.DynamoRegion, "DynamoDB region")
}

func (c Config) Validate() error {
	switch c.Store {
	case MemoryStore, FileStore, DynamoStore:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("negative debounce %s", c.Debounce)
	}
	return nil
}

// SnapshotPath is the file backing the file store.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "scores.gob")
}

// OpenStore builds the store selected by c.Store.
func (c Config) OpenStore() (store.Store, error) {
	switch c.Store {
	case MemoryStore:
		return store.NewMemory(), nil
	case FileStore:
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		return store.OpenFile(c.SnapshotPath())
	case DynamoStore:
		return store.DialDynamo(c.DynamoEndpoint, c.DynamoRegion, c.DynamoTable)
	}
	return nil, fmt.Errorf("unknown store %q", c.Store)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
