// Package cmd contains the CLI command implementations.
package cmd

import (
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/archive"
	"github.com/adamancini/geoasset/internal/catalog"
	"github.com/adamancini/geoasset/internal/config"
	"github.com/adamancini/geoasset/internal/fetch"
	"github.com/adamancini/geoasset/internal/logging"
	"github.com/adamancini/geoasset/internal/output"
	"github.com/adamancini/geoasset/internal/types"
	"github.com/adamancini/geoasset/internal/update"
)

// requestTimeout bounds a single HTTP request, downloads included.
const requestTimeout = 10 * time.Minute

// Service wires configuration to the updater and its collaborators.
type Service struct {
	cfg     *config.Config
	fs      afero.Fs
	client  *fetch.Client
	updater *update.Updater
	catalog *catalog.Catalog
	out     *output.Writer
	stderr  io.Writer
	quiet   bool
}

// ServiceOptions carries the global flags.
type ServiceOptions struct {
	ConfigPath   string
	OutputFormat string
	Verbose      bool
	Quiet        bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// NewService loads the configuration, initialises logging and builds the
// updater. Close must be called when done.
func NewService(opts ServiceOptions) (*Service, error) {
	cfg, path, err := config.Resolve(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	format, err := output.ParseFormat(opts.OutputFormat)
	if err != nil {
		return nil, err
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	if err := initLogging(cfg, opts, stderr); err != nil {
		return nil, err
	}

	if path != "" {
		logging.Debug("cmd").Str("path", path).Msg("using config")
	} else {
		logging.Debug("cmd").Msg("no config file found, using defaults")
	}

	fs := afero.NewOsFs()
	client, err := fetch.NewClient(fetch.Options{
		UserAgent:   cfg.UserAgent,
		GitHubToken: cfg.GitHubToken,
		APIBaseURL:  cfg.APIBaseURL,
		Timeout:     requestTimeout,
		SOCKS5:      cfg.Proxy.SOCKS5,
		Username:    cfg.Proxy.Username,
		Password:    cfg.Proxy.Password,
	})
	if err != nil {
		return nil, err
	}
	client = client.WithFs(fs).WithLogger(logging.For("fetch"))

	extractor := archive.NewExtractor(fs).WithLogger(logging.For("archive"))

	updater := update.NewUpdater(update.Settings{
		Provider:        cfg.Provider,
		StableOnly:      cfg.StableOnly,
		CustomLinks:     cfg.CustomLinks,
		CodeloadBaseURL: cfg.CodeloadBaseURL,
	}, client, extractor, fs).WithLogger(logging.For("update"))

	return &Service{
		cfg:     cfg,
		fs:      fs,
		client:  client,
		updater: updater,
		out:     output.NewWriter(stdout, format),
		stderr:  stderr,
		quiet:   opts.Quiet,
	}, nil
}

// initLogging sends warnings to the console unless --verbose or --quiet
// say otherwise. The log file follows the configured level.
func initLogging(cfg *config.Config, opts ServiceOptions, stderr io.Writer) error {
	level := cfg.Log.Level
	consoleLevel := types.LogLevelWarn
	switch {
	case opts.Verbose:
		level = types.LogLevelDebug
		consoleLevel = types.LogLevelDebug
	case opts.Quiet:
		consoleLevel = types.LogLevelError
	}

	return logging.Init(logging.Options{
		Level:        level,
		ConsoleLevel: consoleLevel,
		Console:      stderr,
		File:         cfg.Log.File,
	})
}

// Assets opens the catalog and returns a manager for single-file assets.
func (s *Service) Assets() (*update.AssetManager, error) {
	if s.catalog == nil {
		c, err := catalog.Open(s.cfg.CatalogPath())
		if err != nil {
			return nil, err
		}
		s.catalog = c
	}
	return update.NewAssetManager(s.catalog, s.client, s.fs, s.cfg.DestinationDir()).
		WithLogger(logging.For("assets")), nil
}

// Versions snapshots the built-in category versions.
func (s *Service) Versions() (map[string]string, error) {
	names := make([]string, 0, 2)
	for _, c := range types.BuiltinCategories() {
		names = append(names, c.String())
	}
	return s.updater.Versions(s.cfg.DestinationDir()).Snapshot(names)
}

// Close releases the catalog and log file.
func (s *Service) Close() {
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			logging.Warn("cmd").Err(err).Msg("failed to close catalog")
		}
	}
	logging.Close()
}
