package update

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/store"
	"github.com/adamancini/geoasset/internal/types"
)

// CustomStrategy installs archives from user-supplied direct links. Links
// carry no version information, so every link is always pending.
type CustomStrategy struct {
	links []string

	fetcher        Fetcher
	unpacker       Unpacker
	versions       *store.VersionStore
	fs             afero.Fs
	destinationDir string
	cacheDir       string
	progress       ProgressSink
	logger         zerolog.Logger
}

// NewCustomStrategy creates a strategy over links.
func NewCustomStrategy(links []string, destinationDir, cacheDir string, fetcher Fetcher, unpacker Unpacker, versions *store.VersionStore, fsys afero.Fs) *CustomStrategy {
	return &CustomStrategy{
		links:          links,
		fetcher:        fetcher,
		unpacker:       unpacker,
		versions:       versions,
		fs:             fsys,
		destinationDir: destinationDir,
		cacheDir:       cacheDir,
		progress:       func(float64) {},
		logger:         zerolog.Nop(),
	}
}

// WithProgress sets the sink receiving progress increments.
func (s *CustomStrategy) WithProgress(sink ProgressSink) *CustomStrategy {
	if sink != nil {
		s.progress = sink
	}
	return s
}

// WithLogger sets the logger.
func (s *CustomStrategy) WithLogger(logger zerolog.Logger) *CustomStrategy {
	s.logger = logger
	return s
}

func (s *CustomStrategy) Check(ctx context.Context) ([]UpdateInfo, error) {
	pending := make([]UpdateInfo, 0, len(s.links))
	for _, link := range s.links {
		pending = append(pending, Direct{Link: link})
	}
	return pending, nil
}

func (s *CustomStrategy) PerformUpdate(ctx context.Context, updates []UpdateInfo) error {
	links := make([]string, 0, len(updates))
	for _, u := range updates {
		d, ok := u.(Direct)
		if !ok {
			return fmt.Errorf("custom strategy cannot apply %T", u)
		}
		links = append(links, d.Link)
	}
	if len(links) == 0 {
		return nil
	}

	s.progress(35)

	if err := s.fs.MkdirAll(s.cacheDir, 0755); err != nil {
		return filesystemError("create cache directory", err)
	}

	var temps []string
	defer func() {
		if cleanupErr := removeAll(s.fs, temps); cleanupErr != nil {
			s.logger.Warn().Err(cleanupErr).Msg("failed to remove temporary files")
		}
	}()

	for i, link := range links {
		dst := filepath.Join(s.cacheDir, fmt.Sprintf("custom_asset_%d.tmp", i))
		temps = append(temps, dst)

		s.logger.Info().Str("url", link).Msg("downloading")
		if err := s.fetcher.Download(ctx, link, dst, nil); err != nil {
			return transferError("download "+link, err)
		}
	}
	s.progress(25)

	for i, path := range temps {
		if err := s.unpacker.TryUnpack(ctx, path, s.destinationDir); err != nil {
			return extractionError("extract "+links[i], err)
		}
	}
	s.progress(25)

	if err := s.versions.WriteAll(builtinNames(), types.VersionCustomLinks); err != nil {
		return filesystemError("write version", err)
	}
	s.progress(15)

	return nil
}
