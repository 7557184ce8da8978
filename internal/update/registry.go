package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/archive"
	"github.com/adamancini/geoasset/internal/store"
	"github.com/adamancini/geoasset/internal/types"
)

const (
	ruleSetBranch  = "rule-set"
	unstableSuffix = "-unstable"

	checkWeight    = 5.0
	downloadWeight = 60.0
	extractWeight  = 25.0
)

// RegistryStrategy tracks GitHub release tags of rule-set repositories and
// installs their rule-set branch tarballs.
type RegistryStrategy struct {
	provider        types.Provider
	stableOnly      bool
	codeloadBaseURL string
	sources         []Source

	fetcher        Fetcher
	unpacker       Unpacker
	versions       *store.VersionStore
	fs             afero.Fs
	destinationDir string
	cacheDir       string
	progress       ProgressSink
	logger         zerolog.Logger
}

// RegistryOptions configures a RegistryStrategy.
type RegistryOptions struct {
	Provider        types.Provider
	StableOnly      bool
	CodeloadBaseURL string
	DestinationDir  string
	CacheDir        string
}

// NewRegistryStrategy creates a strategy for a registry provider.
func NewRegistryStrategy(opts RegistryOptions, fetcher Fetcher, unpacker Unpacker, versions *store.VersionStore, fsys afero.Fs) *RegistryStrategy {
	return &RegistryStrategy{
		provider:        opts.Provider,
		stableOnly:      opts.StableOnly,
		codeloadBaseURL: strings.TrimSuffix(opts.CodeloadBaseURL, "/"),
		sources:         SourcesFor(opts.Provider),
		fetcher:         fetcher,
		unpacker:        unpacker,
		versions:        versions,
		fs:              fsys,
		destinationDir:  opts.DestinationDir,
		cacheDir:        opts.CacheDir,
		progress:        func(float64) {},
		logger:          zerolog.Nop(),
	}
}

// WithProgress sets the sink receiving progress increments.
func (s *RegistryStrategy) WithProgress(sink ProgressSink) *RegistryStrategy {
	if sink != nil {
		s.progress = sink
	}
	return s
}

// WithLogger sets the logger.
func (s *RegistryStrategy) WithLogger(logger zerolog.Logger) *RegistryStrategy {
	s.logger = logger
	return s
}

// Check queries the latest release of every source. A source is pending when
// its remote tag is non-empty and differs from the stored tag of its first
// category.
func (s *RegistryStrategy) Check(ctx context.Context) ([]UpdateInfo, error) {
	var pending []UpdateInfo

	for _, src := range s.sources {
		tag, err := s.fetcher.LatestTag(ctx, src.Repo)
		if err != nil {
			return nil, networkError("check "+src.Repo, err)
		}

		current, err := s.versions.Read(src.Categories[0])
		if err != nil {
			return nil, filesystemError("read version", err)
		}

		if tag == "" || tag == current {
			s.logger.Debug().Str("repo", src.Repo).Str("version", current).Msg("up to date")
			continue
		}

		s.logger.Info().Str("repo", src.Repo).Str("current", current).Str("latest", tag).Msg("update available")
		pending = append(pending, Remote{Source: src, NewVersion: tag})
		s.progress(checkWeight)
	}

	return pending, nil
}

// PerformUpdate downloads every pending tarball, then extracts them in order,
// recording each source's tag as soon as its files are in place.
func (s *RegistryStrategy) PerformUpdate(ctx context.Context, updates []UpdateInfo) (err error) {
	remotes := make([]Remote, 0, len(updates))
	for _, u := range updates {
		r, ok := u.(Remote)
		if !ok {
			return fmt.Errorf("registry strategy cannot apply %T", u)
		}
		remotes = append(remotes, r)
	}
	if len(remotes) == 0 {
		return nil
	}

	if err := s.fs.MkdirAll(s.cacheDir, 0755); err != nil {
		return filesystemError("create cache directory", err)
	}

	var temps []string
	defer func() {
		if cleanupErr := removeAll(s.fs, temps); cleanupErr != nil {
			s.logger.Warn().Err(cleanupErr).Msg("failed to remove temporary files")
		}
	}()

	step := downloadWeight / float64(len(remotes))
	for _, r := range remotes {
		dst := filepath.Join(s.cacheDir, s.cacheName(r))
		temps = append(temps, dst)

		url := s.tarballURL(r.Source.Repo)
		s.logger.Info().Str("url", url).Msg("downloading")
		if err := s.fetcher.Download(ctx, url, dst, nil); err != nil {
			return transferError("download "+r.Source.Repo, err)
		}
		s.progress(step)
	}

	step = extractWeight / float64(len(remotes))
	for i, r := range remotes {
		if err := s.unpacker.Extract(ctx, archive.FormatTarGzip, temps[i], s.destinationDir); err != nil {
			return extractionError("extract "+r.Source.Repo, err)
		}
		if err := s.versions.WriteAll(r.Source.Categories, r.NewVersion); err != nil {
			return filesystemError("write version", err)
		}
		s.logger.Info().Str("repo", r.Source.Repo).Str("version", r.NewVersion).Msg("installed")
		s.progress(step)
	}

	return nil
}

// branch picks rule-set-unstable for geosite repositories of providers that
// publish one.
func (s *RegistryStrategy) branch(repo string) string {
	if !s.stableOnly && s.provider.HasUnstableBranch() && strings.HasSuffix(repo, "sing-geosite") {
		return ruleSetBranch + unstableSuffix
	}
	return ruleSetBranch
}

func (s *RegistryStrategy) tarballURL(repo string) string {
	return fmt.Sprintf("%s/%s/tar.gz/refs/heads/%s", s.codeloadBaseURL, repo, s.branch(repo))
}

func (s *RegistryStrategy) cacheName(r Remote) string {
	return fmt.Sprintf("%s-%s.tmp", strings.ReplaceAll(r.Source.Repo, "/", "_"), r.NewVersion)
}

// removeAll deletes files, ignoring those already gone.
func removeAll(fsys afero.Fs, paths []string) error {
	var result *multierror.Error
	for _, p := range paths {
		if err := fsys.Remove(p); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
