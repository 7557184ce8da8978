// Package update implements the rule-set asset updater: release checks,
// downloads, extraction and version bookkeeping for the geoip and geosite
// categories, plus manual import and user-added single assets.
package update

import (
	"context"

	"github.com/adamancini/geoasset/internal/archive"
	"github.com/adamancini/geoasset/internal/fetch"
	"github.com/adamancini/geoasset/internal/types"
)

// UpdateInfo describes one pending update. It is either Remote or Direct.
type UpdateInfo interface {
	isUpdateInfo()
}

// Remote is a pending release of a registry source.
type Remote struct {
	Source     Source
	NewVersion string
}

// Direct is a pending custom link.
type Direct struct {
	Link string
}

func (Remote) isUpdateInfo() {}
func (Direct) isUpdateInfo() {}

// Source is a release repository and the categories its tag is recorded under.
type Source struct {
	Repo       string
	Categories []string
}

// SourcesFor maps a registry provider onto its sources. A single repository
// covers every built-in category; otherwise repositories map onto categories
// in order.
func SourcesFor(provider types.Provider) []Source {
	repos := provider.Repositories()
	categories := builtinNames()

	if len(repos) == 1 {
		return []Source{{Repo: repos[0], Categories: categories}}
	}

	sources := make([]Source, 0, len(repos))
	for i, repo := range repos {
		if i >= len(categories) {
			break
		}
		sources = append(sources, Source{Repo: repo, Categories: []string{categories[i]}})
	}
	return sources
}

func builtinNames() []string {
	builtins := types.BuiltinCategories()
	names := make([]string, len(builtins))
	for i, c := range builtins {
		names[i] = c.String()
	}
	return names
}

// Strategy checks for and applies updates.
type Strategy interface {
	Check(ctx context.Context) ([]UpdateInfo, error)
	PerformUpdate(ctx context.Context, updates []UpdateInfo) error
}

// Fetcher is the HTTP side used by strategies. *fetch.Client satisfies it.
type Fetcher interface {
	LatestTag(ctx context.Context, repo string) (string, error)
	Download(ctx context.Context, url, dst string, progress fetch.ProgressFunc) error
}

// Unpacker extracts archives. *archive.Extractor satisfies it.
type Unpacker interface {
	Extract(ctx context.Context, format archive.Format, archive, dest string) error
	TryUnpack(ctx context.Context, archive, dest string, formats ...archive.Format) error
}

// ProgressSink receives progress increments in percentage points.
type ProgressSink func(delta float64)

var (
	_ Fetcher  = (*fetch.Client)(nil)
	_ Unpacker = (*archive.Extractor)(nil)
)
