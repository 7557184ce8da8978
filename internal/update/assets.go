package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/catalog"
	"github.com/adamancini/geoasset/internal/fetch"
	"github.com/adamancini/geoasset/internal/store"
	"github.com/adamancini/geoasset/internal/types"
)

// ErrBuiltin is returned for operations that only apply to user-added assets.
var ErrBuiltin = errors.New("built-in asset")

// Catalog stores user-added assets. *catalog.Catalog satisfies it.
type Catalog interface {
	Add(ctx context.Context, a catalog.Asset) error
	Get(ctx context.Context, name string) (catalog.Asset, error)
	List(ctx context.Context) ([]catalog.Asset, error)
	Delete(ctx context.Context, name string) error
}

var _ Catalog = (*catalog.Catalog)(nil)

// AssetEntry is one row of the asset listing.
type AssetEntry struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Version string `json:"version" yaml:"version"`
	Builtin bool   `json:"builtin" yaml:"builtin"`
}

// AssetManager handles single-file assets downloaded straight into the
// destination directory.
type AssetManager struct {
	catalog        Catalog
	fetcher        Fetcher
	fs             afero.Fs
	destinationDir string
	versions       *store.VersionStore
	now            func() time.Time
	logger         zerolog.Logger
}

// NewAssetManager creates a manager for destinationDir.
func NewAssetManager(c Catalog, fetcher Fetcher, fsys afero.Fs, destinationDir string) *AssetManager {
	return &AssetManager{
		catalog:        c,
		fetcher:        fetcher,
		fs:             fsys,
		destinationDir: destinationDir,
		versions:       store.NewVersionStore(fsys, filepath.Dir(destinationDir)),
		now:            time.Now,
		logger:         zerolog.Nop(),
	}
}

// WithLogger sets the logger.
func (m *AssetManager) WithLogger(logger zerolog.Logger) *AssetManager {
	m.logger = logger
	return m
}

// List returns the built-in categories followed by catalog assets. Missing
// version files are initialised to types.VersionUnknown.
func (m *AssetManager) List(ctx context.Context) ([]AssetEntry, error) {
	var entries []AssetEntry

	for _, c := range types.BuiltinCategories() {
		v, err := m.versions.ReadOrInit(c.String())
		if err != nil {
			return nil, filesystemError("read version", err)
		}
		entries = append(entries, AssetEntry{Name: c.String(), Version: v, Builtin: true})
	}

	assets, err := m.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		v, err := m.versions.ReadOrInit(a.Name)
		if err != nil {
			return nil, filesystemError("read version", err)
		}
		entries = append(entries, AssetEntry{Name: a.Name, URL: a.URL, Version: v})
	}

	return entries, nil
}

// Add records a new asset and downloads it.
func (m *AssetManager) Add(ctx context.Context, name, url string, progress fetch.ProgressFunc) (AssetEntry, error) {
	if err := validateAssetName(name); err != nil {
		return AssetEntry{}, err
	}

	if err := m.catalog.Add(ctx, catalog.Asset{Name: name, URL: url, CreatedAt: m.now()}); err != nil {
		return AssetEntry{}, err
	}

	entry, err := m.download(ctx, name, url, progress)
	if err != nil {
		// Keep the catalog in step with the files on disk
		if delErr := m.catalog.Delete(ctx, name); delErr != nil {
			m.logger.Warn().Err(delErr).Str("asset", name).Msg("failed to roll back catalog entry")
		}
		return AssetEntry{}, err
	}
	return entry, nil
}

// Update re-downloads a catalog asset from its recorded URL.
func (m *AssetManager) Update(ctx context.Context, name string, progress fetch.ProgressFunc) (AssetEntry, error) {
	if types.IsBuiltin(name) {
		return AssetEntry{}, fmt.Errorf("%w: %s is updated with the provider", ErrBuiltin, name)
	}

	a, err := m.catalog.Get(ctx, name)
	if err != nil {
		return AssetEntry{}, err
	}
	return m.download(ctx, a.Name, a.URL, progress)
}

// Remove deletes an asset's file, version file and catalog row. For a
// built-in category only the version file is removed.
func (m *AssetManager) Remove(ctx context.Context, name string) error {
	if types.IsBuiltin(name) {
		if err := m.versions.Remove(name); err != nil {
			return filesystemError("remove version", err)
		}
		return nil
	}

	if _, err := m.catalog.Get(ctx, name); err != nil {
		return err
	}

	if err := m.fs.Remove(filepath.Join(m.destinationDir, name)); err != nil && !os.IsNotExist(err) {
		return filesystemError("remove "+name, err)
	}
	if err := m.versions.Remove(name); err != nil {
		return filesystemError("remove version", err)
	}
	if err := m.catalog.Delete(ctx, name); err != nil {
		return err
	}

	m.logger.Info().Str("asset", name).Msg("removed")
	return nil
}

func (m *AssetManager) download(ctx context.Context, name, url string, progress fetch.ProgressFunc) (AssetEntry, error) {
	dst := filepath.Join(m.destinationDir, name)

	m.logger.Info().Str("asset", name).Str("url", url).Msg("downloading")
	if err := m.fetcher.Download(ctx, url, dst, progress); err != nil {
		return AssetEntry{}, transferError("download "+name, err)
	}

	version := Timestamp(m.now())
	if err := m.versions.Write(name, version); err != nil {
		return AssetEntry{}, filesystemError("write version", err)
	}

	return AssetEntry{Name: name, URL: url, Version: version}, nil
}

// Timestamp formats t as yyyyMMddHHmmssSSS.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s%03d", t.Format("20060102150405"), t.Nanosecond()/int(time.Millisecond))
}

func validateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("asset name is required")
	}
	if types.IsBuiltin(name) {
		return fmt.Errorf("%w: %s is reserved", ErrBuiltin, name)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}
