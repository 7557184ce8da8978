package update

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/adamancini/geoasset/internal/archive"
	"github.com/adamancini/geoasset/internal/store"
	"github.com/adamancini/geoasset/internal/types"
)

// importFormats is the fallback order for manually imported archives.
var importFormats = []archive.Format{archive.FormatTarGzip, archive.FormatZip, archive.FormatTarZstd}

// Settings selects the update strategy.
type Settings struct {
	Provider        types.Provider
	StableOnly      bool
	CustomLinks     []string
	CodeloadBaseURL string
}

// Updater runs one update or import at a time and publishes its state.
type Updater struct {
	settings  Settings
	fetcher   Fetcher
	unpacker  Unpacker
	fs        afero.Fs
	publisher *Publisher
	running   sync.Mutex
	logger    zerolog.Logger
}

// NewUpdater creates an updater. Version files are kept next to the
// destination directory passed to each call.
func NewUpdater(settings Settings, fetcher Fetcher, unpacker Unpacker, fsys afero.Fs) *Updater {
	return &Updater{
		settings:  settings,
		fetcher:   fetcher,
		unpacker:  unpacker,
		fs:        fsys,
		publisher: NewPublisher(),
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the logger.
func (u *Updater) WithLogger(logger zerolog.Logger) *Updater {
	u.logger = logger
	return u
}

// Subscribe delivers state changes until cancel is called.
func (u *Updater) Subscribe(buffer int) (<-chan State, func()) {
	return u.publisher.Subscribe(buffer)
}

// State returns the latest published state.
func (u *Updater) State() State {
	return u.publisher.Current()
}

// Versions returns the version store for destinationDir.
func (u *Updater) Versions(destinationDir string) *store.VersionStore {
	return store.NewVersionStore(u.fs, filepath.Dir(destinationDir))
}

// UpdateAsset checks the configured provider and installs what changed.
// It returns ErrNoUpdate when nothing is pending.
func (u *Updater) UpdateAsset(ctx context.Context, destinationDir, cacheDir string) error {
	if !u.running.TryLock() {
		return ErrBusy
	}
	defer u.running.Unlock()

	run := u.begin(PhaseChecking)
	strategy := u.strategy(destinationDir, cacheDir, run.advance)

	u.logger.Info().Str("provider", u.settings.Provider.String()).Msg("checking for updates")
	updates, err := strategy.Check(ctx)
	if err != nil {
		return run.finish(err)
	}
	if len(updates) == 0 {
		u.logger.Info().Msg("assets are up to date")
		return run.finish(ErrNoUpdate)
	}

	run.enter(PhaseUpdating)
	if err := strategy.PerformUpdate(ctx, updates); err != nil {
		return run.finish(err)
	}

	u.logger.Info().Int("updated", len(updates)).Msg("update complete")
	return run.finish(nil)
}

// ImportFile extracts a local archive into destinationDir, trying tar.gz,
// zip and tar.zst in turn. On success every built-in category is marked as
// imported and sourceFile is deleted.
func (u *Updater) ImportFile(ctx context.Context, destinationDir, sourceFile string) error {
	if !u.running.TryLock() {
		return ErrBusy
	}
	defer u.running.Unlock()

	run := u.begin(PhaseUpdating)

	if err := u.unpacker.TryUnpack(ctx, sourceFile, destinationDir, importFormats...); err != nil {
		if ctx.Err() != nil {
			return run.finish(err)
		}
		return run.finish(extractionError("import "+filepath.Base(sourceFile), err))
	}
	run.advance(extractWeight + downloadWeight)

	if err := u.Versions(destinationDir).WriteAll(builtinNames(), types.VersionImported); err != nil {
		return run.finish(filesystemError("write version", err))
	}

	if err := u.fs.Remove(sourceFile); err != nil {
		u.logger.Warn().Err(err).Str("file", sourceFile).Msg("failed to remove imported file")
	}

	u.logger.Info().Str("file", sourceFile).Msg("import complete")
	return run.finish(nil)
}

func (u *Updater) strategy(destinationDir, cacheDir string, sink ProgressSink) Strategy {
	versions := u.Versions(destinationDir)

	if u.settings.Provider.IsCustom() {
		return NewCustomStrategy(u.settings.CustomLinks, destinationDir, cacheDir, u.fetcher, u.unpacker, versions, u.fs).
			WithProgress(sink).
			WithLogger(u.logger)
	}

	return NewRegistryStrategy(RegistryOptions{
		Provider:        u.settings.Provider,
		StableOnly:      u.settings.StableOnly,
		CodeloadBaseURL: u.settings.CodeloadBaseURL,
		DestinationDir:  destinationDir,
		CacheDir:        cacheDir,
	}, u.fetcher, u.unpacker, versions, u.fs).
		WithProgress(sink).
		WithLogger(u.logger)
}

// invocation tracks the phase and accumulated progress of one run.
type invocation struct {
	publisher *Publisher
	phase     Phase
	progress  float64
}

func (u *Updater) begin(phase Phase) *invocation {
	u.publisher.Publish(State{Phase: PhaseIdle})
	run := &invocation{publisher: u.publisher, phase: phase}
	run.publish(nil)
	return run
}

func (r *invocation) enter(phase Phase) {
	r.phase = phase
	r.publish(nil)
}

func (r *invocation) advance(delta float64) {
	r.progress += delta
	r.publish(nil)
}

func (r *invocation) finish(err error) error {
	r.phase = PhaseDone
	if err == nil {
		r.progress = 100
	}
	r.publish(err)
	return err
}

func (r *invocation) publish(err error) {
	r.publisher.Publish(State{Phase: r.phase, Progress: r.progress, Err: err})
}

// IsNoUpdate reports whether err means there was nothing to do.
func IsNoUpdate(err error) bool {
	return errors.Is(err, ErrNoUpdate)
}
