package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/logging"
	"github.com/adamancini/geoasset/internal/output"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Install rule-set assets from a local archive",
		Long: heredoc.Doc(`
			Import extracts a local archive into the rule-set directory. The format
			is detected by trying tar.gz, zip and tar.zst in turn; files are placed
			flat, without the archive's directories.

			After a successful import both built-in categories are recorded with
			the version "Custom". The original file is left untouched.
		`),
		Example: heredoc.Doc(`
			$ geoasset import ~/Downloads/rules.tar.gz
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.runImport(cmd, args[0])
		},
	}
}

func (s *Service) runImport(cmd *cobra.Command, source string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	staged, cleanup, err := s.stage(source)
	if err != nil {
		return err
	}
	defer cleanup()

	stop := s.renderStates()
	err = s.updater.ImportFile(ctx, s.cfg.DestinationDir(), staged)
	stop()
	if err != nil {
		return err
	}

	versions, err := s.Versions()
	if err != nil {
		return err
	}

	if s.quiet && !s.out.Structured() {
		return nil
	}
	return s.out.Write(output.UpdateResult{Status: output.StatusImported, Versions: versions})
}

// stage copies source into a per-run directory under the cache dir so the
// import consumes the copy rather than the user's file.
func (s *Service) stage(source string) (string, func(), error) {
	in, err := os.Open(source)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer func() { _ = in.Close() }()

	dir := filepath.Join(s.cfg.CacheDir, "import-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("cmd").Err(err).Str("dir", dir).Msg("failed to remove staging directory")
		}
	}

	staged := filepath.Join(dir, filepath.Base(source))
	out, err := os.Create(staged)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage %s: %w", source, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to stage %s: %w", source, err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage %s: %w", source, err)
	}

	return staged, cleanup, nil
}
