package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/logging"
	"github.com/adamancini/geoasset/internal/output"
	"github.com/adamancini/geoasset/internal/watch"
)

func newListCmd() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List assets and their installed versions",
		Long: heredoc.Doc(`
			List shows the built-in geoip and geosite categories followed by
			user-added assets, each with its recorded version. Categories without
			a version file are recorded as "Unknown".

			With --watch the listing is printed again whenever the asset
			directory changes, until interrupted. Removing a version file
			by hand prints two listings: one for the removal and one for
			the "Unknown" record written in its place.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if watchMode {
				return svc.watchList(cmd)
			}
			return svc.runList(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Print the listing again whenever assets change")

	return cmd
}

func (s *Service) runList(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	assets, err := s.Assets()
	if err != nil {
		return err
	}

	entries, err := assets.List(ctx)
	if err != nil {
		return err
	}

	list := output.AssetList{Provider: s.cfg.Provider.String()}
	for _, e := range entries {
		list.Assets = append(list.Assets, output.AssetRow{
			Name:    e.Name,
			Version: e.Version,
			Builtin: e.Builtin,
			URL:     e.URL,
		})
	}
	return s.out.Write(list)
}

func (s *Service) watchList(cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	dest := s.cfg.DestinationDir()
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	// The first listing initialises missing version files; watching starts
	// afterwards so those writes do not trigger a second listing.
	if err := s.runList(ctx); err != nil {
		return err
	}

	w, err := watch.New(watch.Options{
		Ignore: isCatalogFile,
		Logger: logging.For("watch"),
	}, s.cfg.AssetsDir, dest)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if !s.out.Structured() {
				_, _ = fmt.Fprintln(s.out.Target())
			}
			if err := s.runList(ctx); err != nil {
				return err
			}
		}
	}
}

// isCatalogFile matches the SQLite database and its journal files, which
// change on every listing.
func isCatalogFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "assets.db")
}
