package cmd

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/output"
	"github.com/adamancini/geoasset/internal/update"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check the provider and install newer rule-set assets",
		Long: heredoc.Doc(`
			Update checks the configured provider for new releases and installs
			the ones that differ from the recorded versions.

			For release providers only categories whose tag changed are downloaded.
			The custom provider downloads every configured link on each run.
			If nothing changed the command reports the assets as up to date and
			exits successfully.
		`),
		Example: heredoc.Doc(`
			$ geoasset update
			$ geoasset update -o json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.runUpdate(cmd)
		},
	}
}

func (s *Service) runUpdate(cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	stop := s.renderStates()
	err := s.updater.UpdateAsset(ctx, s.cfg.DestinationDir(), s.cfg.CacheDir)
	stop()

	status := output.StatusUpdated
	switch {
	case update.IsNoUpdate(err):
		status = output.StatusUpToDate
	case err != nil:
		return err
	}

	versions, err := s.Versions()
	if err != nil {
		return err
	}

	if s.quiet && !s.out.Structured() {
		return nil
	}
	return s.out.Write(output.UpdateResult{
		Status:   status,
		Provider: s.cfg.Provider.String(),
		Versions: versions,
	})
}
