package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/interactive"
	"github.com/adamancini/geoasset/internal/output"
	"github.com/adamancini/geoasset/internal/types"
)

func newAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage single-file assets downloaded from direct links",
		Long: heredoc.Doc(`
			Single-file assets are downloaded as is into the rule-set directory.
			Their version is the time of the last download.
		`),
	}

	cmd.AddCommand(newAssetAddCmd())
	cmd.AddCommand(newAssetUpdateCmd())
	cmd.AddCommand(newAssetRemoveCmd())

	return cmd
}

func newAssetAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Download a new asset",
		Example: heredoc.Doc(`
			$ geoasset asset add geosite-ads.srs https://example.com/geosite-ads.srs
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			assets, err := svc.Assets()
			if err != nil {
				return err
			}

			progress, done := svc.byteProgress("Downloading " + args[0])
			entry, err := assets.Add(ctx, args[0], args[1], progress)
			done()
			if err != nil {
				return err
			}

			return svc.writeAssetResult(output.AssetResult{Action: "added", Name: entry.Name, Version: entry.Version})
		},
	}
}

func newAssetUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <name>...",
		Short: "Download assets again from their recorded links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			assets, err := svc.Assets()
			if err != nil {
				return err
			}

			for _, name := range args {
				progress, done := svc.byteProgress("Downloading " + name)
				entry, err := assets.Update(ctx, name, progress)
				done()
				if err != nil {
					return err
				}
				if err := svc.writeAssetResult(output.AssetResult{Action: "updated", Name: entry.Name, Version: entry.Version}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAssetRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove <name>...",
		Aliases: []string{"rm"},
		Short:   "Remove assets",
		Long: heredoc.Doc(`
			Remove deletes an asset's file, its version file and its catalog entry.
			For the built-in geoip and geosite categories only the version file
			is removed, so the next update reinstalls them.

			On a terminal each removal is confirmed unless --yes is given.
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if !yes && interactive.IsTerminal() {
				prompter := interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
				selected, proceed := prompter.SelectRemovals(args, types.IsBuiltin)
				if !proceed {
					return nil
				}
				names = selected
			}
			if len(names) == 0 {
				return nil
			}

			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			assets, err := svc.Assets()
			if err != nil {
				return err
			}

			var result *multierror.Error
			for _, name := range names {
				if err := assets.Remove(ctx, name); err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
					continue
				}
				if err := svc.writeAssetResult(output.AssetResult{Action: "removed", Name: name}); err != nil {
					return err
				}
			}
			return result.ErrorOrNil()
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Remove without asking for confirmation")

	return cmd
}

// byteProgress returns a download callback and a function finishing the bar.
func (s *Service) byteProgress(label string) (func(written, total int64), func()) {
	progress := s.newProgress()
	if progress == nil {
		return nil, func() {}
	}
	return progress.Bytes(label), progress.Done
}

func (s *Service) writeAssetResult(r output.AssetResult) error {
	if s.quiet && !s.out.Structured() {
		return nil
	}
	return s.out.Write(r)
}
