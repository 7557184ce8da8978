package cmd

import (
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool
)

// buildInfo is set from Execute.
var buildInfo = struct {
	Version string
	Commit  string
	Date    string
}{"dev", "none", "unknown"}

func Execute(version, commit, date string) error {
	buildInfo.Version = version
	buildInfo.Commit = commit
	buildInfo.Date = date

	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "geoasset",
		Short: "Keep geoip and geosite rule-set assets up to date",
		Long: heredoc.Doc(`
			geoasset downloads and tracks the geoip and geosite rule-set databases
			used by sing-box based clients.

			Assets come from a release provider (official, loyalsoldier, chocolate4u)
			or from custom direct links, and can also be imported from a local archive.
			Each category's installed version is recorded next to the rule-set
			directory as <category>.version.txt.
		`),
		Version:       buildInfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := parseOutputFormat()
			return err
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newAssetCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}
