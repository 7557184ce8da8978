package cmd

import (
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

// completionGenerators maps each supported shell to its cobra generator.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error {
		return root.GenBashCompletionV2(w, true)
	},
	"zsh": func(root *cobra.Command, w io.Writer) error {
		return root.GenZshCompletion(w)
	},
	"fish": func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	},
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: heredoc.Doc(`
			Print a completion script for geoasset. Provider names complete for
			init --provider and output formats for --output.

			Bash:
			  $ source <(geoasset completion bash)

			Zsh (with compinit enabled):
			  $ geoasset completion zsh > "${fpath[1]}/_geoasset"

			Fish:
			  $ geoasset completion fish > ~/.config/fish/completions/geoasset.fish

			PowerShell:
			  PS> geoasset completion powershell | Out-String | Invoke-Expression
		`),
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}
