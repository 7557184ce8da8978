package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/config"
	"github.com/adamancini/geoasset/internal/interactive"
	"github.com/adamancini/geoasset/internal/templates"
)

const defaultTemplate = "official"

type initOptions struct {
	template    string
	path        string
	force       bool
	interactive bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file from a provider template",
		Long: heredoc.Doc(`
			Init writes a starter config file for one of the providers:

			  official      SagerNet sing-geoip and sing-geosite releases
			  loyalsoldier  Loyalsoldier flavoured rule sets
			  chocolate4u   Iran rule sets, one repository for both categories
			  custom        archives from direct links

			Without --provider a menu is shown on a terminal; otherwise the
			official template is used. The file goes to --config when given,
			else to $XDG_CONFIG_HOME/geoasset/config.yaml.
		`),
		Example: heredoc.Doc(`
			$ geoasset init
			$ geoasset init --provider loyalsoldier
			$ geoasset init -p custom --config ./geoasset.yaml --force
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = configPath
			opts.interactive = interactive.IsTerminal()
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "provider", "p", "", "Provider template to start from")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, tmpl := range templates.All() {
			completions = append(completions, fmt.Sprintf("%s\t%s", tmpl.Provider, tmpl.Description()))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(stdin io.Reader, stdout io.Writer, opts initOptions) error {
	reader := bufio.NewReader(stdin)

	path := opts.path
	if path == "" {
		path = config.DefaultPath()
	}
	path = expandHomePath(path)

	if _, err := os.Stat(path); err == nil && !opts.force {
		if !opts.interactive {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		_, _ = fmt.Fprintf(stdout, "Config already exists at %s\nOverwrite? [y/N]: ", path)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			_, _ = fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	name := opts.template
	if name == "" {
		name = defaultTemplate
		if opts.interactive {
			selected, err := selectTemplate(reader, stdout)
			if err != nil {
				return err
			}
			name = selected
		}
	}

	tmpl, err := templates.For(name)
	if err != nil {
		return fmt.Errorf("unknown provider %q: %w", name, err)
	}

	// Templates are YAML whatever the target file is called.
	if _, err := config.Parse(tmpl.Content, "config.yaml"); err != nil {
		return fmt.Errorf("invalid template for %s: %w", tmpl.Provider, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, tmpl.Content, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "Created %s (%s)\n", path, tmpl.Provider)
	_, _ = fmt.Fprintln(stdout, "\nNext steps:")
	_, _ = fmt.Fprintln(stdout, "  1. Edit the config to customize")
	_, _ = fmt.Fprintln(stdout, "  2. Run 'geoasset update' to download the assets")

	return nil
}

// selectTemplate shows a numbered menu of the embedded templates.
func selectTemplate(reader *bufio.Reader, stdout io.Writer) (string, error) {
	all := templates.All()

	_, _ = fmt.Fprintln(stdout, "Select a provider:")
	for i, tmpl := range all {
		_, _ = fmt.Fprintf(stdout, "  %d. %-13s %s\n", i+1, tmpl.Provider, tmpl.Description())
	}
	_, _ = fmt.Fprintf(stdout, "Select [1-%d]: ", len(all))

	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultTemplate, nil
	}

	num, err := strconv.Atoi(answer)
	if err != nil || num < 1 || num > len(all) {
		return "", fmt.Errorf("invalid selection: %s", answer)
	}
	return all[num-1].Provider.String(), nil
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
