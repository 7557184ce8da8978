package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/output"
)

// versionInfo is the structured form of `geoasset version`.
type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("geoasset version %s (commit %s, built %s, %s)", v.Version, v.Commit, v.Date, v.Go)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat()
			if err != nil {
				return err
			}
			info := versionInfo{
				Version: buildInfo.Version,
				Commit:  buildInfo.Commit,
				Date:    buildInfo.Date,
				Go:      runtime.Version(),
			}
			return output.NewWriter(cmd.OutOrStdout(), format).Write(info)
		},
	}
}
