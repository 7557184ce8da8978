package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adamancini/geoasset/internal/interactive"
	"github.com/adamancini/geoasset/internal/output"
	"github.com/adamancini/geoasset/internal/update"
)

// newService builds a Service from the global flags.
func newService(cmd *cobra.Command) (*Service, error) {
	return NewService(ServiceOptions{
		ConfigPath:   configPath,
		OutputFormat: outputFormat,
		Verbose:      verbose,
		Quiet:        quiet,
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
	})
}

func parseOutputFormat() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newProgress returns a renderer on stderr, or nil when nothing should be drawn.
func (s *Service) newProgress() *output.Progress {
	if s.quiet || s.out.Structured() {
		return nil
	}
	return output.NewProgress(s.stderr, s.stderr == os.Stderr && isStderrTerminal())
}

func isStderrTerminal() bool {
	return interactive.IsFileTerminal(os.Stderr)
}

// renderStates draws updater states until the returned stop function is called.
func (s *Service) renderStates() func() {
	progress := s.newProgress()
	if progress == nil {
		return func() {}
	}

	states, cancel := s.updater.Subscribe(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for st := range states {
			switch st.Phase {
			case update.PhaseChecking:
				progress.Percent("Checking for updates", st.Progress)
			case update.PhaseUpdating:
				progress.Percent("Updating assets", st.Progress)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		progress.Done()
	}
}
