// Package commands implements the xdiff CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/version"
)

// Outcome errors mapped to exit status 1 without an error message.
var (
	ErrDifferences = errors.New("inputs differ")
	ErrConflicts   = errors.New("merge has conflicts")
)

// Exit codes.
const (
	exitOK      = 0
	exitOutcome = 1
	exitFailure = 2
)

// ExitCode maps a command error to the process exit status, following diff(1):
// 0 for no differences, 1 for differences or conflicts, 2 for trouble.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrDifferences), errors.Is(err, ErrConflicts):
		return exitOutcome
	default:
		return exitFailure
	}
}

// globalFlags are the persistent root flags.
type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the xdiff command tree.
func NewRootCommand() *cobra.Command {
	gf := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "xdiff",
		Short: "xdiff - line diff and three-way merge",
		Long: `xdiff compares files line by line and merges diverged files.

Commands:
  diff      Compare two files or two revisions of a file
  merge     Three-way merge of two files against a common base
  mcp       Serve diff and merge as MCP tools over stdio
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "",
		"config file (default: .xdiff.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(NewDiffCommand(gf))
	rootCmd.AddCommand(NewMergeCommand(gf))
	rootCmd.AddCommand(NewMCPCommand(gf))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// session holds the config and telemetry of one command run.
type session struct {
	cfg       *config.Config
	providers observability.Providers
}

// logger returns the session logger.
func (s *session) logger() *slog.Logger {
	return s.providers.Logger
}

// close flushes telemetry.
func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.logger().Warn("observability shutdown failed", "error", err)
	}
}

// newSession loads configuration and initializes observability, logging to
// stderr.
func newSession(gf *globalFlags, mode observability.AppMode, stderr io.Writer, prometheus bool) (*session, error) {
	cfg, err := config.LoadConfig(gf.configPath)
	if err != nil {
		return nil, err
	}

	obs, err := cfg.Observability(mode, version.Get().Version)
	if err != nil {
		return nil, err
	}

	if gf.verbose {
		obs.LogLevel = slog.LevelDebug
	}

	obs.Prometheus = prometheus

	providers, err := observability.Init(obs)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	// Init logs to os.Stderr; rebuild so tests and redirects see the output.
	providers.Logger = observability.NewLogger(obs, stderr)

	return &session{cfg: cfg, providers: providers}, nil
}
