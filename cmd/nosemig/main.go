package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nosemig/internal/trace"
	"nosemig/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "nosemig",
	Short: "Migrate nose-style Python tests to pytest",
	Long: `nosemig finds nose-era test constructs (generator tests, nose.tools
decorators and assertions, unittest.TestCase classes, legacy setup hooks)
and rewrites them into pytest idioms, one fragment at a time. Every outcome
is recorded in a ledger under .nosemig/, so interrupted runs resume where
they stopped.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRoot,
}

// errUnclean makes the process exit with status 1 without printing anything
// beyond what the command already reported.
var errUnclean = errors.New("migration has failed fragments")

// session holds the per-invocation resources opened by setupRoot.
var session struct {
	cleanup []func()
	tracer  trace.Tracer
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("config", "", "path to nosemig.toml (default: search upwards from the working directory)")
	flags.String("root", "", "migration root (default: the directory of nosemig.toml, or the working directory)")

	flags.String("trace", "", "write trace events to a file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")

	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) (code int) {
	defer func() {
		for i := len(session.cleanup) - 1; i >= 0; i-- {
			session.cleanup[i]()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if session.tracer != nil {
				fmt.Fprintln(os.Stderr, "nosemig: panic, recent trace events:")
				_, _ = trace.DumpRing(session.tracer, os.Stderr, trace.FormatText)
			}
			panic(r)
		}
	}()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUnclean):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "nosemig: %v\n", err)
		return 1
	}
}

func setupRoot(cmd *cobra.Command, _ []string) error {
	if err := applyColorFlag(cmd); err != nil {
		return err
	}
	cleanup, tracer, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	session.tracer = tracer
	session.cleanup = append(session.cleanup, cleanup)

	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	session.cleanup = append(session.cleanup, stopProf)
	return nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
