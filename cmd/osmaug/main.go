// Command osmaug applies one OSM change file to a local store and
// emits the resulting augmented diff (spec §6). Usage:
//
//	osmaug DATABASE_PATH CHANGE_FILE SEQ_NUMBER TIMESTAMP [flags]
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cuemby/osmaug/pkg/config"
	"github.com/cuemby/osmaug/pkg/engine"
	"github.com/cuemby/osmaug/pkg/log"
	"github.com/cuemby/osmaug/pkg/metrics"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "osmaug: %v\n", err)
		os.Exit(2)
	}
}

// usageError marks an error that should exit 1 (bad arguments) rather
// than 2 (I/O or database error), per spec §6's exit code table.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exactArgs wraps cobra.ExactArgs so a positional-argument-count failure
// is still classified as a usageError: cobra runs Args validation before
// RunE, so without this wrapper that failure would bypass run()'s own
// usageError return and exit 2 instead of 1.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "osmaug DATABASE_PATH CHANGE_FILE SEQ_NUMBER TIMESTAMP",
	Short: "Apply an OSM change file and emit an augmented diff",
	Long: `osmaug maintains a mirror of OpenStreetMap data in an embedded key-value
store. Given a minutely/hourly/daily change file, it reconstructs the
before/after state of every touched entity (backfilling geometry for
unchanged children from the store), writes an augmented diff XML file,
and — with --commit — applies the change to the store.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	Args:          exactArgs(4),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.Bool("verbose", false, "Emit progress lines to stderr")
	flags.Bool("commit", false, "Commit the write transaction; otherwise the run is a dry run")
	flags.String("output-dir", "", "Directory to write SEQ_NUMBER.adiff.xml into (default: current directory)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100) for the duration of the run")
	flags.String("config", "", "Optional YAML file of flag defaults (spec §6 ambient config)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Output logs in JSON format")
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	defaults, err := config.Load(configPath)
	if err != nil {
		return &usageError{err}
	}

	verbose := flagOrDefault(flags, "verbose", defaults.Verbose)
	commit := flagOrDefault(flags, "commit", defaults.Commit)
	outputDir := stringFlagOrDefault(flags, "output-dir", defaults.OutputDir)
	metricsAddr := stringFlagOrDefault(flags, "metrics-addr", defaults.MetricsAddr)
	logLevel := stringFlagOrDefault(flags, "log-level", defaults.LogLevel)
	logJSON := flagOrDefault(flags, "log-json", defaults.LogJSON)

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON, Output: os.Stderr})

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
		defer srv.Close() //nolint:errcheck
	}

	req := engine.Request{
		DatabasePath: args[0],
		ChangeFile:   args[1],
		SeqNumber:    args[2],
		Timestamp:    args[3],
		Commit:       commit,
		OutputDir:    outputDir,
	}

	logger := log.WithRun(req.SeqNumber)
	if verbose {
		logger.Info().Str("change_file", req.ChangeFile).Bool("commit", req.Commit).Msg("starting update")
	}

	timer := metrics.NewTimer()
	result, err := engine.Run(req)
	timer.ObserveDuration(metrics.RunDuration)

	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, engine.ErrNonMonotonicSequence) {
			return &usageError{err}
		}
		return err
	}

	outcome := "dry_run"
	if result.Committed {
		outcome = "committed"
		metrics.EntitiesTotal.WithLabelValues("node", "written").Add(float64(result.Apply.Nodes))
		metrics.EntitiesTotal.WithLabelValues("node", "deleted").Add(float64(result.Apply.NodesDeleted))
		metrics.EntitiesTotal.WithLabelValues("way", "written").Add(float64(result.Apply.Ways))
		metrics.EntitiesTotal.WithLabelValues("way", "deleted").Add(float64(result.Apply.WaysDeleted))
		metrics.EntitiesTotal.WithLabelValues("relation", "written").Add(float64(result.Apply.Relations))
		metrics.EntitiesTotal.WithLabelValues("relation", "deleted").Add(float64(result.Apply.RelationsDeleted))
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()

	verb := "Aborted"
	if result.Committed {
		verb = "Committed"
	}
	prev := result.PreviousSeqNumber
	if prev == "" {
		prev = "UNKNOWN"
	}
	logger.Info().Msgf("%s: %s -> %s in %.3f seconds.", verb, prev, req.SeqNumber, timer.Duration().Seconds())
	if verbose {
		logger.Info().Str("diff", result.DiffPath).Str("counts", result.Apply.Summary()).Msg("applied")
	}

	return nil
}

// flagOrDefault prefers an explicitly-set CLI flag over a config-file
// default, and the config-file default over the flag's own cobra-declared
// default.
func flagOrDefault(flags *pflag.FlagSet, name string, configDefault bool) bool {
	v, _ := flags.GetBool(name)
	if flags.Changed(name) || !configDefault {
		return v
	}
	return configDefault
}

func stringFlagOrDefault(flags *pflag.FlagSet, name, configDefault string) string {
	v, _ := flags.GetString(name)
	if flags.Changed(name) || configDefault == "" {
		return v
	}
	return configDefault
}
