package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/mlgrade/internal/app"
	"github.com/google/uuid"
	"github.com/okian/mlgrade/internal/config"
	"github.com/okian/mlgrade/internal/report"
	"github.com/okian/mlgrade/pkg/logger"
	"github.com/spf13/cobra"
)

// flagValues holds command-line overrides; empty means "keep config".
type flagValues struct {
	configPath   string
	candidateURL string
	eventsPath   string
	refPath      string
	outputPath   string
	logLevel     string
	textfile     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mlgrade: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "mlgrade",
		Short: "Grade a candidate ML monitoring service",
		Long: "mlgrade loads the labeled event dataset and reference baseline, queries the " +
			"candidate service for the same statistics, and writes a JSON score report.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrade(cmd, fv, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fv.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	f.StringVar(&fv.candidateURL, "candidate-url", "", "base URL of the candidate service")
	f.StringVar(&fv.eventsPath, "events", "", "newline-delimited JSON event dataset")
	f.StringVar(&fv.refPath, "reference", "", "reference statistics JSON")
	f.StringVar(&fv.outputPath, "output", "", "where to write the result document")
	f.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&fv.textfile, "metrics-textfile", "", "write run metrics in Prometheus text format")

	cmd.AddCommand(newGenEventsCmd(stdout))
	return cmd
}

func runGrade(cmd *cobra.Command, fv flagValues, stdout, stderr io.Writer) error {
	ctx := cmd.Context()

	// An invalid config is still applied: flags may repair it, and it names
	// where the failure report goes when they do not.
	cfg, err := config.Load(ctx, fv.configPath)
	if err != nil && !errors.Is(err, config.ErrInvalidConfig) {
		out := ""
		if cmd.Flags().Changed("output") {
			out = fv.outputPath
		}
		return failRun(ctx, out, "", fmt.Errorf("load config: %w", err))
	}
	applyFlags(cmd, cfg, fv)
	if err := cfg.Validate(); err != nil {
		return failRun(ctx, cfg.OutputPath, cfg.ResultPath, fmt.Errorf("load config: %w", err))
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	doc, err := app.New(app.WithConfig(cfg), app.WithLogger(log)).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s (%s)\n", doc.Status, doc.Feedback, cfg.OutputPath)
	return nil
}

// failRun writes a failure report for err when the output path is known
// and returns err.
func failRun(ctx context.Context, path, resultPath string, err error) error {
	if path == "" {
		return err
	}
	doc := report.Failure(uuid.NewString(), err)
	doc.ResultPath = resultPath
	if werr := report.Write(context.WithoutCancel(ctx), path, doc); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config, fv flagValues) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("candidate-url", &cfg.CandidateURL, fv.candidateURL)
	set("events", &cfg.EventsPath, fv.eventsPath)
	set("reference", &cfg.ReferencePath, fv.refPath)
	set("output", &cfg.OutputPath, fv.outputPath)
	set("log-level", &cfg.LogLevel, fv.logLevel)
	set("metrics-textfile", &cfg.MetricsTextfile, fv.textfile)
}
