// Package main provides the CLI entry point for pvcbench, which benchmarks
// the sequential and MPI-parallel pvc solvers and reports their speedup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weiihann/pvcbench/bench"
	"github.com/weiihann/pvcbench/config"
	"github.com/weiihann/pvcbench/harness"
	"github.com/weiihann/pvcbench/report"
	"github.com/weiihann/pvcbench/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("pvcbench failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	envFile    string
	verbose    bool
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "pvcbench",
		Short: "Sequential vs. parallel pvc solver benchmarking tool",
		Long: `Pvcbench runs the sequential and MPI-parallel traveling salesman solvers
over a range of problem sizes and worker counts, checks that both produce the
same answer, and reports speedup and parallel efficiency.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if g.verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "",
		"Config file (default: ./pvcbench.{yaml,json,toml} if present)")
	pf.StringVar(&g.envFile, "env-file", config.DefaultEnvFile,
		"Env file loaded before running the solvers")
	pf.BoolVarP(&g.verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(
		newRunCmd(logger, &g),
		newReportCmd(logger, &g),
		newBuildCmd(logger, &g),
	)

	return root
}

func loadConfig(cmd *cobra.Command, g *globalFlags) (config.Config, error) {
	cfg, err := config.Load(config.New(), config.Options{
		ConfigFile: g.configFile,
		EnvFile:    g.envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func newRunCmd(logger *slog.Logger, g *globalFlags) *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark sweep and write the runs file",
		Long: `Run the sequential solver once per problem size and the parallel solver
once per worker count, recording both timings and whether their outputs
match. Aborts if a solver fails or prints no timing line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			return runBenchmark(cmd.Context(), logger, cfg, build)
		},
	}

	flags := cmd.Flags()
	flags.Int("min-size", workload.DefaultSizes.Min,
		"Smallest problem size")
	flags.Int("max-size", workload.DefaultSizes.Max,
		"Largest problem size")
	flags.Int("min-workers", workload.DefaultWorkers.Min,
		"Smallest worker count")
	flags.Int("max-workers", workload.DefaultWorkers.Max,
		"Largest worker count")
	flags.String("seq", "../"+harness.SequentialBinary,
		"Path to the sequential solver")
	flags.String("par", "../"+harness.ParallelBinary,
		"Path to the parallel solver")
	flags.String("launcher", "mpirun",
		"Message-passing launcher for the parallel solver")
	flags.String("work-dir", ".",
		"Directory for the transient solver output files")
	flags.String("runs", "runs.json",
		"Runs file to write")
	flags.String("source-dir", "..",
		"Directory holding pvc-seq.c and pvc-par.c (with --build)")
	flags.Duration("timeout", 0,
		"Per-invocation timeout (0 = none)")
	flags.BoolVar(&build, "build", false,
		"Compile both solvers before running")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	build bool,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger = logger.With(slog.String("session", uuid.NewString()))

	if build {
		seq, par, err := buildSolvers(ctx, logger, cfg.SourceDir)
		if err != nil {
			return err
		}

		cfg.Sequential, cfg.Parallel = seq, par
	}

	plan, err := workload.NewPlan(cfg.Plan())
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	summary := plan.Summary()

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("sizes", cfg.Sizes.String()),
		slog.String("workers", cfg.Workers.String()),
		slog.Int("trials", summary.Trials),
		slog.String("sequential", cfg.Sequential),
		slog.String("parallel", cfg.Parallel),
		slog.String("launcher", cfg.Launcher.Path),
		slog.String("config", cfg.ConfigSource),
	)

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	solvers := &harness.Solvers{
		Sequential: cfg.Sequential,
		Parallel:   cfg.Parallel,
		Launcher:   cfg.Launcher,
		WorkDir:    cfg.WorkDir,
		Parser:     harness.NewTimingParser(cfg.TimingLabel),
		Runner:     harness.NewRunner(cfg.Timeout, logger),
	}

	start := time.Now()

	runs, err := bench.Run(ctx, logger, solvers, plan)
	if err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	if err := bench.SaveRuns(cfg.RunsPath, runs); err != nil {
		return err
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("measurements", len(runs)),
		slog.String("runs", cfg.RunsPath),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

func newReportCmd(logger *slog.Logger, g *globalFlags) *cobra.Command {
	var noTable bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute speedup and efficiency from a runs file",
		Long: `Read the runs file written by "pvcbench run", derive speedup and parallel
efficiency for every measurement, and write them to the report file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			return generateReport(cmd.Context(), logger, cfg, !noTable)
		},
	}

	flags := cmd.Flags()
	flags.String("runs", "runs.json", "Runs file to read")
	flags.String("report", "data.json", "Report file to write")
	flags.BoolVar(&noTable, "no-table", false,
		"Do not print the report table to stdout")

	return cmd
}

func generateReport(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	table bool,
) error {
	if cfg.ReportPath == "" {
		return fmt.Errorf("report path is empty")
	}

	runs, err := report.Load(cfg.RunsPath)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}

	records := report.Build(ctx, logger, runs)

	if err := report.Save(cfg.ReportPath, records); err != nil {
		return err
	}

	logger.InfoContext(ctx, "report written",
		slog.Int("records", len(records)),
		slog.String("report", cfg.ReportPath),
	)

	if table {
		if err := report.Table(os.Stdout, records); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}

	return nil
}

func newBuildCmd(logger *slog.Logger, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the sequential and parallel solvers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			_, _, err = buildSolvers(cmd.Context(), logger, cfg.SourceDir)

			return err
		},
	}

	cmd.Flags().String("source-dir", "..",
		"Directory holding pvc-seq.c and pvc-par.c")

	return cmd
}

func buildSolvers(
	ctx context.Context,
	logger *slog.Logger,
	sourceDir string,
) (string, string, error) {
	paths := make([]string, 0, 2)

	for _, solver := range harness.KnownSolvers() {
		binPath, err := harness.Build(ctx, logger, sourceDir, solver)
		if err != nil {
			return "", "", err
		}

		paths = append(paths, binPath)
	}

	return paths[0], paths[1], nil
}
