package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// BuildConfig describes how to compile one solver binary.
type BuildConfig struct {
	Name     string
	Compiler string
	Source   string
	Binary   string
}

// Solver binary names and their C sources.
const (
	SequentialBinary = "pvcSeq"
	ParallelBinary   = "pvcPar"
	SequentialSource = "pvc-seq.c"
	ParallelSource   = "pvc-par.c"
)

// KnownSolvers returns the build recipes for both solvers. Both sources use
// omp_get_wtime, so OpenMP is always linked; the parallel one needs the MPI
// compiler wrapper.
func KnownSolvers() []BuildConfig {
	return []BuildConfig{
		{
			Name:     "sequential",
			Compiler: "gcc",
			Source:   SequentialSource,
			Binary:   SequentialBinary,
		},
		{
			Name:     "parallel",
			Compiler: "mpicc",
			Source:   ParallelSource,
			Binary:   ParallelBinary,
		},
	}
}

// BuildCommand returns the compiler invocation for cfg.
func BuildCommand(cfg BuildConfig) CommandConfig {
	return CommandConfig{
		Binary: cfg.Compiler,
		Args: []string{
			"-O2", "-fopenmp", "-o", cfg.Binary, cfg.Source,
		},
	}
}

// Build compiles a solver inside sourceDir and returns the binary path.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	sourceDir string,
	cfg BuildConfig,
) (string, error) {
	binPath := filepath.Join(sourceDir, cfg.Binary)

	logger.InfoContext(ctx, "building solver",
		slog.String("solver", cfg.Name),
		slog.String("source", filepath.Join(sourceDir, cfg.Source)),
	)

	cmdCfg := BuildCommand(cfg)
	cmd := exec.CommandContext(ctx, cmdCfg.Binary, cmdCfg.Args...)
	cmd.Dir = sourceDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", cfg.Name, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", cfg.Name, binPath,
		)
	}

	logger.InfoContext(ctx, "solver built",
		slog.String("solver", cfg.Name),
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// CommandConfig holds the resolved command, its arguments, and extra
// environment variables.
type CommandConfig struct {
	Binary string
	Args   []string
	Env    []string
}

func (c CommandConfig) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Launcher is the message-passing launcher used to start the parallel
// solver, e.g. mpirun with its worker-count flag.
type Launcher struct {
	Path        string
	WorkersFlag string
	ExtraArgs   []string
}

// SequentialCommand runs the sequential solver for size n.
func SequentialCommand(binPath string, n int) CommandConfig {
	return CommandConfig{
		Binary: binPath,
		Args:   []string{strconv.Itoa(n)},
	}
}

// ParallelCommand runs the parallel solver for size n through the
// launcher with the given number of workers.
func ParallelCommand(l Launcher, binPath string, workers, n int) CommandConfig {
	args := make([]string, 0, len(l.ExtraArgs)+4)
	args = append(args, l.WorkersFlag, strconv.Itoa(workers))
	args = append(args, l.ExtraArgs...)
	args = append(args, binPath, strconv.Itoa(n))

	return CommandConfig{
		Binary: l.Path,
		Args:   args,
	}
}
