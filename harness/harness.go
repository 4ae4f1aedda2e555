package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Runner executes solver commands, sending stdout to an artifact file.
type Runner struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner creates a Runner. A zero timeout means none.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		Timeout: timeout,
		Logger:  logger,
	}
}

// Run executes cmdCfg with stdout written to outputPath, truncating any
// previous content, and returns what the command printed.
func (r *Runner) Run(
	ctx context.Context,
	cmdCfg CommandConfig,
	outputPath string,
) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)

		defer cancel()
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", outputPath, err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, cmdCfg.Binary, cmdCfg.Args...)

	if len(cmdCfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cmdCfg.Env...)
	}

	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr

	r.Logger.DebugContext(ctx, "starting solver",
		slog.String("binary", cmdCfg.Binary),
		slog.Any("args", cmdCfg.Args),
		slog.String("output", outputPath),
	)

	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, err)
		}

		return nil, fmt.Errorf(
			"%s failed: %w\nstderr: %s",
			cmdCfg, err, stderr.String(),
		)
	}

	r.Logger.DebugContext(ctx, "solver finished",
		slog.String("binary", cmdCfg.Binary),
		slog.Duration("wall_time", time.Since(start)),
	)

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close output %s: %w", outputPath, err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read output %s: %w", outputPath, err)
	}

	return data, nil
}

// Artifact file names, relative to the solver work directory.
const (
	SequentialArtifact = "outSeq"
	ParallelArtifact   = "outPar"
)

// Solvers runs the sequential and parallel pvc binaries and scrapes their
// output. Each invocation overwrites its artifact file in WorkDir.
type Solvers struct {
	Sequential string
	Parallel   string
	Launcher   Launcher
	WorkDir    string
	Parser     *TimingParser
	Runner     *Runner
}

// RunSequential runs the sequential solver for size n.
func (s *Solvers) RunSequential(ctx context.Context, n int) (Capture, error) {
	return s.scrape(ctx,
		SequentialCommand(s.Sequential, n),
		s.artifact(SequentialArtifact),
	)
}

// RunParallel runs the parallel solver for size n under the launcher with
// the given number of workers.
func (s *Solvers) RunParallel(
	ctx context.Context,
	n int,
	workers int,
) (Capture, error) {
	return s.scrape(ctx,
		ParallelCommand(s.Launcher, s.Parallel, workers, n),
		s.artifact(ParallelArtifact),
	)
}

// Cleanup removes both artifact files. Missing files are not an error.
func (s *Solvers) Cleanup() error {
	var errs []error

	for _, name := range []string{SequentialArtifact, ParallelArtifact} {
		err := os.Remove(s.artifact(name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Solvers) artifact(name string) string {
	return filepath.Join(s.WorkDir, name)
}

func (s *Solvers) scrape(
	ctx context.Context,
	cmdCfg CommandConfig,
	outputPath string,
) (Capture, error) {
	output, err := s.Runner.Run(ctx, cmdCfg, outputPath)
	if err != nil {
		return Capture{}, err
	}

	capture, err := s.Parser.Scrape(output)
	if err != nil {
		return Capture{}, fmt.Errorf("scrape %s: %w", cmdCfg, err)
	}

	return capture, nil
}
