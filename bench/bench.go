// Package bench drives the benchmark sweep: one sequential run per problem
// size, one parallel run per worker count, one measurement per pair.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/weiihann/pvcbench/harness"
	"github.com/weiihann/pvcbench/workload"
)

// Executor runs the solvers. *harness.Solvers is the production
// implementation.
type Executor interface {
	RunSequential(ctx context.Context, n int) (harness.Capture, error)
	RunParallel(ctx context.Context, n, workers int) (harness.Capture, error)
	Cleanup() error
}

// Run executes every trial of plan in order and returns the measurements.
// Any solver failure, including a missing timing line, aborts the sweep
// and no measurement of the failing size is returned. Output mismatches
// are recorded in the measurement and do not stop the sweep.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	exec Executor,
	plan workload.Plan,
) ([]harness.Measurement, error) {
	runs := make([]harness.Measurement, 0, plan.Summary().Trials)

	for _, group := range plan {
		measured, err := runGroup(ctx, logger, exec, group)
		if err != nil {
			return runs, fmt.Errorf("size %d: %w", group.N, err)
		}

		runs = append(runs, measured...)
	}

	return runs, nil
}

func runGroup(
	ctx context.Context,
	logger *slog.Logger,
	exec Executor,
	group workload.Group,
) ([]harness.Measurement, error) {
	seq, err := exec.RunSequential(ctx, group.N)
	if err != nil {
		return nil, fmt.Errorf("sequential: %w", err)
	}

	logger.InfoContext(ctx, "sequential run",
		slog.Int("n", group.N),
		slog.Float64("time_seq", seq.Elapsed),
	)

	runs := make([]harness.Measurement, 0, len(group.Workers))

	for _, workers := range group.Workers {
		par, err := exec.RunParallel(ctx, group.N, workers)
		if err != nil {
			return nil, fmt.Errorf("parallel with %d workers: %w", workers, err)
		}

		cmp := harness.Compare(seq.Payload, par.Payload)
		if !cmp.Equal {
			logger.DebugContext(ctx, "payload differs",
				slog.Int("n", group.N),
				slog.Int("t", workers),
				slog.String("diff", cmp.Diff),
			)
		}

		logger.InfoContext(ctx, "parallel run",
			slog.Int("n", group.N),
			slog.Int("t", workers),
			slog.Float64("time_par", par.Elapsed),
		)

		runs = append(runs, harness.Measurement{
			N:       group.N,
			T:       workers,
			TimeSeq: seq.Elapsed,
			TimePar: par.Elapsed,
			Error:   !cmp.Equal,
		})
	}

	if err := exec.Cleanup(); err != nil {
		return nil, fmt.Errorf("remove artifacts: %w", err)
	}

	return runs, nil
}

// WriteRuns writes measurements as an indented JSON array.
func WriteRuns(w io.Writer, runs []harness.Measurement) error {
	if runs == nil {
		runs = []harness.Measurement{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")

	return enc.Encode(runs)
}

// SaveRuns writes measurements to path, replacing any existing file.
func SaveRuns(path string, runs []harness.Measurement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create runs file %s: %w", path, err)
	}

	if err := WriteRuns(f, runs); err != nil {
		f.Close()

		return fmt.Errorf("write runs file %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close runs file %s: %w", path, err)
	}

	return nil
}
