package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/pvcbench/harness"
	"github.com/weiihann/pvcbench/workload"
)

const label = harness.DefaultTimingLabel

// fakeExecutor serves canned solver output keyed by size and workers.
type fakeExecutor struct {
	parser   *harness.TimingParser
	seq      map[int]string
	par      map[[2]int]string
	calls    []string
	cleanups int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		parser: harness.NewTimingParser(label),
		seq:    map[int]string{},
		par:    map[[2]int]string{},
	}
}

func output(payload string, elapsed string) string {
	return payload + label + elapsed + "s\n"
}

func (f *fakeExecutor) RunSequential(
	_ context.Context,
	n int,
) (harness.Capture, error) {
	f.calls = append(f.calls, fmt.Sprintf("seq %d", n))

	return f.parser.Scrape([]byte(f.seq[n]))
}

func (f *fakeExecutor) RunParallel(
	_ context.Context,
	n, workers int,
) (harness.Capture, error) {
	f.calls = append(f.calls, fmt.Sprintf("par %d %d", n, workers))

	return f.parser.Scrape([]byte(f.par[[2]int{n, workers}]))
}

func (f *fakeExecutor) Cleanup() error {
	f.cleanups++
	f.calls = append(f.calls, "cleanup")

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPlan(t *testing.T, sizes, workers workload.Range) workload.Plan {
	t.Helper()

	plan, err := workload.NewPlan(workload.Config{
		Sizes:   sizes,
		Workers: workers,
	})
	require.NoError(t, err)

	return plan
}

func TestRunRecordsEveryTrial(t *testing.T) {
	exec := newFakeExecutor()
	plan := mustPlan(t, workload.Range{Min: 2, Max: 3}, workload.DefaultWorkers)

	for _, g := range plan {
		exec.seq[g.N] = output("dist 10\n", "2.000000")
		for _, w := range g.Workers {
			exec.par[[2]int{g.N, w}] = output("dist 10\n", "1.000000")
		}
	}

	runs, err := Run(context.Background(), testLogger(), exec, plan)
	require.NoError(t, err)
	require.Len(t, runs, 6)

	for i, trial := range plan.Trials() {
		assert.Equal(t, trial.N, runs[i].N)
		assert.Equal(t, trial.T, runs[i].T)
		assert.Equal(t, 2.0, runs[i].TimeSeq)
		assert.Equal(t, 1.0, runs[i].TimePar)
		assert.False(t, runs[i].Error)
	}

	assert.Equal(t, []string{
		"seq 2", "par 2 2", "par 2 3", "par 2 4", "cleanup",
		"seq 3", "par 3 2", "par 3 3", "par 3 4", "cleanup",
	}, exec.calls)
}

func TestRunMismatchContinues(t *testing.T) {
	exec := newFakeExecutor()
	plan := mustPlan(t, workload.Range{Min: 4, Max: 4}, workload.DefaultWorkers)

	exec.seq[4] = output("dist 10\npath 0 1 2 3 0\n", "0.500000")
	exec.par[[2]int{4, 2}] = output("dist 10\npath 0 1 2 3 0\n", "0.300000")
	exec.par[[2]int{4, 3}] = output("dist 12\npath 0 2 1 3 0\n", "0.200000")
	exec.par[[2]int{4, 4}] = output("dist 10\npath 0 1 2 3 0\n", "0.100000")

	runs, err := Run(context.Background(), testLogger(), exec, plan)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.False(t, runs[0].Error)
	assert.True(t, runs[1].Error)
	assert.False(t, runs[2].Error)
	assert.Equal(t, 0.1, runs[2].TimePar)
}

func TestRunTimingAnnotationIgnoredInComparison(t *testing.T) {
	exec := newFakeExecutor()
	plan := mustPlan(t, workload.Range{Min: 2, Max: 2},
		workload.Range{Min: 2, Max: 2})

	exec.seq[2] = output("same\n", "9.999999")
	exec.par[[2]int{2, 2}] = output("same\n", "0.000001")

	runs, err := Run(context.Background(), testLogger(), exec, plan)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Error)
}

func TestRunMissingSequentialTimingAborts(t *testing.T) {
	exec := newFakeExecutor()
	plan := mustPlan(t, workload.Range{Min: 2, Max: 3}, workload.DefaultWorkers)

	exec.seq[2] = output("ok\n", "1.000000")
	for _, w := range []int{2, 3, 4} {
		exec.par[[2]int{2, w}] = output("ok\n", "0.500000")
		exec.par[[2]int{3, w}] = output("ok\n", "0.500000")
	}
	exec.seq[3] = "ok\nno timing here\n"

	runs, err := Run(context.Background(), testLogger(), exec, plan)
	require.ErrorIs(t, err, harness.ErrNoTiming)

	for _, r := range runs {
		assert.NotEqual(t, 3, r.N)
	}

	assert.NotContains(t, exec.calls, "par 3 2")
	assert.Equal(t, 1, exec.cleanups)
}

func TestRunMissingParallelTimingAborts(t *testing.T) {
	exec := newFakeExecutor()
	plan := mustPlan(t, workload.Range{Min: 2, Max: 2}, workload.DefaultWorkers)

	exec.seq[2] = output("ok\n", "1.000000")
	exec.par[[2]int{2, 2}] = output("ok\n", "0.500000")
	exec.par[[2]int{2, 3}] = "ok\n"

	runs, err := Run(context.Background(), testLogger(), exec, plan)
	require.ErrorIs(t, err, harness.ErrNoTiming)
	assert.Empty(t, runs)
	assert.NotContains(t, exec.calls, "par 2 4")
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, []harness.Measurement{
		{N: 5, T: 2, TimeSeq: 2, TimePar: 1, Error: false},
	}))

	assert.Equal(t, `[
    {
        "N": 5,
        "T": 2,
        "timeSeq": 2,
        "timePar": 1,
        "error": false
    }
]
`, buf.String())
}

func TestWriteRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestSaveRunsOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is long"), 0o644))

	runs := []harness.Measurement{{N: 2, T: 3, TimeSeq: 0.5, TimePar: 0.25, Error: true}}
	require.NoError(t, SaveRuns(path, runs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []harness.Measurement
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, runs, got)
}
