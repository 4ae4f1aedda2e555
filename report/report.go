// Package report turns benchmark measurements into speedup and efficiency
// figures.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/weiihann/pvcbench/harness"
)

// Record is the human-facing view of one measurement.
type Record struct {
	N              int    `json:"N"`
	T              int    `json:"T"`
	Speedup        string `json:"Speedup"`
	Efficiency     string `json:"Efficiency"`
	SequentialTime string `json:"Sequential Time"`
	ParallelTime   string `json:"Parallel Time"`

	// Mismatch carries the measurement's error flag for terminal output.
	Mismatch bool `json:"-"`
}

// Build derives one Record per measurement, in input order. Measurements
// flagged with an output mismatch are logged as warnings.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	runs []harness.Measurement,
) []Record {
	records := make([]Record, 0, len(runs))

	for _, run := range runs {
		if run.Error {
			logger.WarnContext(ctx, "found error: parallel output differs",
				slog.Int("n", run.N),
				slog.Int("t", run.T),
				slog.Float64("time_seq", run.TimeSeq),
				slog.Float64("time_par", run.TimePar),
			)
		}

		records = append(records, NewRecord(run))
	}

	return records
}

// NewRecord computes speedup and efficiency for a single measurement.
// A zero parallel time yields IEEE infinities, formatted as is.
func NewRecord(run harness.Measurement) Record {
	speedup := run.TimeSeq / run.TimePar
	efficiency := speedup / float64(run.T)

	return Record{
		N:              run.N,
		T:              run.T,
		Speedup:        formatRatio(speedup),
		Efficiency:     formatRatio(efficiency),
		SequentialTime: formatSeconds(run.TimeSeq),
		ParallelTime:   formatSeconds(run.TimePar),
		Mismatch:       run.Error,
	}
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")

	return enc.Encode(records)
}

// Save writes records to path, replacing any existing file.
func Save(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}

	if err := WriteJSON(f, records); err != nil {
		f.Close()

		return fmt.Errorf("write report %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}

	return nil
}

// Table renders records as a terminal table.
func Table(w io.Writer, records []Record) error {
	data := pterm.TableData{
		{"N", "T", "Sequential", "Parallel", "Speedup", "Efficiency", "Output"},
	}

	for _, r := range records {
		status := "ok"
		if r.Mismatch {
			status = "MISMATCH"
		}

		data = append(data, []string{
			strconv.Itoa(r.N),
			strconv.Itoa(r.T),
			r.SequentialTime,
			r.ParallelTime,
			r.Speedup,
			r.Efficiency,
			status,
		})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	_, err = fmt.Fprintln(w, out)

	return err
}

func formatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.6fs", v)
}
