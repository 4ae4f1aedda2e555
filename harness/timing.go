package harness

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// DefaultTimingLabel is the label the pvc solvers print in front of the
// elapsed time, excluding I/O.
const DefaultTimingLabel = "Tempo de resposta sem considerar E/S, em segundos: "

// ErrNoTiming is returned when solver output carries no timing line.
var ErrNoTiming = errors.New("timing line not found")

// TimingParser extracts the elapsed seconds reported by a solver.
type TimingParser struct {
	label string
	re    *regexp.Regexp
}

// NewTimingParser builds a parser matching "<label><float>s".
func NewTimingParser(label string) *TimingParser {
	return &TimingParser{
		label: label,
		re:    regexp.MustCompile(regexp.QuoteMeta(label) + `(\d+\.\d+)s`),
	}
}

// Parse returns the first elapsed time found in output, or an error
// wrapping ErrNoTiming.
func (p *TimingParser) Parse(output []byte) (float64, error) {
	m := p.re.FindSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("%w: want %q", ErrNoTiming, p.label+"<seconds>s")
	}

	elapsed, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse elapsed %q: %w", m[1], err)
	}

	return elapsed, nil
}

// Scrape parses the timing and splits output into a Capture.
func (p *TimingParser) Scrape(output []byte) (Capture, error) {
	elapsed, err := p.Parse(output)
	if err != nil {
		return Capture{}, err
	}

	payload, annotation := SplitAnnotation(output)

	return Capture{
		Payload:    payload,
		Annotation: annotation,
		Elapsed:    elapsed,
	}, nil
}

// SplitAnnotation separates the last line of output from everything before
// it. The payload keeps its trailing newline; the annotation keeps its own.
func SplitAnnotation(output []byte) (payload, annotation []byte) {
	end := len(output)
	if end > 0 && output[end-1] == '\n' {
		end--
	}

	cut := bytes.LastIndexByte(output[:end], '\n') + 1

	return output[:cut], output[cut:]
}
