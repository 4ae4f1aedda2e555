package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Comparison reports whether two payloads are byte-identical.
type Comparison struct {
	Equal bool
	// Diff is a short line-level description of the first differences.
	// Empty when Equal.
	Diff string
}

const maxDiffLines = 20

// Compare checks want and got for byte equality and, on mismatch,
// describes the differing lines.
func Compare(want, got []byte) Comparison {
	if bytes.Equal(want, got) {
		return Comparison{Equal: true}
	}

	return Comparison{Diff: describeDiff(string(want), string(got))}
}

func describeDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder

	written := 0

	for _, d := range diffs {
		var prefix string

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			if written == maxDiffLines {
				sb.WriteString("...\n")
				return sb.String()
			}

			fmt.Fprintf(&sb, "%s %q\n", prefix, strings.TrimSuffix(line, "\n"))
			written++
		}
	}

	return sb.String()
}
