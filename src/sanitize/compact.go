package sanitize

import (
	"fmt"
	"strings"

	"pipeline-agent/src/patterns"
)

// minRepeat is the shortest run of identical lines worth collapsing.
const minRepeat = 3

// Compact prepares console text for display. Escape sequences are always
// removed. tail keeps only the last lines (0 keeps all). normalize also
// masks every line for presentation and collapses runs of identical lines.
func Compact(text string, normalize bool, tail int) string {
	lines := Tail(Lines(text), tail)
	if normalize {
		lines = collapseRepeats(patterns.NormalizeLines(lines, patterns.MaskPresentation))
	}
	return strings.Join(lines, "\n")
}

// collapseRepeats replaces a run of minRepeat or more identical lines with
// one line and a repeat count.
func collapseRepeats(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		j := i + 1
		for j < len(lines) && lines[j] == lines[i] {
			j++
		}
		if run := j - i; run >= minRepeat {
			out = append(out, fmt.Sprintf("%s [repeated %d times]", lines[i], run))
		} else {
			out = append(out, lines[i:j]...)
		}
		i = j
	}
	return out
}
