// Package patterns normalizes CI failure text, either for grouping failures
// that differ only in volatile details or for compact display.
//
//   - MaskRecurrence: aggressive, used to compute failure signatures
//   - MaskPresentation: conservative, used to shrink console output
package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaskingLevel controls how aggressively lines are normalized.
type MaskingLevel int

const (
	// MaskPresentation keeps diagnostic details such as line numbers.
	// Example: /mnt/vss/_work/1/s/src/Foo.cs:42 → .../Foo.cs:42
	MaskPresentation MaskingLevel = iota

	// MaskRecurrence masks everything that varies between otherwise
	// identical failures.
	// Example: Assert.Equal() Failure at line 42 → Assert.Equal() Failure at line [NUM]
	MaskRecurrence
)

var (
	// timestampPattern matches ISO8601 and common log timestamps.
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`)

	// logCommandPattern matches pipeline logging commands such as ##[error]
	// and ##vso[task.logissue type=error].
	logCommandPattern = regexp.MustCompile(`^##(?:vso)?\[[^\]]*\]\s*`)

	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	// longHashPattern matches commit SHAs, blob ids and similar.
	longHashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

	hexAddressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)

	numberPattern = regexp.MustCompile(`\b\d+\b`)

	// longPathPattern matches absolute unix paths with 3+ directories and
	// captures the file name with an optional :line suffix.
	longPathPattern = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

	// windowsPathPattern matches drive-rooted paths with 2+ directories,
	// as printed in .NET stack traces (C:\h\w\A1\w\B2\e\Foo.cs:line 42).
	windowsPathPattern = regexp.MustCompile(`[A-Za-z]:\\(?:[^\\\s]+\\){2,}([^\\\s:]+(?::line \d+)?)`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// minPrefixLength is the minimum common prefix length worth removing.
const minPrefixLength = 20

// maxSignatureLength bounds signatures in runes.
const maxSignatureLength = 240

// Normalize applies pattern normalization to a single line.
func Normalize(line string, level MaskingLevel) string {
	line = logCommandPattern.ReplaceAllString(strings.TrimSpace(line), "")
	line = stripTimestamps(line, level)
	line = maskUUIDs(line, level)
	line = maskHexAddresses(line, level)

	switch level {
	case MaskPresentation:
		line = compressPaths(line)
		line = maskLongHashes(line)
	case MaskRecurrence:
		line = maskAllPaths(line)
		line = maskLongHashes(line)
		line = maskNumbers(line)
	}

	return normalizeWhitespace(line)
}

// NormalizeLines normalizes every line. In presentation mode a long prefix
// shared by all lines is replaced with "... ".
func NormalizeLines(lines []string, level MaskingLevel) []string {
	if len(lines) == 0 {
		return lines
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = Normalize(line, level)
	}

	if level == MaskPresentation {
		result = removeCommonPrefix(result)
	}
	return result
}

// Signature groups failure messages that differ only in volatile details.
// Only the first non-blank line takes part; stack frames and assertion
// diffs below it vary too much between runs.
func Signature(message string) string {
	first := ""
	for _, line := range strings.Split(message, "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}

	sig := Normalize(first, MaskRecurrence)
	if utf8.RuneCountInString(sig) > maxSignatureLength {
		runes := []rune(sig)
		sig = string(runes[:maxSignatureLength]) + "..."
	}
	return sig
}

func stripTimestamps(line string, level MaskingLevel) string {
	switch level {
	case MaskPresentation:
		// Only a leading timestamp is noise for display.
		if loc := timestampPattern.FindStringIndex(line); loc != nil && loc[0] < 5 {
			line = strings.TrimSpace(line[loc[1]:])
		}
		return line
	case MaskRecurrence:
		return timestampPattern.ReplaceAllString(line, "[TIMESTAMP]")
	}
	return line
}

func maskUUIDs(line string, level MaskingLevel) string {
	if level == MaskPresentation {
		return uuidPattern.ReplaceAllString(line, "<UUID>")
	}
	return uuidPattern.ReplaceAllString(line, "[UUID]")
}

func maskHexAddresses(line string, level MaskingLevel) string {
	if level == MaskPresentation {
		return hexAddressPattern.ReplaceAllString(line, "<HEX>")
	}
	return hexAddressPattern.ReplaceAllString(line, "[HEX]")
}

// compressPaths shortens long paths while keeping the file name and line.
func compressPaths(line string) string {
	line = longPathPattern.ReplaceAllString(line, ".../$1")
	return windowsPathPattern.ReplaceAllString(line, `...\$1`)
}

func maskLongHashes(line string) string {
	return longHashPattern.ReplaceAllString(line, "<HASH>")
}

func maskAllPaths(line string) string {
	line = longPathPattern.ReplaceAllString(line, "[PATH]")
	return windowsPathPattern.ReplaceAllString(line, "[PATH]")
}

func maskNumbers(line string) string {
	return numberPattern.ReplaceAllString(line, "[NUM]")
}

func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

func removeCommonPrefix(lines []string) []string {
	prefix := findCommonPrefix(lines)
	if prefix == "" {
		return lines
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = "... " + line[len(prefix):]
	}
	return result
}

// findCommonPrefix finds the longest common prefix across lines, or ""
// when it is shorter than minPrefixLength.
func findCommonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for len(prefix) > 0 && (len(line) < len(prefix) || line[:len(prefix)] != prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if len(prefix) == 0 {
			break
		}
	}

	// Never cut inside a multi-byte rune.
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}

	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}
