package patterns

import (
	"strings"
	"testing"
)

func TestNormalize_Presentation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "timestamp stripped from start",
			input:    "2026-10-01T10:00:05.1234567Z Discovering: System.Net.Http.Functional.Tests",
			expected: "Discovering: System.Net.Http.Functional.Tests",
		},
		{
			name:     "unix path compressed preserving line number",
			input:    "/mnt/vss/_work/1/s/src/libraries/System.Text.Json/tests/JsonTests.cs:45 - failed",
			expected: ".../JsonTests.cs:45 - failed",
		},
		{
			name:     "windows path compressed preserving line number",
			input:    `at Tests.Run() in D:\a\_work\1\s\src\Tests\RunTests.cs:line 88`,
			expected: `at Tests.Run() in ...\RunTests.cs:line 88`,
		},
		{
			name:     "logging command removed",
			input:    "##[error]The process exited with code 1",
			expected: "The process exited with code 1",
		},
		{
			name:     "commit sha masked",
			input:    "Checking out 4f2a9c1e8b7d6a5f4e3d2c1b",
			expected: "Checking out <HASH>",
		},
		{
			name:     "UUID masked",
			input:    "Job 550e8400-e29b-41d4-a716-446655440000 failed",
			expected: "Job <UUID> failed",
		},
		{
			name:     "hex address masked",
			input:    "Access violation at 0x7fff5fbff8c0",
			expected: "Access violation at <HEX>",
		},
		{
			name:     "numbers preserved",
			input:    "Exit Code: 134 after 300 seconds",
			expected: "Exit Code: 134 after 300 seconds",
		},
		{
			name:     "whitespace normalized",
			input:    "  Failed    System.Tests.Foo  ",
			expected: "Failed System.Tests.Foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input, MaskPresentation)
			if result != tt.expected {
				t.Errorf("Normalize(MaskPresentation)\n  input:    %q\n  got:      %q\n  expected: %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalize_Recurrence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "timestamp replaced anywhere",
			input:    "Timed out at 2026-10-01T10:00:05Z waiting for lock",
			expected: "Timed out at [TIMESTAMP] waiting for lock",
		},
		{
			name:     "unix path replaced entirely",
			input:    "/mnt/vss/_work/1/s/src/main.cs:42 - error",
			expected: "[PATH] - error",
		},
		{
			name:     "windows path replaced entirely",
			input:    `in D:\a\_work\1\s\src\Foo.cs:line 12`,
			expected: "in [PATH]",
		},
		{
			name:     "numbers masked",
			input:    "Expected: 3 Actual: 4",
			expected: "Expected: [NUM] Actual: [NUM]",
		},
		{
			name:     "logging command removed before masking",
			input:    "##[error]Tests failed: 12",
			expected: "Tests failed: [NUM]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input, MaskRecurrence)
			if result != tt.expected {
				t.Errorf("Normalize(MaskRecurrence)\n  input:    %q\n  got:      %q\n  expected: %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	a := "Assert.Equal() Failure: Values differ\nExpected: 3\nActual: 4\n   at Foo.Test() in /src/a/b/c/Foo.cs:line 10"
	b := "\n  Assert.Equal() Failure: Values differ\nExpected: 7\nActual: 9"
	if Signature(a) != Signature(b) {
		t.Errorf("Signature should ignore lines after the first: %q vs %q", Signature(a), Signature(b))
	}
	if got := Signature(a); got != "Assert.Equal() Failure: Values differ" {
		t.Errorf("Signature() = %q", got)
	}

	timeoutA := Signature("Test timed out after 300 seconds on helix-vm-12")
	timeoutB := Signature("Test timed out after 600 seconds on helix-vm-7")
	if timeoutA != timeoutB {
		t.Errorf("numbers should not split signatures: %q vs %q", timeoutA, timeoutB)
	}

	if Signature("") != "" || Signature("   \n \n") != "" {
		t.Error("blank messages should have an empty signature")
	}

	long := Signature(strings.Repeat("é", 500))
	if !strings.HasSuffix(long, "...") || len([]rune(long)) != maxSignatureLength+3 {
		t.Errorf("long signature not truncated on a rune boundary: %d runes", len([]rune(long)))
	}
}

func TestNormalizeLines_Presentation(t *testing.T) {
	lines := []string{
		"2026-10-01T10:00:01.000Z info: Microsoft.DotNet.XUnitExtensions[0] Starting test",
		"2026-10-01T10:00:02.000Z info: Microsoft.DotNet.XUnitExtensions[0] Running test",
		"2026-10-01T10:00:03.000Z info: Microsoft.DotNet.XUnitExtensions[0] Test failed",
	}

	result := NormalizeLines(lines, MaskPresentation)
	expected := []string{
		"... Starting test",
		"... Running test",
		"... Test failed",
	}

	if len(result) != len(expected) {
		t.Fatalf("len = %d, expected %d", len(result), len(expected))
	}
	for i, line := range result {
		if line != expected[i] {
			t.Errorf("line[%d] = %q, expected %q", i, line, expected[i])
		}
	}
}

func TestNormalizeLines_Recurrence(t *testing.T) {
	lines := []string{
		"2026-10-01T10:00:01.000Z Error on line 42",
		"2026-10-01T10:00:02.000Z Error on line 50",
	}

	result := NormalizeLines(lines, MaskRecurrence)
	for i, line := range result {
		if line != "[TIMESTAMP] Error on line [NUM]" {
			t.Errorf("line[%d] = %q", i, line)
		}
	}
}

func TestNormalizeLines_Empty(t *testing.T) {
	if result := NormalizeLines([]string{}, MaskPresentation); len(result) != 0 {
		t.Errorf("expected empty slice, got %v", result)
	}
}

func TestFindCommonPrefix(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{
			name: "long common prefix",
			lines: []string{
				"[xUnit.net 00:00:01.12]     System.Tests: Starting",
				"[xUnit.net 00:00:01.12]     System.Tests: Running",
			},
			expected: "[xUnit.net 00:00:01.12] System.Tests: ",
		},
		{
			name:     "short prefix ignored",
			lines:    []string{"info: Start", "info: Stop"},
			expected: "",
		},
		{
			name:     "single line",
			lines:    []string{"Only one line"},
			expected: "",
		},
		{
			name:     "empty",
			lines:    []string{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := make([]string, len(tt.lines))
			for i, l := range tt.lines {
				lines[i] = normalizeWhitespace(l)
			}
			result := findCommonPrefix(lines)
			if result != tt.expected {
				t.Errorf("findCommonPrefix() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestFindCommonPrefix_RuneBoundary(t *testing.T) {
	lines := []string{
		"Überprüfung der Konfiguration: ä",
		"Überprüfung der Konfiguration: ö",
	}
	prefix := findCommonPrefix(lines)
	if !strings.HasSuffix(prefix, ": ") {
		t.Errorf("prefix %q should stop before the differing rune", prefix)
	}
}

func TestLevelDifference_LineNumbers(t *testing.T) {
	input := "Error at Program.cs:42"

	if got := Normalize(input, MaskPresentation); got != "Error at Program.cs:42" {
		t.Errorf("Presentation should preserve line number, got: %q", got)
	}
	if got := Normalize(input, MaskRecurrence); got != "Error at Program.cs:[NUM]" {
		t.Errorf("Recurrence should mask line number, got: %q", got)
	}
}
