package tui

import "testing"

func TestVisualWidth(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本", 4},
		{"build 日", 8},
	}

	for _, tt := range tests {
		if got := VisualWidth(tt.input); got != tt.expected {
			t.Errorf("VisualWidth(%q) = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"fits", "runtime-ci", 20, "runtime-ci"},
		{"exact", "runtime", 7, "runtime"},
		{"ellipsis", "dotnet-runtime-official", 10, "dotnet-..."},
		{"narrow", "runtime", 3, "run"},
		{"zero", "runtime", 0, ""},
		{"trims", "  padded  ", 6, "padded"},
		{"wide runes", "日本語テスト", 7, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxWidth); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, expected %q", tt.input, tt.maxWidth, got, tt.expected)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Assert.Equal() Failure\nExpected: 1", "Assert.Equal() Failure"},
		{"\n\n  Timed out  \n", "Timed out"},
		{"", ""},
		{"   \n\t", ""},
	}

	for _, tt := range tests {
		if got := FirstLine(tt.input); got != tt.expected {
			t.Errorf("FirstLine(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestShortBranch(t *testing.T) {
	if got := ShortBranch("refs/heads/main"); got != "main" {
		t.Errorf("ShortBranch(refs/heads/main) = %q", got)
	}
	if got := ShortBranch("refs/pull/12/merge"); got != "refs/pull/12/merge" {
		t.Errorf("ShortBranch(refs/pull/12/merge) = %q", got)
	}
}

func TestDeref(t *testing.T) {
	s := "failed"
	if got := Deref(&s, "-"); got != "failed" {
		t.Errorf("Deref(&failed) = %q", got)
	}
	if got := Deref(nil, "-"); got != "-" {
		t.Errorf("Deref(nil) = %q", got)
	}
}
