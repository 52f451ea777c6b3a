package app

import "testing"

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"does-not-exist"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", outputFormatTable, false},
		{"table", outputFormatTable, false},
		{"JSON", outputFormatJSON, false},
		{"xml", "", true},
	}
	for _, tc := range cases {
		got, err := parseOutputFormat(tc.raw, outputFormatTable)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseOutputFormat(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateForTable("a very long headline indeed", 10); got != "a very ..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
