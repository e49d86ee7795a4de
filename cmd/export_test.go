package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestCsvEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", "\"with\nnewline\""},
		{"with\rreturn", "\"with\rreturn\""},
		{"", ""},
	}
	for _, tt := range tests {
		got := csvEscape(tt.input)
		if got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteExport(t *testing.T) {
	entries := sampleEntries()
	now := day.Add(18 * time.Hour)

	tests := []struct {
		format   string
		grouping bool
		want     []string
	}{
		{"csv", false, []string{
			"date,project,task,description,start,end,duration_minutes",
			`2026-02-27,ECM,review,"notes, more",`,
			",30\n",
		}},
		{"json", false, []string{`"project": "ECM"`, `"description": "notes, more"`}},
		{"yaml", false, []string{"project: ECM", "task: review"}},
		{"md", false, []string{"2026-02-27  (1h 30m)\n11:00–11:30  ECM  review (30m)\n09:00–10:00  ECM  review (1h 0m)\n"}},
		{"md", true, []string{"2026-02-27  (1h 30m)\n11:00–11:30  ECM  review ×2 (1h 30m)\n"}},
	}
	for _, tt := range tests {
		var out strings.Builder
		if err := writeExport(&out, entries, tt.format, tt.grouping, now); err != nil {
			t.Fatalf("writeExport(%s): %v", tt.format, err)
		}
		for _, want := range tt.want {
			if !strings.Contains(out.String(), want) {
				t.Errorf("writeExport(%s, grouping=%v) missing %q in:\n%s", tt.format, tt.grouping, want, out.String())
			}
		}
	}
}

func TestWriteExportEmpty(t *testing.T) {
	var out strings.Builder
	if err := writeExport(&out, nil, "md", false, day); err != nil {
		t.Fatal(err)
	}
	if out.String() != "No entries found.\n" {
		t.Errorf("output = %q", out.String())
	}
}
