package main

import (
	"strings"
	"testing"

	"fabline/internal/api"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"powder_coating": "Powder Coating",
		"design":         "Design",
		"qc_pending":     "Qc Pending",
		"":               "-",
	}
	for input, want := range cases {
		if got := displayName(input); got != want {
			t.Errorf("displayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestShortTimestamp(t *testing.T) {
	if got := shortTimestamp(""); got != "-" {
		t.Fatalf("empty timestamp = %q", got)
	}
	if got := shortTimestamp("not-a-time"); got != "not-a-time" {
		t.Fatalf("unparseable timestamp = %q", got)
	}
	got := shortTimestamp("2026-03-01T09:30:00.000Z")
	if !strings.Contains(got, "2026-03-01") {
		t.Fatalf("timestamp = %q", got)
	}
}

func TestBuildStatsRowsFollowsPipelineOrder(t *testing.T) {
	rows := buildStatsRows(map[string]int{
		"assembly":  2,
		"design":    5,
		"cutting":   1,
		"completed": 3,
	})
	if len(rows) != 4 {
		t.Fatalf("rows = %+v", rows)
	}
	order := []string{"Design", "Cutting", "Assembly", "Completed"}
	for i, want := range order {
		if rows[i][0] != want {
			t.Fatalf("row %d = %v, want stage %s", i, rows[i], want)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(api.EventView{
		Timestamp: "2026-03-01T09:30:00.000Z",
		JobCode:   "JOB-77",
		BatchID:   "B2",
		Action:    "split_batch",
		Stage:     "cutting",
		User:      "op1",
	})
	for _, want := range []string{"JOB-77/B2", "split_batch", "Cutting", "by op1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("event line %q missing %q", line, want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Qty"},
		[][]string{{"B1", "40"}, {"B2", "60"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "B1") || !strings.Contains(out, "60") {
		t.Fatalf("table output missing rows:\n%s", out)
	}
	if !strings.Contains(out, "ID") {
		t.Fatalf("table output missing header:\n%s", out)
	}
}
