package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fabline/internal/api"
	"fabline/internal/pipeline"
)

var titleCaser = cases.Title(language.Und)

// displayName renders an enum value like "powder_coating" as "Powder Coating".
func displayName(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// shortTimestamp trims an API timestamp down to minute precision for tables.
func shortTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.000Z07:00", value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}

func buildJobRows(jobs []api.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.ID,
			j.Code,
			j.Customer,
			strconv.Itoa(j.TotalQuantity),
			displayName(j.CurrentStage),
			displayName(j.QCStatus),
			strconv.Itoa(len(j.Batches)),
			shortTimestamp(j.UpdatedAt),
		})
	}
	return rows
}

func buildBatchRows(batches []api.BatchView) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		status := displayName(b.Status)
		if b.Scrapped {
			status = "Scrapped"
		}
		detail := "-"
		switch {
		case b.Scrapped && b.ScrapReason != "":
			detail = b.ScrapReason
		case b.RejectionReason != "":
			detail = b.RejectionReason
		case b.NextReminder != "":
			detail = "follow-up " + shortTimestamp(b.NextReminder)
		}
		rows = append(rows, []string{
			b.ID,
			displayName(b.Stage),
			strconv.Itoa(b.Quantity),
			status,
			strconv.Itoa(b.ReprocessCount),
			detail,
		})
	}
	return rows
}

func buildHistoryRows(entries []api.HistoryView) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		batch := entry.BatchID
		if batch == "" {
			batch = "-"
		}
		rows = append(rows, []string{
			shortTimestamp(entry.Timestamp),
			displayName(entry.Action),
			displayName(entry.Stage),
			batch,
			entry.User,
			entry.Details,
		})
	}
	return rows
}

// buildStatsRows orders stage counts by pipeline position instead of
// alphabetically.
func buildStatsRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, stage := range pipeline.Sequence() {
		name := string(stage)
		if count, ok := counts[name]; ok {
			rows = append(rows, []string{displayName(name), strconv.Itoa(count)})
			seen[name] = true
		}
	}
	if count, ok := counts[string(pipeline.StageCompleted)]; ok {
		rows = append(rows, []string{displayName(string(pipeline.StageCompleted)), strconv.Itoa(count)})
		seen[string(pipeline.StageCompleted)] = true
	}

	var extra []string
	for name := range counts {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		rows = append(rows, []string{displayName(name), strconv.Itoa(counts[name])})
	}
	return rows
}

func formatEvent(evt api.EventView) string {
	target := evt.JobCode
	if target == "" {
		target = evt.JobID
	}
	if evt.BatchID != "" {
		target += "/" + evt.BatchID
	}
	line := fmt.Sprintf("%s  %-18s %-16s %s", shortTimestamp(evt.Timestamp), evt.Action, target, displayName(evt.Stage))
	if evt.User != "" {
		line += "  by " + evt.User
	}
	if evt.Details != "" {
		line += "  (" + evt.Details + ")"
	}
	return line
}
