package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

const (
	historyScopeJob   = "job"
	historyScopeBatch = "batch"
)

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseTimePtr(value string) *time.Time {
	t, err := parseTimeString(value)
	if err != nil {
		return nil
	}
	return &t
}

func marshalSkippedStages(stages []pipeline.Stage) (any, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return nil, fmt.Errorf("marshal skipped stages: %w", err)
	}
	return string(data), nil
}

func unmarshalSkippedStages(raw string) ([]pipeline.Stage, error) {
	if raw == "" {
		return nil, nil
	}
	var stages []pipeline.Stage
	if err := json.Unmarshal([]byte(raw), &stages); err != nil {
		return nil, fmt.Errorf("unmarshal skipped stages: %w", err)
	}
	return stages, nil
}

func marshalStageStatus(status map[pipeline.Stage]job.StageRecord) (any, error) {
	if len(status) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("marshal stage status: %w", err)
	}
	return string(data), nil
}

func unmarshalStageStatus(raw string) (map[pipeline.Stage]job.StageRecord, error) {
	if raw == "" {
		return nil, nil
	}
	status := make(map[pipeline.Stage]job.StageRecord)
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("unmarshal stage status: %w", err)
	}
	return status, nil
}

func marshalStageTimes(times map[pipeline.Stage]int64) (any, error) {
	if len(times) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(times)
	if err != nil {
		return nil, fmt.Errorf("marshal stage times: %w", err)
	}
	return string(data), nil
}

func unmarshalStageTimes(raw string) (map[pipeline.Stage]int64, error) {
	if raw == "" {
		return nil, nil
	}
	times := make(map[pipeline.Stage]int64)
	if err := json.Unmarshal([]byte(raw), &times); err != nil {
		return nil, fmt.Errorf("unmarshal stage times: %w", err)
	}
	return times, nil
}
