package store

import "time"

// HealthSummary aggregates job counts for diagnostic output.
type HealthSummary struct {
	Total     int
	Active    int
	Completed int
	Scrapped  int
}

// DatabaseHealth reports diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	TotalJobs        int
	UnbalancedJobs   []string
	IntegrityCheck   bool
	Error            string
}

// ReminderDue describes a batch whose follow-up reminder has come due.
type ReminderDue struct {
	JobID        string
	JobCode      string
	BatchID      string
	Stage        string
	Quantity     int
	Status       string
	PendingSince *time.Time
	NextReminder time.Time
}
