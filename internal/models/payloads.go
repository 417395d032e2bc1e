package models

import "time"

// These structs define the JSON payloads emitted by the function entry points
// and the CLI.

// JanitorReport is the output of a blob janitor run.
type JanitorReport struct {
	Status     string   `json:"status"`
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	Deleted    []string `json:"deleted"`
	Failed     int      `json:"failed"`
}

// ScanEvent is published after a scan has been durably persisted.
type ScanEvent struct {
	ScanID    string    `json:"scanId"`
	ImageURL  string    `json:"imageUrl"`
	ImageKey  string    `json:"imageKey"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is the JSON rendering of one history row.
type HistoryEntry struct {
	ScanID    string    `json:"scanId"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"imageUrl"`
	Timestamp time.Time `json:"timestamp"`
}
