package types

import (
	"path/filepath"
	"time"
)

// WorkItem is one input document. Attempts on an item are strictly sequential,
// so its counters are only touched by whoever currently holds the item.
type WorkItem struct {
	ItemID            string    `json:"item_id"`
	SourcePath        string    `json:"source_path"`
	Name              string    `json:"name"`
	Attempts          int       `json:"attempts"`
	TransportFailures int       `json:"transport_failures"`
	BusyResponses     int       `json:"busy_responses"`
	EnqueuedAt        time.Time `json:"enqueued_at"`
}

func NewWorkItem(itemID, sourcePath string) *WorkItem {
	return &WorkItem{
		ItemID:     itemID,
		SourcePath: sourcePath,
		Name:       filepath.Base(sourcePath),
		EnqueuedAt: time.Now(),
	}
}

type ItemStatus string

const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusFailed    ItemStatus = "failed"
)

// ItemResult is the terminal record of one WorkItem.
type ItemResult struct {
	RunID    string        `json:"run_id"`
	ItemID   string        `json:"item_id"`
	Name     string        `json:"name"`
	Status   ItemStatus    `json:"status"`
	Location string        `json:"location,omitempty"`
	Error    string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// RunSummary is published once a run is drained.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Action    string    `json:"action"`
	Submitted int64     `json:"submitted"`
	Succeeded int64     `json:"succeeded"`
	Failed    int64     `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}
