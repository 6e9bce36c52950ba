package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a fulfillment job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusRequesting     Status = "requesting"
	StatusParsing        Status = "parsing"
	StatusBuildingRights Status = "building_rights"
	StatusDownloading    Status = "downloading"
	StatusClassifying    Status = "classifying"
	StatusFinalizing     Status = "finalizing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRequesting,
	StatusParsing,
	StatusBuildingRights,
	StatusDownloading,
	StatusClassifying,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusRequesting:     {},
	StatusParsing:        {},
	StatusBuildingRights: {},
	StatusDownloading:    {},
	StatusClassifying:    {},
	StatusFinalizing:     {},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Item represents a fulfillment job persisted in SQLite.
type Item struct {
	ID              int64
	RequestID       string
	RequestPath     string
	Title           string
	Status          Status
	Format          string
	OutputPath      string
	RightsBuilt     bool
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
}

// IsTerminal reports whether the item reached a final state.
func (i Item) IsTerminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed
}
