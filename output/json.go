package output

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/version"
)

// QueryOutput is the JSON envelope printed by the query command and served by
// the records endpoint.
type QueryOutput struct {
	Metadata Metadata             `json:"metadata"`
	General  General              `json:"general"`
	Filters  filter.Selection     `json:"filters"`
	Options  *filter.Options      `json:"options,omitempty"`
	Bounds   *filter.SliderBounds `json:"bounds,omitempty"`
	Center   filter.Point         `json:"center"`
	Summary  filter.Summary       `json:"summary"`
	Records  []dataset.Record     `json:"records"`
	Warnings []Warning            `json:"warnings"`
	Errors   []Error              `json:"errors"`

	// Mutex for thread-safe warning/error appending
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the run
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	QueryType   string    `json:"query_type"`
	Version     string    `json:"version"`
	DurationMS  int64     `json:"duration_ms"`
}

// General describes the dataset the query ran against
type General struct {
	DataFile        string    `json:"data_file,omitempty"`
	LoadedAt        time.Time `json:"loaded_at"`
	TotalRecords    int       `json:"total_records"`
	FilteredRecords int       `json:"filtered_records"`
	ReturnedRecords int       `json:"returned_records"`
	Parallel        bool      `json:"parallel,omitempty"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// NewQueryOutput creates a new QueryOutput with default metadata
func NewQueryOutput(queryType string, startTime time.Time) *QueryOutput {
	return &QueryOutput{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC(),
			QueryType:   queryType,
			Version:     version.Version,
			DurationMS:  time.Since(startTime).Milliseconds(),
		},
		Records:  []dataset.Record{},
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// SetRecords stores rows, keeping at most limit of them when limit > 0.
func (q *QueryOutput) SetRecords(rows []dataset.Record, limit int) {
	q.General.FilteredRecords = len(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		q.AddWarning("truncated", "record list truncated by limit", limit)
	}
	q.Records = rows
	q.General.ReturnedRecords = len(rows)
}

// ToJSON converts the output to pretty-printed JSON
func (q *QueryOutput) ToJSON() ([]byte, error) {
	return json.MarshalIndent(q, "", "  ")
}

// ToCompactJSON converts the output to compact JSON
func (q *QueryOutput) ToCompactJSON() ([]byte, error) {
	return json.Marshal(q)
}

// AddWarning adds a warning to the output (thread-safe)
func (q *QueryOutput) AddWarning(warningType, message string, count int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Warnings = append(q.Warnings, Warning{
		Type:    warningType,
		Message: message,
		Count:   count,
	})
}

// AddError adds an error to the output (thread-safe)
func (q *QueryOutput) AddError(errorType, message string, count int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Errors = append(q.Errors, Error{
		Type:    errorType,
		Message: message,
		Count:   count,
	})
}

// UpdateDuration updates the duration in metadata
func (q *QueryOutput) UpdateDuration(startTime time.Time) {
	q.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}
