package pipeline

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/cleaner"
)

// RunMetrics tracks counters and stage timings for one cleaning run
type RunMetrics struct {
	mu                    sync.Mutex
	logger                *zap.Logger
	RunID                 string
	StartTime             time.Time
	EndTime               time.Time
	RowsRead              int
	IncompleteRowsDropped int
	RowsOut               int
	InvalidValues         int
	CleaningActions       int
	PeakMemoryUsage       int64
	ErrorCounts           map[cleaner.ErrorCategory]int
	StageDurations        map[string]time.Duration
	stageOrder            []string
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(runID string, logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		logger:         logger,
		RunID:          runID,
		StartTime:      time.Now(),
		ErrorCounts:    make(map[cleaner.ErrorCategory]int),
		StageDurations: make(map[string]time.Duration),
	}
}

// StartStage begins timing a stage; call the returned func when it ends
func (m *RunMetrics) StartStage(name string) func() {
	start := time.Now()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, seen := m.StageDurations[name]; !seen {
			m.stageOrder = append(m.stageOrder, name)
		}
		elapsed := time.Since(start)
		m.StageDurations[name] += elapsed
		m.sampleMemory()

		if m.logger != nil {
			m.logger.Debug("Stage completed",
				zap.String("stage", name),
				zap.Duration("duration", elapsed))
		}
	}
}

// RecordIssues counts error records by category
func (m *RunMetrics) RecordIssues(records []cleaner.ErrorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for category, n := range cleaner.Summarize(records) {
		m.ErrorCounts[category] += n
	}
}

// sampleMemory keeps the peak heap allocation; caller holds the lock
func (m *RunMetrics) sampleMemory() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	if alloc := int64(memStats.Alloc); alloc > m.PeakMemoryUsage {
		m.PeakMemoryUsage = alloc
	}
}

// Complete marks the run as complete
func (m *RunMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	m.sampleMemory()

	if m.logger != nil {
		m.logger.Info("Cleaning run completed",
			zap.String("run_id", m.RunID),
			zap.Duration("duration", m.Duration()),
			zap.Int("rows_read", m.RowsRead),
			zap.Int("rows_out", m.RowsOut),
			zap.Int("invalid_values", m.InvalidValues),
			zap.Int("cleaning_actions", m.CleaningActions))
	}
}

// Duration returns the total duration of the run
func (m *RunMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// RowsRemoved returns how many rows the run removed in total
func (m *RunMetrics) RowsRemoved() int {
	return m.RowsRead - m.RowsOut
}

// formatBytes converts bytes to a human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// GenerateMetricsReport renders the run metrics as text
func (m *RunMetrics) GenerateMetricsReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := fmt.Sprintf(`
Cleaning Metrics Report
=======================
Run ID:                  %s
Duration:                %s

Rows
----
Rows Read:               %d
Incomplete Rows Dropped: %d
Rows Out:                %d

Cleaning
--------
Invalid Values:          %d
Cleaning Actions:        %d
Peak Memory Usage:       %s
`,
		m.RunID,
		formatDuration(m.Duration()),
		m.RowsRead,
		m.IncompleteRowsDropped,
		m.RowsOut,
		m.InvalidValues,
		m.CleaningActions,
		formatBytes(m.PeakMemoryUsage),
	)

	if len(m.stageOrder) > 0 {
		report += "\nStages\n------\n"
		for _, stage := range m.stageOrder {
			report += fmt.Sprintf("- %s: %s\n", stage, formatDuration(m.StageDurations[stage]))
		}
	}

	if len(m.ErrorCounts) > 0 {
		report += "\nIssue Distribution\n------------------\n"
		categories := make([]cleaner.ErrorCategory, 0, len(m.ErrorCounts))
		for category := range m.ErrorCounts {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			report += fmt.Sprintf("- %s: %d\n", category, m.ErrorCounts[category])
		}
	}

	return report
}

// ToJSON serializes metrics to JSON
func (m *RunMetrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issues := make(map[string]int, len(m.ErrorCounts))
	for category, n := range m.ErrorCounts {
		issues[category.String()] = n
	}
	stages := make(map[string]string, len(m.StageDurations))
	for stage, d := range m.StageDurations {
		stages[stage] = d.String()
	}

	return json.Marshal(struct {
		RunID                 string            `json:"runId"`
		Duration              string            `json:"duration"`
		RowsRead              int               `json:"rowsRead"`
		IncompleteRowsDropped int               `json:"incompleteRowsDropped"`
		RowsOut               int               `json:"rowsOut"`
		InvalidValues         int               `json:"invalidValues"`
		CleaningActions       int               `json:"cleaningActions"`
		PeakMemoryUsage       int64             `json:"peakMemoryUsage"`
		Issues                map[string]int    `json:"issues"`
		Stages                map[string]string `json:"stages"`
	}{
		RunID:                 m.RunID,
		Duration:              m.Duration().String(),
		RowsRead:              m.RowsRead,
		IncompleteRowsDropped: m.IncompleteRowsDropped,
		RowsOut:               m.RowsOut,
		InvalidValues:         m.InvalidValues,
		CleaningActions:       m.CleaningActions,
		PeakMemoryUsage:       m.PeakMemoryUsage,
		Issues:                issues,
		Stages:                stages,
	})
}
