package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"productload/internal/runner"
	"productload/internal/stats"
)

// ExportCSV exports results to a JMeter-compatible CSV file.
// Schema: timeStamp,elapsed,label,responseCode,responseMessage,threadName,dataType,success,failureMessage,bytes,sentBytes,grpThreads,allThreads,URL,Latency,IdleTime,Connect
func ExportCSV(results []runner.ExperimentResult, users int, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	// Header
	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "dataType", "success", "failureMessage", "bytes",
		"sentBytes", "grpThreads", "allThreads", "URL", "Latency", "IdleTime", "Connect",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	threads := strconv.Itoa(users)
	for _, res := range results {
		elapsed := strconv.FormatInt(res.Latency.Milliseconds(), 10)

		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			elapsed,
			res.Method + " " + res.Name,
			strconv.Itoa(res.Status),
			http.StatusText(res.Status),
			"User-" + res.UserID,
			"text",
			strconv.FormatBool(res.Success),
			res.Error,
			strconv.FormatInt(res.Bytes, 10),
			"0", // sent bytes are not tracked
			threads,
			threads,
			res.URL,
			elapsed,
			"0",
			"0", // connect time is part of elapsed
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ExportJSON exports results to a JSON file.
func ExportJSON(results []runner.ExperimentResult, filename string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

type EntrySummary struct {
	Method   string  `json:"method"`
	Name     string  `json:"name"`
	Requests uint64  `json:"requests"`
	Failures uint64  `json:"failures"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
	RPS      float64 `json:"rps"`
}

type Summary struct {
	RunID    string            `json:"run_id"`
	Config   runner.Config     `json:"config"`
	Duration time.Duration     `json:"duration"`
	Total    EntrySummary      `json:"total"`
	Entries  []EntrySummary    `json:"entries"`
	Errors   map[string]uint64 `json:"errors,omitempty"`
}

func summarize(method, name string, c *stats.Counters, elapsed time.Duration) EntrySummary {
	e := EntrySummary{
		Method:   method,
		Name:     name,
		Requests: atomic.LoadUint64(&c.Requests),
		Failures: atomic.LoadUint64(&c.Fail),
		AvgMs:    c.AvgMs(),
		MinMs:    c.MinMs(),
		MaxMs:    c.MaxMs(),
		P50Ms:    c.PercentileMs(50),
		P95Ms:    c.PercentileMs(95),
		P99Ms:    c.PercentileMs(99),
	}
	if elapsed > 0 {
		e.RPS = float64(e.Requests) / elapsed.Seconds()
	}
	return e
}

// NewSummary builds the aggregate view of a finished run.
func NewSummary(r *runner.Runner) Summary {
	elapsed := r.Elapsed()
	s := Summary{
		RunID:    r.ID,
		Config:   r.Cfg,
		Duration: elapsed,
		Total:    summarize("", "Aggregated", r.Stats.Total, elapsed),
		Errors:   r.Stats.ErrorCounts(),
	}
	for _, e := range r.Stats.Entries() {
		s.Entries = append(s.Entries, summarize(e.Method, e.Name, e.Counters, elapsed))
	}
	return s
}

// ExportSummary writes <prefix>_summary.json.
func ExportSummary(s Summary, prefix string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fmt.Sprintf("%s_summary.json", prefix), data, 0644)
}

// ExportAll writes <prefix>.csv, <prefix>.json and <prefix>_summary.json.
func ExportAll(r *runner.Runner, prefix string) error {
	results := r.ResultsCopy()
	if err := ExportCSV(results, r.Cfg.Users, prefix+".csv"); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := ExportJSON(results, prefix+".json"); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	if err := ExportSummary(NewSummary(r), prefix); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	return nil
}
