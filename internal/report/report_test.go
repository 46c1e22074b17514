package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productload/internal/runner"
	"productload/internal/scenario"
)

func recordedRunner() *runner.Runner {
	cfg := runner.DefaultConfig()
	cfg.Users = 3
	r := runner.NewRunner(cfg, scenario.NewProductFactory(), nil)

	now := time.Now()
	r.Record(runner.ExperimentResult{
		TimeStamp: now, Latency: 12 * time.Millisecond, Method: "GET", Name: scenario.ProductName,
		URL: "http://localhost:8080/products/42", Status: 200, Success: true, Bytes: 120, UserID: "u1",
	})
	r.Record(runner.ExperimentResult{
		TimeStamp: now, Latency: 4 * time.Millisecond, Method: "GET", Name: scenario.ProductName,
		URL: "http://localhost:8080/products/7", Status: 404, Bytes: 18, UserID: "u2",
		Error: "HTTP 404 Not Found",
	})
	r.Record(runner.ExperimentResult{
		TimeStamp: now, Latency: 20 * time.Millisecond, Method: "POST", Name: scenario.ProductDetailsName,
		URL: "http://localhost:8080/products/42/details", Status: 204, Success: true, UserID: "u1",
	})
	return r
}

func TestNewSummary(t *testing.T) {
	s := NewSummary(recordedRunner())

	assert.EqualValues(t, 3, s.Total.Requests)
	assert.EqualValues(t, 1, s.Total.Failures)
	require.Len(t, s.Entries, 2)
	assert.Equal(t, scenario.ProductName, s.Entries[0].Name)
	assert.EqualValues(t, 2, s.Entries[0].Requests)
	assert.InDelta(t, 4, s.Entries[0].MinMs, 0.1)
	assert.InDelta(t, 12, s.Entries[0].MaxMs, 0.1)
	assert.Equal(t, map[string]uint64{"GET /products/[id]: HTTP 404 Not Found": 1}, s.Errors)
}

func TestWriteStatsTable(t *testing.T) {
	var buf bytes.Buffer
	WriteStatsTable(&buf, NewSummary(recordedRunner()))

	out := buf.String()
	assert.Contains(t, out, "# reqs")
	assert.Contains(t, out, "/products/[id]/details")
	assert.Contains(t, out, "1(50.00%)")
	assert.Contains(t, out, "Aggregated")
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	WriteFailures(&buf, Summary{})
	assert.Empty(t, buf.String())

	WriteFailures(&buf, NewSummary(recordedRunner()))
	assert.Contains(t, buf.String(), "GET /products/[id]: HTTP 404 Not Found")
}

func TestExportAll(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, ExportAll(recordedRunner(), prefix))

	f, err := os.Open(prefix + ".csv")
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "timeStamp", rows[0][0])
	assert.Equal(t, "GET /products/[id]", rows[1][2])
	assert.Equal(t, "Not Found", rows[2][4])
	assert.Equal(t, "false", rows[2][7])
	assert.Equal(t, "3", rows[1][11])

	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)
	var results []runner.ExperimentResult
	require.NoError(t, json.Unmarshal(data, &results))
	assert.Len(t, results, 3)
	assert.Equal(t, "HTTP 404 Not Found", results[1].Error)

	data, err = os.ReadFile(prefix + "_summary.json")
	require.NoError(t, err)
	var s Summary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.EqualValues(t, 3, s.Total.Requests)
	assert.Len(t, s.Entries, 2)
}
