package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"productload/internal/runner"
)

const (
	BucketRuns = "runs"
)

var ErrNotFound = errors.New("run not found")

type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Summary   RunSummary    `json:"summary"`
}

type RunSummary struct {
	TotalRequests uint64        `json:"total_requests"`
	Success       uint64        `json:"success"`
	Fail          uint64        `json:"fail"`
	Duration      time.Duration `json:"duration"`
	RPS           float64       `json:"rps"`
	AvgLatencyMs  float64       `json:"avg_latency_ms"`
	P50LatencyMs  float64       `json:"p50_latency_ms"`
	P99LatencyMs  float64       `json:"p99_latency_ms"`
}

// NewHistoryItem summarises a finished run.
func NewHistoryItem(r *runner.Runner) HistoryItem {
	total := r.Stats.Total
	elapsed := r.Elapsed()

	s := RunSummary{
		TotalRequests: atomic.LoadUint64(&total.Requests),
		Success:       atomic.LoadUint64(&total.Success),
		Fail:          atomic.LoadUint64(&total.Fail),
		Duration:      elapsed,
		AvgLatencyMs:  total.AvgMs(),
		P50LatencyMs:  r.Stats.GetP50(),
		P99LatencyMs:  r.Stats.GetP99(),
	}
	if elapsed > 0 {
		s.RPS = float64(s.TotalRequests) / elapsed.Seconds()
	}

	return HistoryItem{
		ID:        r.ID,
		Timestamp: time.Now().Add(-elapsed),
		Config:    r.Cfg,
		Summary:   s,
	}
}

type Store struct {
	db *bbolt.DB
}

// DefaultPath is $HOME/.productload/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".productload", "history.db"), nil
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}

		return b.Put(key(item), data)
	})
}

// keys sort by start time so a cursor walk is chronological
func key(item HistoryItem) []byte {
	return []byte(item.Timestamp.UTC().Format("20060102T150405.000000000") + "_" + item.ID)
}

// List returns runs newest first.
func (s *Store) List() ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			items = append(items, item)
		}
		return nil
	})

	return items, err
}

// Get finds a run by id or by a unique id prefix.
func (s *Store) Get(id string) (*HistoryItem, error) {
	var found *HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).ForEach(func(k, v []byte) error {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if len(id) == 0 || len(item.ID) < len(id) || item.ID[:len(id)] != id {
				return nil
			}
			if found != nil {
				return fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			found = &item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return found, nil
}
