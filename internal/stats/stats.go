package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counters holds request counts and a latency histogram for one group of
// requests.
type Counters struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	// Latency histogram (microseconds)
	ResponseTime *SafeHistogram
}

func newCounters() *Counters {
	return &Counters{ResponseTime: NewSafeHistogram()}
}

func (c *Counters) add(success bool, bytes int64, latency time.Duration) {
	atomic.AddUint64(&c.Requests, 1)
	if success {
		atomic.AddUint64(&c.Success, 1)
	} else {
		atomic.AddUint64(&c.Fail, 1)
	}
	if bytes > 0 {
		atomic.AddUint64(&c.Bytes, uint64(bytes))
	}
	c.ResponseTime.Record(latency)
}

func (c *Counters) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&c.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&c.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

// PercentileMs returns the latency at quantile q (0-100) in milliseconds.
func (c *Counters) PercentileMs(q float64) float64 {
	return float64(c.ResponseTime.ValueAtQuantile(q)) / 1000.0
}

func (c *Counters) AvgMs() float64 {
	return c.ResponseTime.Mean() / 1000.0
}

func (c *Counters) MinMs() float64 {
	return float64(c.ResponseTime.Min()) / 1000.0
}

func (c *Counters) MaxMs() float64 {
	return float64(c.ResponseTime.Max()) / 1000.0
}

// Entry is the stats of one request name, e.g. "GET /products/[id]".
type Entry struct {
	Method string
	Name   string
	*Counters
}

// Stats holds real-time aggregated metrics
type Stats struct {
	Total *Counters

	mu      sync.RWMutex
	entries map[entryKey]*Entry
	errors  map[string]uint64
}

type entryKey struct {
	method, name string
}

func NewStats() *Stats {
	return &Stats{
		Total:   newCounters(),
		entries: make(map[entryKey]*Entry),
		errors:  make(map[string]uint64),
	}
}

// Add records one request. errMsg is empty on success.
func (s *Stats) Add(method, name string, success bool, bytes int64, latency time.Duration, errMsg string) {
	s.Total.add(success, bytes, latency)
	s.entry(method, name).add(success, bytes, latency)

	if !success && errMsg != "" {
		s.mu.Lock()
		s.errors[method+" "+name+": "+errMsg]++
		s.mu.Unlock()
	}
}

func (s *Stats) entry(method, name string) *Entry {
	k := entryKey{method, name}

	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[k]; ok {
		return e
	}
	e = &Entry{Method: method, Name: name, Counters: newCounters()}
	s.entries[k] = e
	return e
}

// Entries returns the per-name stats sorted by name, then method.
func (s *Stats) Entries() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ErrorCounts returns occurrences keyed by "METHOD name: error".
func (s *Stats) ErrorCounts() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]uint64, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

func (s *Stats) ErrorRate() float64 {
	return s.Total.ErrorRate()
}

func (s *Stats) GetP50() float64 { return s.Total.PercentileMs(50) }
func (s *Stats) GetP90() float64 { return s.Total.PercentileMs(90) }
func (s *Stats) GetP95() float64 { return s.Total.PercentileMs(95) }
func (s *Stats) GetP99() float64 { return s.Total.PercentileMs(99) }
