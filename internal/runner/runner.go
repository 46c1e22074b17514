package runner

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"productload/internal/scenario"
	"productload/internal/stats"
)

const tickInterval = 200 * time.Millisecond

// EntrySnapshot is a copy of one request name's stats.
type EntrySnapshot struct {
	Method   string
	Name     string
	Requests uint64
	Fail     uint64
	AvgMs    float64
	P90Ms    float64
}

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64
	Inflight int64
	Users    int64
	Elapsed  time.Duration

	// Pre-calculated percentiles for the UI (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64

	Entries []EntrySnapshot
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Runner spawns virtual users, lets them run for the configured time and
// aggregates every request they make.
type Runner struct {
	ID      string
	Cfg     Config
	Stats   *stats.Stats
	Client  *http.Client
	Factory scenario.Factory
	Results []ExperimentResult
	mu      sync.Mutex

	inflight int64
	users    int64
	started  time.Time
	ended    time.Time
	startMu  sync.RWMutex

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, factory scenario.Factory, updates StatsUpdateChan) *Runner {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		ID:      uuid.NewString(),
		Cfg:     cfg,
		Stats:   stats.NewStats(),
		Client:  client,
		Factory: factory,
		Updates: updates,
	}
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Snapshot copies the current counters.
func (r *Runner) Snapshot() StatsSnapshot {
	total := r.Stats.Total
	s := StatsSnapshot{
		Requests: atomic.LoadUint64(&total.Requests),
		Success:  atomic.LoadUint64(&total.Success),
		Fail:     atomic.LoadUint64(&total.Fail),
		Bytes:    atomic.LoadUint64(&total.Bytes),
		Inflight: atomic.LoadInt64(&r.inflight),
		Users:    atomic.LoadInt64(&r.users),
		Elapsed:  r.Elapsed(),
		P50Ms:    r.Stats.GetP50(),
		P90Ms:    r.Stats.GetP90(),
		P99Ms:    r.Stats.GetP99(),
		MaxMs:    total.MaxMs(),
	}
	for _, e := range r.Stats.Entries() {
		s.Entries = append(s.Entries, EntrySnapshot{
			Method:   e.Method,
			Name:     e.Name,
			Requests: atomic.LoadUint64(&e.Requests),
			Fail:     atomic.LoadUint64(&e.Fail),
			AvgMs:    e.AvgMs(),
			P90Ms:    e.PercentileMs(90),
		})
	}
	return s
}

// Record implements Recorder.
func (r *Runner) Record(res ExperimentResult) {
	r.Stats.Add(res.Method, res.Name, res.Success, res.Bytes, res.Latency, res.Error)
	if !res.Success {
		log.Debug().Str("user", res.UserID).Str("url", res.URL).Int("status", res.Status).
			Str("error", res.Error).Msg("request failed")
	}

	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()
}

// ResultsCopy is safe to call while the run is in progress.
func (r *Runner) ResultsCopy() []ExperimentResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExperimentResult, len(r.Results))
	copy(out, r.Results)
	return out
}

// Run spawns Cfg.Users users at Cfg.SpawnRate and blocks until Cfg.RunTime
// has elapsed or ctx is cancelled, then waits for every user to finish its
// current task.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if r.Factory == nil {
		return fmt.Errorf("no scenario configured")
	}

	var cancel context.CancelFunc
	if r.Cfg.RunTime > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.RunTime)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.startMu.Lock()
	r.started = time.Now()
	r.startMu.Unlock()

	seed := r.Cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	log.Info().Str("run", r.ID).Str("host", r.Cfg.Host).Int("users", r.Cfg.Users).
		Float64("spawn_rate", r.Cfg.SpawnRate).Dur("run_time", r.Cfg.RunTime).Msg("run started")

	// Start Tick Loop for UI
	r.StartTickLoop(ctx, tickInterval)

	var wg sync.WaitGroup
	err := r.spawn(ctx, &wg, seed)
	if err != nil {
		cancel()
	}

	<-ctx.Done()
	wg.Wait()

	r.startMu.Lock()
	r.ended = time.Now()
	r.startMu.Unlock()
	r.sendUpdate()

	log.Info().Str("run", r.ID).Uint64("requests", atomic.LoadUint64(&r.Stats.Total.Requests)).
		Uint64("failures", atomic.LoadUint64(&r.Stats.Total.Fail)).Dur("elapsed", r.Elapsed()).Msg("run finished")
	return err
}

func (r *Runner) spawn(ctx context.Context, wg *sync.WaitGroup, seed uint64) error {
	interval := time.Duration(float64(time.Second) / r.Cfg.SpawnRate)

	for i := 0; i < r.Cfg.Users; i++ {
		if i > 0 && !sleep(ctx, interval) {
			log.Info().Int("spawned", i).Msg("stopped while spawning users")
			return nil
		}

		u, err := r.newUser(i, seed)
		if err != nil {
			return fmt.Errorf("create user %d: %w", i, err)
		}

		wg.Add(1)
		atomic.AddInt64(&r.users, 1)
		go func() {
			defer wg.Done()
			defer atomic.AddInt64(&r.users, -1)
			u.Run(ctx)
		}()
	}
	log.Info().Int("users", r.Cfg.Users).Msg("all users spawned")
	return nil
}

func (r *Runner) newUser(index int, seed uint64) (*VirtualUser, error) {
	rng := rand.New(rand.NewPCG(seed, uint64(index)))
	sc, err := r.Factory(rng)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	client := &HTTPClient{
		Host:     r.Cfg.Host,
		HTTP:     r.Client,
		Headers:  r.Cfg.Headers,
		UserID:   id,
		Recorder: r,
		Inflight: &r.inflight,
	}
	return NewVirtualUser(id, index, sc, client, rng), nil
}

func (r *Runner) Elapsed() time.Duration {
	r.startMu.RLock()
	defer r.startMu.RUnlock()
	if r.started.IsZero() {
		return 0
	}
	if !r.ended.IsZero() {
		return r.ended.Sub(r.started)
	}
	return time.Since(r.started)
}

func (r *Runner) GetInflight() int64 {
	return atomic.LoadInt64(&r.inflight)
}

func (r *Runner) ActiveUsers() int64 {
	return atomic.LoadInt64(&r.users)
}
