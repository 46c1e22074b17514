package runner

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Host      string            `json:"host"`
	Users     int               `json:"users"`
	SpawnRate float64           `json:"spawn_rate"` // users started per second
	RunTime   time.Duration     `json:"run_time"`   // 0 runs until the context is cancelled
	Timeout   time.Duration     `json:"timeout"`
	Headers   map[string]string `json:"headers,omitempty"`
	OutPrefix string            `json:"out_prefix,omitempty"`
	Seed      uint64            `json:"seed"` // 0 seeds from the clock
}

func DefaultConfig() Config {
	return Config{
		Host:      "http://localhost:8080",
		Users:     1,
		SpawnRate: 1,
		Timeout:   10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	u, err := url.Parse(c.Host)
	if err != nil {
		return fmt.Errorf("invalid host %q: %w", c.Host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid host %q: scheme must be http or https", c.Host)
	}
	if c.Users < 1 {
		return fmt.Errorf("users must be at least 1, got %d", c.Users)
	}
	if c.SpawnRate <= 0 {
		return fmt.Errorf("spawn rate must be positive, got %v", c.SpawnRate)
	}
	if c.RunTime < 0 {
		return fmt.Errorf("run time must not be negative, got %s", c.RunTime)
	}
	// in-flight requests outlive a stop, so only the timeout bounds shutdown
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// RampUp is how long it takes to start every user.
func (c Config) RampUp() time.Duration {
	if c.Users <= 1 || c.SpawnRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Users-1) / c.SpawnRate * float64(time.Second))
}

type ExperimentResult struct {
	TimeStamp    time.Time     `json:"timestamp"`
	Latency      time.Duration `json:"latency"`
	Method       string        `json:"method"`
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	Status       int           `json:"status"`
	Success      bool          `json:"success"`
	Bytes        int64         `json:"bytes"`
	UserID       string        `json:"user_id"`
	Err          error         `json:"-"`
	Error        string        `json:"error,omitempty"`
	ResponseBody string        `json:"response_body,omitempty"`
}
