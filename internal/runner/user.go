package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"productload/internal/scenario"
)

type UserState int32

const (
	UserIdle UserState = iota
	UserRunning
	UserWaiting
	UserStopped
)

func (s UserState) String() string {
	switch s {
	case UserIdle:
		return "idle"
	case UserRunning:
		return "running"
	case UserWaiting:
		return "waiting"
	case UserStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser runs one scenario instance: pick a task, run it to completion,
// wait, repeat. Tasks of a single user never overlap.
type VirtualUser struct {
	ID       string
	Index    int
	Scenario scenario.Scenario
	Client   scenario.Client
	Rand     scenario.Rand

	state      atomic.Int32
	iterations atomic.Uint64
}

func NewVirtualUser(id string, index int, sc scenario.Scenario, c scenario.Client, r scenario.Rand) *VirtualUser {
	return &VirtualUser{
		ID:       id,
		Index:    index,
		Scenario: sc,
		Client:   c,
		Rand:     r,
	}
}

// Run blocks until ctx is done. Cancellation is observed between tasks only.
func (u *VirtualUser) Run(ctx context.Context) {
	defer u.setState(UserStopped)

	tasks := u.Scenario.Tasks()
	wait := u.Scenario.WaitTime()

	log.Debug().Str("user", u.ID).Int("index", u.Index).Msg("user started")
	for {
		if ctx.Err() != nil {
			break
		}

		u.setState(UserRunning)
		task := tasks.Pick(u.Rand)
		task.Fn(ctx, u.Client)
		u.iterations.Add(1)

		u.setState(UserWaiting)
		if !sleep(ctx, wait(u.Rand)) {
			break
		}
	}
	log.Debug().Str("user", u.ID).Uint64("iterations", u.Iterations()).Msg("user stopped")
}

func (u *VirtualUser) State() UserState {
	return UserState(u.state.Load())
}

func (u *VirtualUser) Iterations() uint64 {
	return u.iterations.Load()
}

func (u *VirtualUser) setState(s UserState) {
	u.state.Store(int32(s))
}

// sleep reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
