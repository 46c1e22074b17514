package scenario

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoTasks       = errors.New("task table has no task with a positive weight")
	ErrInvalidWeight = errors.New("task weight must not be negative")
)

// Rand is the randomness a user needs. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// TaskFunc issues zero or more requests through c. It never sees the outcome
// of a request; that goes to the runtime's stats.
type TaskFunc func(ctx context.Context, c Client)

type Task struct {
	Name   string
	Weight int
	Fn     TaskFunc
}

// TaskTable is an ordered, immutable set of weighted tasks.
type TaskTable struct {
	tasks []Task
	total int
}

func NewTaskTable(tasks ...Task) (*TaskTable, error) {
	total := 0
	for _, t := range tasks {
		if t.Weight < 0 {
			return nil, fmt.Errorf("task %q: %w", t.Name, ErrInvalidWeight)
		}
		if t.Fn == nil {
			return nil, fmt.Errorf("task %q has no function", t.Name)
		}
		total += t.Weight
	}
	if total == 0 {
		return nil, ErrNoTasks
	}

	cp := make([]Task, len(tasks))
	copy(cp, tasks)
	return &TaskTable{tasks: cp, total: total}, nil
}

// Pick selects a task with probability weight / total.
func (t *TaskTable) Pick(r Rand) Task {
	n := r.IntN(t.total)
	for _, task := range t.tasks {
		if n < task.Weight {
			return task
		}
		n -= task.Weight
	}
	// unreachable while total is the sum of weights
	return t.tasks[len(t.tasks)-1]
}

func (t *TaskTable) Tasks() []Task {
	cp := make([]Task, len(t.tasks))
	copy(cp, t.tasks)
	return cp
}

func (t *TaskTable) TotalWeight() int {
	return t.total
}
