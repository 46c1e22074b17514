// Package scenario declares what a simulated user does: a wait-time policy
// and a weighted table of tasks that build requests.
package scenario

// Scenario is one user's behaviour. The runtime builds a fresh Scenario per
// user, so implementations may hold per-user state.
type Scenario interface {
	WaitTime() WaitTimeFunc
	Tasks() *TaskTable
}

// Factory builds the Scenario for a user from that user's randomness.
type Factory func(r Rand) (Scenario, error)
