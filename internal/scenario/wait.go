package scenario

import "time"

// WaitTimeFunc returns how long a user pauses after a task.
type WaitTimeFunc func(r Rand) time.Duration

// Between waits a uniformly random duration in [min, max].
func Between(min, max time.Duration) WaitTimeFunc {
	if max < min {
		min, max = max, min
	}
	span := max - min
	return func(r Rand) time.Duration {
		if span == 0 {
			return min
		}
		// +1ns keeps max itself reachable
		return min + time.Duration(r.IntN(int(span)+1))
	}
}

func Constant(d time.Duration) WaitTimeFunc {
	return func(Rand) time.Duration {
		return d
	}
}
