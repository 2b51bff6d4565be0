package lookup

import "time"

// backoffDelay returns the wait before poll attempt n (1-based): initial
// doubled per attempt, capped at max. The backend's Retry-After hint, when
// present, takes precedence over this curve.
func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
