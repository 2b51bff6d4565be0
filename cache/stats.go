package cache

import "time"

// Stats is a point-in-time snapshot of store occupancy and accounting.
// Counters are running totals since construction (or the last Clear).
type Stats struct {
	Size      int           `json:"size"`
	Capacity  int           `json:"capacity"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Evictions uint64        `json:"evictions"`
	HitRate   float64       `json:"hit_rate"`
	TTL       time.Duration `json:"ttl"`
}
