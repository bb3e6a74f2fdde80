package domain

import "time"

// Domain contains core models shared across the monitor.

// Sample is one probe observation for a target.
type Sample struct {
	TargetID  string    `json:"target_id"`
	Healthy   bool      `json:"healthy"`
	Kind      string    `json:"kind,omitempty"` // failure kind when unhealthy
	Status    int       `json:"status,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
