package sinks

import (
	"time"

	"github.com/samvad-hq/samvad-pulse/internal/domain"
)

// Alert states.
const (
	StateDown      = "down"
	StateRecovered = "recovered"
)

// Alert represents the payload delivered downstream when a target changes
// health state.
type Alert struct {
	TargetID   string    `json:"target_id"`
	TargetName string    `json:"target_name"`
	State      string    `json:"state"`
	Kind       string    `json:"kind,omitempty"`
	Status     int       `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAlert constructs an Alert for the given target + sample.
func NewAlert(targetName, state string, sample domain.Sample) Alert {
	return Alert{
		TargetID:   sample.TargetID,
		TargetName: targetName,
		State:      state,
		Kind:       sample.Kind,
		Status:     sample.Status,
		Detail:     sample.Detail,
		LatencyMs:  sample.LatencyMs,
		OccurredAt: time.Now().UTC(),
	}
}
