// Package health tracks upstream connectivity for the health and ping
// endpoints. The last probe outcome is kept in memory and, when a Redis
// client is configured, shared with other instances.
package health

import (
	"time"

	"github.com/Sternrassler/manga-proxy/pkg/upstream"
)

// RedisKeyState holds the JSON-encoded last probe state.
const RedisKeyState = "manga:health:state"

// StatusUnknown is reported before the first probe has completed.
const StatusUnknown = "unknown"

// State is the outcome of the most recent connectivity probe.
type State struct {
	// Status is the probe outcome (connected, disconnected, error).
	Status upstream.ProbeStatus `json:"status"`

	// CheckedAt is when the probe finished.
	CheckedAt time.Time `json:"checked_at"`
}

// APIStatus returns the status string shown to clients.
func (s State) APIStatus() string {
	if s.Status == "" {
		return StatusUnknown
	}
	return string(s.Status)
}

// IsStale returns true if the state is older than maxAge, or was never set.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	if s.CheckedAt.IsZero() {
		return true
	}
	return now.Sub(s.CheckedAt) > maxAge
}

// IsHealthy reports whether the last probe reached the upstream.
func (s State) IsHealthy() bool {
	return s.Status == upstream.ProbeConnected
}
