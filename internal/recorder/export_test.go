package recorder

import "time"

// SetStallPolicy shortens the stall monitor for tests. Call before Start.
func SetStallPolicy(m *Manager, interval time.Duration, checks int) {
	m.stallInterval = interval
	m.stallChecks = checks
}
