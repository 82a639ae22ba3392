package recorder

import (
	"context"
	"time"

	"lectern/internal/logging"
)

// monitor watches for a cursor that stops moving. After stallChecks unchanged
// intervals it pings the page; an unresponsive page forces the loop onward.
func (m *Manager) monitor(ctx context.Context, id string) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.stallInterval)
	defer ticker.Stop()

	last, ok := m.cursorOf(id)
	if !ok {
		return
	}
	unchanged := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cursor, ok := m.cursorOf(id)
		if !ok {
			return
		}
		if cursor != last {
			last = cursor
			unchanged = 0
			continue
		}
		unchanged++
		if unchanged < m.stallChecks {
			continue
		}
		unchanged = 0
		m.recoverStall(ctx, id)
	}
}

func (m *Manager) cursorOf(id string) (Cursor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.currentLocked(id)
	if !ok {
		return Cursor{}, false
	}
	return sess.Cursor, true
}

func (m *Manager) recoverStall(ctx context.Context, id string) {
	m.mu.Lock()
	sess, ok := m.currentLocked(id)
	if !ok {
		m.mu.Unlock()
		return
	}
	page, strategy := sess.Page, sess.Strategy
	m.mu.Unlock()

	if strategy == StrategySequential {
		pingCtx, cancel := m.agentContext(ctx)
		err := m.agent.Ping(pingCtx, page)
		cancel()
		if err == nil {
			logging.WarnWithContext(m.logger, "agent responsive but recording stalled", "recording_stalled",
				logging.String(logging.FieldSessionID, id),
				logging.String(logging.FieldErrorHint, "check the player tab; run lectern force-advance to skip the lecture"),
			)
			return
		}
		logging.WarnWithContext(m.logger, "page agent unresponsive; forcing advance", "agent_unresponsive",
			logging.String(logging.FieldSessionID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the current lecture is recorded as failed"),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok = m.currentLocked(id)
	if !ok {
		return
	}
	if err := m.forceAdvanceLocked(ctx, sess, "recording stalled"); err != nil {
		m.logger.Info("stall recovery ended the session", logging.Error(err))
	}
}
