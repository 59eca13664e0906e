package alerts

import (
	"context"
	"sync"
	"time"

	"safetrail/internal/domain/alert"
	"safetrail/internal/general/logger"
)

// Notifier receives the user-facing notification for an alert. Occurrence 0
// is the initial notification; 1 and 2 are the scheduled repeats.
type Notifier interface {
	Notify(a alert.Record, occurrence int)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(a alert.Record, occurrence int)

func (f NotifierFunc) Notify(a alert.Record, occurrence int) { f(a, occurrence) }

type entry struct {
	record alert.Record
	timers []*time.Timer
}

// Manager owns the live alert list: newest first, each alert expires after
// its TTL, and an unexpired alert is re-notified twice at even intervals.
// Duplicate alert IDs are inserted as independent entries, each with its own
// lifecycle.
type Manager struct {
	mu       sync.Mutex
	entries  []*entry
	ttl      time.Duration
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
	stopped  bool
}

func NewManager(notifier Notifier, log *logger.Logger) *Manager {
	return newManager(alert.TTL, notifier, log)
}

func newManager(ttl time.Duration, notifier Notifier, log *logger.Logger) *Manager {
	return &Manager{
		ttl:      ttl,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Receive inserts the alert at the head of the live list, fires the initial
// notification, and schedules the two repeats and the expiry removal.
func (m *Manager) Receive(ctx context.Context, rec alert.Record) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	now := m.now()
	rec.ExpiresAt = now.Add(m.ttl)
	e := &entry{record: rec}
	m.entries = append([]*entry{e}, m.entries...)

	// repeats at 1/3 and 2/3 of the TTL, removal at the TTL
	e.timers = []*time.Timer{
		time.AfterFunc(m.ttl/3, func() { m.repeat(e, 1) }),
		time.AfterFunc(2*m.ttl/3, func() { m.repeat(e, 2) }),
		time.AfterFunc(m.ttl, func() { m.remove(e) }),
	}
	m.mu.Unlock()

	m.log.Info(ctx, "alert_added", "alert entered live list", map[string]any{
		"alert_id": rec.ID,
		"category": rec.Category,
		"priority": rec.Priority,
	})
	m.notifier.Notify(rec, 0)
}

func (m *Manager) repeat(e *entry, occurrence int) {
	m.mu.Lock()
	live := !m.stopped && m.contains(e) && !e.record.Expired(m.now())
	m.mu.Unlock()
	if live {
		m.notifier.Notify(e.record, occurrence)
	}
}

func (m *Manager) remove(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.entries {
		if cur == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

func (m *Manager) contains(e *entry) bool {
	for _, cur := range m.entries {
		if cur == e {
			return true
		}
	}
	return false
}

// Live returns the unexpired alerts, newest first, pruning any entry whose
// expiry timer has not fired yet but whose deadline has passed.
func (m *Manager) Live() []alert.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	kept := m.entries[:0]
	out := make([]alert.Record, 0, len(m.entries))
	for _, e := range m.entries {
		if e.record.Expired(now) {
			for _, t := range e.timers {
				t.Stop()
			}
			continue
		}
		kept = append(kept, e)
		out = append(out, e.record)
	}
	m.entries = kept
	return out
}

// Stop cancels all pending notification and expiry timers. Safe to call more
// than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	for _, e := range m.entries {
		for _, t := range e.timers {
			t.Stop()
		}
	}
	m.entries = nil
}
