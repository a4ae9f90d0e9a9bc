package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"assessment-sync-be/internal/config"
	"assessment-sync-be/internal/pkg/logger"
	"assessment-sync-be/pkg/events"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
)

// ErrCapacity is returned when the hub is at its connection cap. New
// connections are shed outright rather than queued so existing sessions
// stay protected.
var ErrCapacity = errors.New("connection capacity reached")

// CloseCapacity is the close code sent on shed connections, distinct from the
// HTTP 401 used for auth failures so clients can tell "retry later" apart
// from "re-authenticate".
const CloseCapacity = websocket.CloseTryAgainLater

// Hub holds every open session of this process. Presence and subscriptions
// live only here: a deployment is assumed to run a single sync instance, and
// scaling out requires externalizing this state first.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}

	maxConnections int
	maxMessageSize int64
	presenceTTL    time.Duration

	registry *PresenceRegistry
	validate *validator.Validate
	logger   logger.ILogger
}

func NewHub(cfg config.SyncConfig, log logger.ILogger) *Hub {
	h := &Hub{
		sessions:       make(map[*Session]struct{}),
		maxConnections: cfg.MaxConnections,
		maxMessageSize: cfg.MaxMessageSize,
		presenceTTL:    cfg.PresenceTTL,
		validate:       validator.New(),
		logger:         log,
	}
	h.registry = NewPresenceRegistry(cfg.PresenceTTL, cfg.PresenceSweep, h.onPresenceEvicted)
	return h
}

// Register admits a session unless the cap is hit.
func (h *Hub) Register(s *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) >= h.maxConnections {
		return ErrCapacity
	}
	h.sessions[s] = struct{}{}
	h.logger.Info("Hub", "Session registered", map[string]interface{}{"session_id": s.id, "assessor_id": s.assessorID, "open": len(h.sessions)})
	return nil
}

// Unregister discards a session. A departing presence record is re-broadcast
// to its scope so other clients see the editor leave without waiting for the
// staleness sweep.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s)
	h.mu.Unlock()

	// Forget fires the eviction hook, which clears the presence record and
	// re-broadcasts the scope so the departure is visible immediately.
	h.registry.Forget(s.id)

	h.logger.Info("Hub", "Session unregistered", map[string]interface{}{"session_id": s.id})
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// onPresenceEvicted runs when the sweep (or an explicit Forget) reclaims a
// stale record.
func (h *Hub) onPresenceEvicted(s *Session) {
	if _, ok := s.Presence(); !ok {
		return
	}
	s.clearPresence()
	if scope := s.scopeID(); scope != "" {
		h.BroadcastPresence(scope)
	}
}

// Snapshot returns the live presence records of every session subscribed to
// the scope. Purely derived from session state at call time; records older
// than the server TTL are excluded even if the sweep has not reclaimed them
// yet.
func (h *Hub) Snapshot(scopeID string) []PresenceRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := make([]PresenceRecord, 0, 4)
	for s := range h.sessions {
		sub := s.Subscription()
		if sub == nil || sub.ScopeID != scopeID {
			continue
		}
		rec, ok := s.Presence()
		if !ok {
			continue
		}
		if time.Since(rec.LastSeenAt) > h.presenceTTL {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (h *Hub) presenceStateFrame(scopeID string) []byte {
	data, _ := json.Marshal(PresenceStateMessage{
		Type:      TypePresenceState,
		CourseID:  scopeID,
		Assessors: h.Snapshot(scopeID),
	})
	return data
}

// BroadcastPresence pushes the current presence state of a scope to every
// session subscribed to it.
func (h *Hub) BroadcastPresence(scopeID string) {
	frame := h.presenceStateFrame(scopeID)

	h.mu.RLock()
	var slow []*Session
	for s := range h.sessions {
		sub := s.Subscription()
		if sub == nil || sub.ScopeID != scopeID {
			continue
		}
		if !s.enqueue(frame) {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	h.evictSlow(slow)
}

// BroadcastChange fans one change event out to every matching session. The
// filter is inclusive within a scope: a session with an empty watch-list
// receives everything in its scope, and an event without an identifiable
// participant goes to the whole scope. An event without a scope is dropped —
// every watched table carries course context (joined in by the trigger for
// child rows), so a scope-less event is malformed and must never cross
// course boundaries.
func (h *Hub) BroadcastChange(ev events.ChangeEvent) {
	scope := ev.ScopeID()
	if scope == "" {
		h.logger.Warn("Hub", "Change event without course scope dropped", map[string]interface{}{"table": ev.Table, "type": string(ev.Kind)})
		return
	}

	frame, err := json.Marshal(ChangeMessage{
		Type:      TypeChange,
		EventType: string(ev.Kind),
		Table:     ev.Table,
		Record:    ev.Record,
		OldRecord: ev.OldRecord,
	})
	if err != nil {
		h.logger.Error("Hub", "Change marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	target := ev.TargetID()

	h.mu.RLock()
	var slow []*Session
	delivered := 0
	for s := range h.sessions {
		sub := s.Subscription()
		if sub == nil {
			continue
		}
		if sub.ScopeID != scope {
			continue
		}
		if !sub.watches(target) {
			continue
		}
		if s.enqueue(frame) {
			delivered++
		} else {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	h.evictSlow(slow)

	h.logger.Debug("Hub", "Change fanned out", map[string]interface{}{"table": ev.Table, "scope_id": scope, "target_id": target, "delivered": delivered})
}

// evictSlow drops sessions whose send buffer stayed full. A dead peer must
// never stall delivery to the others.
func (h *Hub) evictSlow(slow []*Session) {
	for _, s := range slow {
		h.logger.Warn("Hub", "Send buffer full, evicting session", map[string]interface{}{"session_id": s.id})
		h.Unregister(s)
		if s.conn != nil {
			s.conn.Close()
		}
	}
}
