package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscription pins a session to one course scope, optionally narrowed to a
// set of watched participants. Empty watch-list means the whole scope.
type Subscription struct {
	ScopeID string
	Watched map[string]struct{}
}

func (s *Subscription) watches(participantID string) bool {
	if participantID == "" || len(s.Watched) == 0 {
		return true
	}
	_, ok := s.Watched[participantID]
	return ok
}

// Session is the per-connection state machine. It owns the websocket conn,
// at most one subscription and at most one presence record. Everything here
// dies with the socket; nothing is persisted.
type Session struct {
	id         string
	assessorID string

	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	mu           sync.Mutex
	subscription *Subscription
	presence     *PresenceRecord
}

func newSession(hub *Hub, conn *websocket.Conn, assessorID string) *Session {
	return &Session{
		id:         uuid.NewString(),
		assessorID: assessorID,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
	}
}

func (s *Session) Subscription() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscription == nil {
		return nil
	}
	cp := *s.subscription
	return &cp
}

func (s *Session) Presence() (PresenceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presence == nil {
		return PresenceRecord{}, false
	}
	return *s.presence, true
}

func (s *Session) scopeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscription == nil {
		return ""
	}
	return s.subscription.ScopeID
}

func (s *Session) setPresence(rec PresenceRecord) {
	s.mu.Lock()
	s.presence = &rec
	s.mu.Unlock()
}

func (s *Session) clearPresence() {
	s.mu.Lock()
	s.presence = nil
	s.mu.Unlock()
}

// enqueue hands a frame to the write pump without ever blocking the caller.
// A full buffer means the peer is too slow; the frame is dropped for this
// session only and the hub decides whether to evict.
func (s *Session) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the websocket connection into the dispatcher.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(s.hub.maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("Session", "Read error", map[string]interface{}{"session_id": s.id, "error": err.Error()})
			}
			break
		}
		s.dispatch(raw)
	}
}

// dispatch routes one inbound frame. Handler errors and malformed frames are
// logged and dropped; a protocol violation never tears the connection down.
func (s *Session) dispatch(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.hub.logger.Error("Session", "Message handler panic", map[string]interface{}{"session_id": s.id, "panic": r})
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.hub.logger.Warn("Session", "Unparseable frame dropped", map[string]interface{}{"session_id": s.id, "error": err.Error()})
		return
	}

	switch env.Type {
	case TypeSubscribe:
		s.handleSubscribe(raw)
	case TypePresence:
		s.handlePresence(raw)
	case TypePing:
		data, _ := json.Marshal(Envelope{Type: TypePong})
		s.enqueue(data)
	default:
		s.hub.logger.Warn("Session", "Unknown message type dropped", map[string]interface{}{"session_id": s.id, "type": env.Type})
	}
}

func (s *Session) handleSubscribe(raw []byte) {
	var msg SubscribeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.hub.logger.Warn("Session", "Malformed subscribe dropped", map[string]interface{}{"session_id": s.id, "error": err.Error()})
		return
	}
	if err := s.hub.validate.Struct(&msg); err != nil {
		s.hub.logger.Warn("Session", "Invalid subscribe dropped", map[string]interface{}{"session_id": s.id, "error": err.Error()})
		return
	}

	sub := &Subscription{ScopeID: msg.ScopeID}
	if len(msg.ParticipantIDs) > 0 {
		sub.Watched = make(map[string]struct{}, len(msg.ParticipantIDs))
		for _, id := range msg.ParticipantIDs {
			sub.Watched[id] = struct{}{}
		}
	}

	s.mu.Lock()
	s.subscription = sub
	s.mu.Unlock()

	ack, _ := json.Marshal(SubscribedMessage{Type: TypeSubscribed, CourseID: msg.ScopeID})
	s.enqueue(ack)

	// New subscriber immediately sees who else is in the scope.
	s.enqueue(s.hub.presenceStateFrame(msg.ScopeID))

	s.hub.logger.Info("Session", "Subscribed", map[string]interface{}{"session_id": s.id, "scope_id": msg.ScopeID, "watched": len(msg.ParticipantIDs)})
}

func (s *Session) handlePresence(raw []byte) {
	var msg PresenceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.hub.logger.Warn("Session", "Malformed presence dropped", map[string]interface{}{"session_id": s.id, "error": err.Error()})
		return
	}
	if err := s.hub.validate.Struct(&msg); err != nil {
		s.hub.logger.Warn("Session", "Invalid presence dropped", map[string]interface{}{"session_id": s.id, "error": err.Error()})
		return
	}

	s.setPresence(PresenceRecord{
		AssessorID:    msg.AssessorID,
		AssessorName:  msg.AssessorName,
		ParticipantID: msg.ParticipantID,
		ComponentID:   msg.ComponentID,
		LastSeenAt:    time.Now(),
	})
	s.hub.registry.Touch(s)

	if scope := s.scopeID(); scope != "" {
		s.hub.BroadcastPresence(scope)
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
