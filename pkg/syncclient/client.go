package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Status is the connection state a UI can render.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

var statusLabels = map[Status]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusReconnecting: "reconnecting",
}

func (s Status) String() string {
	return statusLabels[s]
}

// Options configures a Client. URL points at the sync endpoint
// (ws://host/api/sync/ws); the token is appended as the query credential the
// server checks before upgrading.
type Options struct {
	URL    string
	Token  string
	SelfID string

	ActiveWindow   time.Duration
	ReconnectBase  time.Duration
	ReconnectMax   time.Duration
	DebounceWindow time.Duration

	// OnRefetch is the cache-invalidation hook: the client never patches
	// local state from a change payload, it tells the caller which record to
	// re-read. Calls are debounced per record.
	OnRefetch func(table, recordID string)
	// OnStatus observes connection state transitions.
	OnStatus func(Status)
	// OnConnect fires after every successful (re)connect, once the
	// subscription and presence have been replayed. The offline queue flush
	// hangs off this.
	OnConnect func(ctx context.Context)
}

func (o *Options) withDefaults() {
	if o.ActiveWindow == 0 {
		o.ActiveWindow = 30 * time.Second
	}
	if o.ReconnectBase == 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax == 0 {
		o.ReconnectMax = 30 * time.Second
	}
	if o.DebounceWindow == 0 {
		o.DebounceWindow = time.Second
	}
}

// Client maintains one sync connection and rebuilds its server-side state
// (subscription, presence) from scratch after every reconnect. The server
// keeps nothing across connections, so the client owns the replay.
type Client struct {
	opts   Options
	dialer *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn

	stateMu  sync.Mutex
	sub      *subscribeFrame
	presence *presenceFrame

	assessorsMu sync.RWMutex
	assessors   map[string]Assessor

	status  atomic.Int32
	refetch *Debouncer
}

func NewClient(opts Options) *Client {
	opts.withDefaults()
	return &Client{
		opts:      opts,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		assessors: make(map[string]Assessor),
		refetch:   NewDebouncer(opts.DebounceWindow),
	}
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

func (c *Client) setStatus(s Status) {
	old := c.status.Swap(int32(s))
	if Status(old) != s && c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}

// Run connects and stays connected until the context is cancelled. Dial and
// read failures schedule a reconnect with exponential backoff; a successful
// connect resets the schedule.
func (c *Client) Run(ctx context.Context) error {
	defer c.refetch.CancelAll()
	defer c.setStatus(StatusDisconnected)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.ReconnectBase
	bo.MaxInterval = c.opts.ReconnectMax

	first := true
	for {
		if first {
			c.setStatus(StatusConnecting)
		} else {
			c.setStatus(StatusReconnecting)
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			first = false
			select {
			case <-time.After(bo.NextBackOff()):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		bo.Reset()
		first = false
		c.attach(conn)
		c.setStatus(StatusConnected)

		// ReadMessage does not take a context; closing the conn is the only
		// way to unblock it on cancellation.
		stopWatch := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-stopWatch:
			}
		}()

		if err := c.replay(); err == nil {
			if c.opts.OnConnect != nil {
				go c.opts.OnConnect(ctx)
			}
			_ = c.readLoop(ctx, conn)
		}

		close(stopWatch)
		c.detach(conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse sync url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.opts.Token)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial sync: %w", err)
	}
	return conn, nil
}

func (c *Client) attach(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
}

func (c *Client) detach(conn *websocket.Conn) {
	c.writeMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.writeMu.Unlock()
}

// replay re-sends the remembered subscription and presence on a fresh
// connection.
func (c *Client) replay() error {
	c.stateMu.Lock()
	sub := c.sub
	pres := c.presence
	c.stateMu.Unlock()

	if sub != nil {
		if err := c.send(sub); err != nil {
			return err
		}
	}
	if pres != nil {
		if err := c.send(pres); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) send(frame interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(frame)
}

// Subscribe attaches this client to a course scope. The subscription is
// remembered and replayed on every reconnect. An empty participant list
// watches the whole scope.
func (c *Client) Subscribe(scopeID string, participantIDs []string) error {
	frame := &subscribeFrame{
		Type:           typeSubscribe,
		ScopeID:        scopeID,
		ParticipantIDs: participantIDs,
	}
	c.stateMu.Lock()
	prev := c.sub
	c.sub = frame
	c.stateMu.Unlock()

	if c.Status() != StatusConnected {
		return nil
	}

	// Switching scope tears the connection down; Run redials and replays the
	// new subscription on a fresh connection, so the old scope's traffic
	// never bleeds into the new one.
	if prev != nil && prev.ScopeID != scopeID {
		c.closeCurrent()
		return nil
	}
	return c.send(frame)
}

func (c *Client) closeCurrent() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// TrackPresence reports where this assessor is editing. Like the
// subscription, the last report is replayed after a reconnect.
func (c *Client) TrackPresence(assessorName, participantID, componentID string) error {
	frame := &presenceFrame{
		Type:          typePresence,
		AssessorID:    c.opts.SelfID,
		AssessorName:  assessorName,
		ParticipantID: participantID,
		ComponentID:   componentID,
	}
	c.stateMu.Lock()
	c.presence = frame
	c.stateMu.Unlock()

	if c.Status() != StatusConnected {
		return nil
	}
	return c.send(frame)
}

// Ping sends an application-level ping. Mostly useful for probes; the
// transport keepalive is handled by the server's control pings.
func (c *Client) Ping() error {
	return c.send(envelope{Type: typePing})
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case typePresenceState:
			var frame presenceStateFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			c.applyPresenceState(frame)
		case typeChange:
			var frame changeFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			c.applyChange(frame)
		case typeSubscribed, typePong:
			// acks, nothing to do
		}
	}
}

// applyPresenceState replaces the local roster with the server's snapshot.
// The snapshot is authoritative; departed assessors simply stop appearing.
func (c *Client) applyPresenceState(frame presenceStateFrame) {
	c.assessorsMu.Lock()
	defer c.assessorsMu.Unlock()
	c.assessors = make(map[string]Assessor, len(frame.Assessors))
	for _, a := range frame.Assessors {
		c.assessors[a.AssessorID] = a
	}
}

// applyChange turns a change frame into at most one debounced refetch. Local
// state is never patched from the payload; re-reading the record keeps the
// database the single source of truth.
func (c *Client) applyChange(frame changeFrame) {
	if c.opts.OnRefetch == nil {
		return
	}
	recordID := stringField(frame.Record, frame.OldRecord, "id")
	table := frame.Table
	c.refetch.Do(table+"/"+recordID, func() {
		c.opts.OnRefetch(table, recordID)
	})
}

// ActiveAssessors lists the other editors seen within the active window.
// The caller's own presence is excluded; componentID narrows the list to one
// editor widget when non-empty.
func (c *Client) ActiveAssessors(participantID, componentID string) []Assessor {
	cutoff := time.Now().Add(-c.opts.ActiveWindow)

	c.assessorsMu.RLock()
	defer c.assessorsMu.RUnlock()

	active := make([]Assessor, 0, len(c.assessors))
	for _, a := range c.assessors {
		if a.AssessorID == c.opts.SelfID {
			continue
		}
		if a.LastSeenAt.Before(cutoff) {
			continue
		}
		if participantID != "" && a.ParticipantID != participantID {
			continue
		}
		if componentID != "" && a.ComponentID != componentID {
			continue
		}
		active = append(active, a)
	}
	return active
}

func stringField(record, oldRecord map[string]interface{}, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	if v, ok := oldRecord[key].(string); ok {
		return v
	}
	return ""
}
