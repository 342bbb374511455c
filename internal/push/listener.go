// Package push maintains one WebSocket connection per registered
// interest (a user's task feed, a team's chat), folds server-pushed
// events into the remote data cache with the same merge rules
// mutations use, and reconnects with backoff for as long as the
// interest is held.
package push

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/model"
)

// Server-to-client event names.
const (
	EventTaskUpdated  = "task:updated"
	EventTaskAssigned = "task:assigned"
	EventTeamMessage  = "team:message"
)

// WebSocket connection constants.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between server pings before the read loop gives up.
	pongWait = 60 * time.Second

	// Reconnect backoff bounds.
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Envelope is the server's wire format for pushed events.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// clientMessage is the join/leave handshake frame sent to the server.
type clientMessage struct {
	Action   string `json:"action"`
	Room     string `json:"room,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// State is the connection state of a single interest.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// interest is one logical subscription, reference-counted across
// watchers of the same room.
type interest struct {
	room  string
	done  chan struct{}
	refs  int
	state State
}

// Listener owns every push connection of the process. Incoming events
// cross a bounded queue and are applied to the cache by a single
// dispatcher goroutine, so event handling never races itself.
type Listener struct {
	cache    *cache.Cache
	url      string
	clientID string
	dialer   *websocket.Dialer

	mu        sync.Mutex
	interests map[string]*interest

	events chan Envelope
	closed chan struct{}
	once   sync.Once
}

// New creates a Listener pushing into c over the WebSocket endpoint at
// socketURL and starts its dispatcher.
func New(c *cache.Cache, socketURL string) *Listener {
	l := &Listener{
		cache:     c,
		url:       socketURL,
		clientID:  uuid.New().String(),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		interests: make(map[string]*interest),
		events:    make(chan Envelope, 64),
		closed:    make(chan struct{}),
	}
	go l.dispatch()
	return l
}

// WatchTasks registers interest in the given user's task feed. The
// returned cancel func withdraws the interest; after the last watcher
// of a room cancels, its connection is torn down and not redialed.
func (l *Listener) WatchTasks(userID string) func() {
	return l.watch("user:" + userID)
}

// WatchTeam registers interest in a team's chat.
func (l *Listener) WatchTeam(teamID string) func() {
	return l.watch("team:" + teamID)
}

// RoomState returns the connection state for a room, primarily for
// status display.
func (l *Listener) RoomState(room string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if in, ok := l.interests[room]; ok {
		return in.state
	}
	return StateDisconnected
}

// Close withdraws every interest and stops the dispatcher.
func (l *Listener) Close() {
	l.mu.Lock()
	for room, in := range l.interests {
		close(in.done)
		delete(l.interests, room)
	}
	l.mu.Unlock()

	l.once.Do(func() { close(l.closed) })
}

func (l *Listener) watch(room string) func() {
	l.mu.Lock()
	in, ok := l.interests[room]
	if ok {
		in.refs++
		l.mu.Unlock()
		return l.release(room, in)
	}

	in = &interest{
		room: room,
		done: make(chan struct{}),
		refs: 1,
	}
	l.interests[room] = in
	l.mu.Unlock()

	go l.run(in)
	return l.release(room, in)
}

// release returns a cancel func that drops one reference to the
// room's interest. Safe to call more than once.
func (l *Listener) release(room string, in *interest) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			in.refs--
			if in.refs <= 0 {
				delete(l.interests, room)
				close(in.done)
			}
			l.mu.Unlock()
		})
	}
}

func (l *Listener) setState(in *interest, s State) {
	l.mu.Lock()
	in.state = s
	l.mu.Unlock()
}

// run drives one interest's connection lifecycle: dial, handshake,
// read until failure, reconnect with backoff while the interest is
// still held.
func (l *Listener) run(in *interest) {
	backoff := initialBackoff

	for {
		l.setState(in, StateConnecting)

		conn, err := l.dial()
		if err != nil {
			l.setState(in, StateDisconnected)
			log.Printf("[Push] dial for %s failed: %v", in.room, err)
			if !l.waitReconnect(in, &backoff) {
				return
			}
			continue
		}

		l.setState(in, StateConnected)
		backoff = initialBackoff

		l.pump(in, conn)

		l.setState(in, StateDisconnected)

		select {
		case <-in.done:
			return
		default:
		}
		if !l.waitReconnect(in, &backoff) {
			return
		}
	}
}

func (l *Listener) dial() (*websocket.Conn, error) {
	u := l.url
	if parsed, err := url.Parse(l.url); err == nil {
		q := parsed.Query()
		q.Set("clientId", l.clientID)
		parsed.RawQuery = q.Encode()
		u = parsed.String()
	}

	conn, resp, err := l.dialer.Dial(u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// pump sends the join handshake and reads events until the connection
// drops or the interest is withdrawn. It always closes conn.
func (l *Listener) pump(in *interest, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(clientMessage{Action: "join", Room: in.room, ClientID: l.clientID}); err != nil {
		log.Printf("[Push] join %s failed: %v", in.room, err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	// Teardown watcher: a withdrawn interest sends the leave handshake
	// and closes the connection to unblock the read loop.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-in.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(clientMessage{Action: "leave", Room: in.room, ClientID: l.clientID})
			conn.Close()
		case <-finished:
		}
	}()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			select {
			case <-in.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[Push] read on %s: %v", in.room, err)
				}
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case l.events <- env:
		default:
			// Queue full; drop rather than stall the read loop. The next
			// refetch reconciles anything shed here.
			log.Printf("[Push] event queue full, dropped %s", env.Type)
		}
	}
}

// waitReconnect sleeps for the current backoff, doubling it up to the
// cap. Returns false when the interest was withdrawn while waiting.
func (l *Listener) waitReconnect(in *interest, backoff *time.Duration) bool {
	select {
	case <-in.done:
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}
	return true
}

// dispatch applies queued events to the cache, one at a time.
func (l *Listener) dispatch() {
	for {
		select {
		case <-l.closed:
			return
		case env := <-l.events:
			l.handle(env)
		}
	}
}

func (l *Listener) handle(env Envelope) {
	switch env.Type {
	case EventTaskUpdated, EventTaskAssigned:
		var task model.Task
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			log.Printf("[Push] bad %s payload: %v", env.Type, err)
			return
		}
		cache.PatchTask(l.cache, task)

	case EventTeamMessage:
		var msg model.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			log.Printf("[Push] bad %s payload: %v", env.Type, err)
			return
		}
		cache.AppendMessage(l.cache, msg)
	}
}
