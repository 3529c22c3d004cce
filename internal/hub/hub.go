// Package hub streams sweep events to HTTP clients as Server-Sent Events.
//
// Every event gets a sequence id. The hub keeps a short backlog so a client
// that reconnects with a Last-Event-ID header receives what it missed.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBacklog is how many recent events are kept for reconnecting clients
const DefaultBacklog = 32

type client struct {
	id     string
	frames chan []byte
}

type subscription struct {
	c *client
	// resume is the last event id the client saw; ignored unless hasResume
	resume    uint64
	hasResume bool
}

type message struct {
	name string
	data interface{}
}

type frame struct {
	seq  uint64
	data []byte
}

// Hub fans events out to connected SSE clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	backlog []frame
	limit   int

	subscribe   chan subscription
	unsubscribe chan *client
	broadcast   chan message
	done        chan struct{}

	seq       uint64 // owned by Run
	nextID    atomic.Uint64
	keepAlive time.Duration
}

// New creates a hub with the default backlog
func New() *Hub {
	return NewWithBacklog(DefaultBacklog)
}

// NewWithBacklog creates a hub that remembers the last n events
func NewWithBacklog(n int) *Hub {
	if n < 0 {
		n = 0
	}
	return &Hub{
		clients:     make(map[*client]struct{}),
		limit:       n,
		subscribe:   make(chan subscription),
		unsubscribe: make(chan *client),
		broadcast:   make(chan message, 256),
		done:        make(chan struct{}),
		keepAlive:   30 * time.Second,
	}
}

// Run processes subscriptions and broadcasts until ctx is cancelled,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.frames)
			}
			h.mu.Unlock()
			return

		case sub := <-h.subscribe:
			h.mu.Lock()
			h.clients[sub.c] = struct{}{}
			if sub.hasResume {
				for _, f := range h.backlog {
					if f.seq > sub.resume {
						sub.c.frames <- f.data
					}
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Hub: client %s connected (%d total)", sub.c.id, n)

		case c := <-h.unsubscribe:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.frames)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Hub: client %s disconnected (%d total)", c.id, n)

		case msg := <-h.broadcast:
			h.seq++
			data, err := encode(h.seq, msg)
			if err != nil {
				log.Printf("Hub: dropping %s event: %v", msg.name, err)
				continue
			}
			h.deliver(frame{seq: h.seq, data: data})
		}
	}
}

func (h *Hub) deliver(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.limit > 0 {
		if len(h.backlog) == h.limit {
			h.backlog = append(h.backlog[:0], h.backlog[1:]...)
		}
		h.backlog = append(h.backlog, f)
	}

	for c := range h.clients {
		select {
		case c.frames <- f.data:
		default:
			log.Printf("Hub: client %s is behind, dropping event %d", c.id, f.seq)
		}
	}
}

func encode(seq uint64, msg message) ([]byte, error) {
	data, err := json.Marshal(msg.data)
	if err != nil {
		return nil, err
	}
	if msg.name == "" {
		return []byte(fmt.Sprintf("id: %d\ndata: %s\n\n", seq, data)), nil
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, msg.name, data)), nil
}

// Broadcast queues a named event for every client. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Broadcast(name string, data interface{}) {
	select {
	case h.broadcast <- message{name: name, data: data}:
	default:
		log.Printf("Hub: queue full, dropping %s event", name)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) backlogLen() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.backlog)
}

// ServeHTTP streams events to one client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := subscription{c: &client{
		id:     "c" + strconv.FormatUint(h.nextID.Add(1), 10),
		frames: make(chan []byte, 64+h.limit),
	}}
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if id, err := strconv.ParseUint(last, 10, 64); err == nil {
			sub.resume, sub.hasResume = id, true
		}
	}

	select {
	case h.subscribe <- sub:
	case <-h.done:
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case h.unsubscribe <- sub.c:
		case <-h.done:
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-sub.c.frames:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
