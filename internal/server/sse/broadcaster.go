// Package sse streams engine events (session starts, XP settlements) to
// dashboard clients over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds a single client write so one stale connection cannot
// stall a broadcast.
const WriteTimeout = 2 * time.Second

// Client is one connected event stream, scoped to the authenticated user.
type Client struct {
	ID      string
	UserID  string
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
}

// Broadcaster fans engine events out to connected clients. Events carrying a
// userId are delivered only to that user's streams; events without one go to
// everyone.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// AddClient registers a stream for the user.
func (b *Broadcaster) AddClient(w http.ResponseWriter, userID string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		UserID:  userID,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[client.ID] = client
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Str("userId", userID).
		Int("totalClients", total).Msg("Event stream connected")
	return client, nil
}

// RemoveClient unregisters a stream.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	if _, ok := b.clients[client.ID]; ok {
		delete(b.clients, client.ID)
		close(client.Done)
	}
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).
		Int("totalClients", total).Msg("Event stream disconnected")
}

func (b *Broadcaster) removeByID(id string) {
	b.mu.Lock()
	client, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
		close(client.Done)
	}
	b.mu.Unlock()

	if ok {
		log.Debug().Str("clientId", id).Msg("Dead event stream removed")
	}
}

// Broadcast delivers an event to the matching streams. Satisfies the
// engine's Publisher interface.
func (b *Broadcaster) Broadcast(data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return
	}

	// Route on the event's userId field when present.
	var scope struct {
		UserID string `json:"userId"`
	}
	_ = json.Unmarshal(payload, &scope)

	message := fmt.Sprintf("data: %s\n\n", payload)

	b.mu.RLock()
	targets := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		if scope.UserID == "" || client.UserID == scope.UserID {
			targets = append(targets, client)
		}
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	// Each client can signal at most twice: once from the writer goroutine
	// on error and once from the timeout branch. Sizing the buffer for both
	// lets a writer that outlives its timeout send without blocking, so the
	// channel is never closed.
	dead := make(chan string, 2*len(targets))
	var wg sync.WaitGroup
	for _, client := range targets {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			b.write(c, message, dead)
		}(client)
	}
	wg.Wait()

	for {
		select {
		case id := <-dead:
			b.removeByID(id)
		default:
			return
		}
	}
}

// write pushes one message to one client, bounded by WriteTimeout.
func (b *Broadcaster) write(client *Client, message string, dead chan<- string) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := client.Writer.Write([]byte(message)); err != nil {
			dead <- client.ID
			return
		}
		client.Flusher.Flush()
	}()

	select {
	case <-done:
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", client.ID).Msg("Event stream write timed out")
		dead <- client.ID
	case <-client.Done:
	}
}

// ClientCount returns the number of connected streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Serve handles one SSE connection for the user, blocking until the client
// disconnects.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":\"%s\"}\n\n", client.ID)
	client.Flusher.Flush()

	<-r.Context().Done()
}
