// Package gateway exposes the dashboard's REST + WebSocket surface:
// symbols, prices, computed TD Setup series, user settings, and a hub
// fanning out live bar updates and settings broadcasts.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"td-dashboard/internal/metrics"
)

const replayBufferCap = 512

// Hub manages WebSocket clients and broadcast fan-out. Each channel
// ("bar:{symbol}", "settings:{user}") carries a monotonic sequence
// number for client gap detection, backed by a replay buffer the
// /api/missed endpoint reads for backfill.
type Hub struct {
	Metrics *metrics.Metrics // optional

	mu          sync.RWMutex
	clients     map[*Client]bool
	latest      map[string]latestEntry
	channelSeqs map[string]int64
	replayBufs  map[string]*ReplayBuffer
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates a Hub with no connected clients.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
	}
}

// Broadcast wraps data in a sequenced envelope and fans it out to every
// client subscribed to the channel. Slow clients drop the message
// rather than blocking the broadcaster.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	seq := h.channelSeqs[channel] + 1
	h.channelSeqs[channel] = seq

	envelope, err := json.Marshal(map[string]interface{}{
		"channel": channel,
		"data":    json.RawMessage(data),
		"seq":     seq,
		"ts":      now.Format(time.RFC3339Nano),
	})
	if err != nil {
		h.mu.Unlock()
		log.Printf("[gateway] broadcast marshal error on %s: %v", channel, err)
		return
	}

	h.latest[channel] = latestEntry{Data: data, TS: now, Seq: seq}

	rb, ok := h.replayBufs[channel]
	if !ok {
		rb = NewReplayBuffer(replayBufferCap)
		h.replayBufs[channel] = rb
	}
	// Push while still holding the lock so buffer order matches seq
	// assignment order under concurrent broadcasts.
	rb.Push(seq, envelope)
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wants(channel) {
			continue
		}
		select {
		case client.send <- envelope:
		default:
			if h.Metrics != nil {
				h.Metrics.BroadcastDrops.Inc()
			}
		}
	}
}

// HandleWS registers an upgraded connection and starts its pumps.
// lastTS lets a reconnecting client skip initial state it already has.
func (h *Hub) HandleWS(conn *websocket.Conn, lastTS string) {
	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		symbols: make(map[string]bool),
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
	close(c.send)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// GetReplayRange returns buffered envelopes for a channel in
// [fromSeq, toSeq], for the /api/missed gap backfill endpoint.
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, ok := h.replayBufs[channel]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}
