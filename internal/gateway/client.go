package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Symbol filter set by subscribe messages. Empty means "all".
	symMu   sync.RWMutex
	symbols map[string]bool
}

// subscribeMsg narrows a client's bar-update fan-out to some symbols.
type subscribeMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// wants reports whether this client should receive a channel's
// messages. Non-bar channels (settings broadcasts) always deliver.
func (c *Client) wants(channel string) bool {
	symbol, ok := strings.CutPrefix(channel, "bar:")
	if !ok {
		return true
	}

	c.symMu.RLock()
	defer c.symMu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	return c.symbols[symbol]
}

// sendInitialState pushes the latest envelope of every channel so a
// fresh client renders without waiting for the next broadcast. lastTS
// (RFC3339Nano) filters out entries the client has already seen.
func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel": channel,
			"data":    entry.Data,
			"seq":     entry.Seq,
			"ts":      entry.TS.Format(time.RFC3339Nano),
			"initial": true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into a single
			// frame with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "subscribe":
			var sub subscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			c.handleSubscribe(sub)

		default:
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

// handleSubscribe replaces the client's symbol filter. An empty symbol
// list resets the client to receiving everything.
func (c *Client) handleSubscribe(msg subscribeMsg) {
	filter := make(map[string]bool, len(msg.Symbols))
	for _, sym := range msg.Symbols {
		sym = strings.TrimSpace(sym)
		if sym != "" {
			filter[sym] = true
		}
	}

	c.symMu.Lock()
	c.symbols = filter
	c.symMu.Unlock()

	log.Printf("[gateway] client subscribed: symbols=%v", msg.Symbols)
}
