// Package realtime fans JSON messages out to websocket subscribers grouped by topic.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 8

// Message is the frame written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers per topic.
type Hub struct {
	mu           sync.RWMutex
	topics       map[string]map[*subscriber]struct{}
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewHub constructs a hub. Origin checks are left to the CORS layer.
func NewHub(writeTimeout time.Duration, logger *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Serve upgrades the request, sends the initial message and blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string, initial Message) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	payload, err := json.Marshal(initial)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("marshal initial message: %w", err)
	}
	sub.send <- payload
	h.add(topic, sub)

	done := make(chan struct{})
	go h.writeLoop(sub, done)

	// Inbound frames are ignored; reading is only needed to notice close frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(topic, sub)
	<-done
	return nil
}

// Publish delivers msg to every subscriber of topic. Subscribers that cannot keep up are dropped.
func (h *Hub) Publish(topic string, msg Message) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("realtime marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.topics[topic] {
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("realtime subscriber too slow, dropping", zap.String("topic", topic))
		h.remove(topic, sub)
	}
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	topics := h.topics
	h.topics = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, subs := range topics {
		for sub := range subs {
			close(sub.send)
		}
	}
}

func (h *Hub) add(topic string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
}

// remove unregisters sub and closes its send channel exactly once.
func (h *Hub) remove(topic string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	close(sub.send)
}

func (h *Hub) writeLoop(sub *subscriber, done chan<- struct{}) {
	defer close(done)
	defer sub.conn.Close() //nolint:errcheck
	for payload := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("realtime write failed", zap.Error(err))
			return
		}
	}
	_ = sub.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(h.writeTimeout))
}
