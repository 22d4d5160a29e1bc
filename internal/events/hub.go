// Package events pushes upload progress and live-session state transitions
// to browser clients over WebSocket. Redis pub/sub bridges instances so a
// client connected to one replica sees events produced on another.
package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Well-known channels and event names.
const (
	ChannelStudio = "studio"

	EventUploadProgress = "upload_progress"
	EventUploadDone     = "upload_done"
	EventUploadFailed   = "upload_failed"
	EventLiveState      = "live_state"
	EventLiveFault      = "live_fault"
	EventVideoReady     = "video_ready"
)

// Publisher publishes an event to other instances.
type Publisher interface {
	Publish(channel, event string, payload []byte) error
}

// Subscriber subscribes to a channel; cancel stops the subscription.
type Subscriber interface {
	Subscribe(channel string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// bridgeEnvelope wraps payloads crossing the pub/sub bridge. Pub/sub echoes
// publishes back to the publisher; Origin lets an instance drop its own.
type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// Hub maintains channel -> connected clients and broadcasts messages.
type Hub struct {
	id       string
	channels map[string]map[string]*Client
	subs     map[string]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	pub      Publisher
	sub      Subscriber
}

// NewHub creates a hub. pub and sub may be nil for single-instance setups.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		id:       uuid.NewString(),
		channels: make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
}

// Register adds a client to a channel, starting the cross-instance
// subscription when it is the channel's first local client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.channels[c.Channel] == nil {
		h.channels[c.Channel] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.Subscribe(c.Channel, func(event string, payload []byte) {
				var env bridgeEnvelope
				if json.Unmarshal(payload, &env) != nil || env.Origin == h.id {
					// Local clients already got this instance's own events
					// through Broadcast; only relay other instances'.
					return
				}
				h.broadcastLocal(c.Channel, event, env.Data)
			})
			if err == nil {
				h.subs[c.Channel] = cancel
			}
		}
	}
	h.channels[c.Channel][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("events client joined", zap.String("client_id", c.ID), zap.String("channel", c.Channel))
}

// Unregister removes a client, canceling the subscription with the last one.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.channels[c.Channel]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.channels, c.Channel)
			if cancel, ok := h.subs[c.Channel]; ok {
				cancel()
				delete(h.subs, c.Channel)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("events client left", zap.String("client_id", c.ID), zap.String("channel", c.Channel))
}

func (h *Hub) broadcastLocal(channel, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := Message{Event: event, Data: data}

	// Sends are non-blocking into buffered channels, so the read lock can be
	// held across the iteration; Register/Unregister mutate this map.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.channels[channel] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Broadcast delivers an event to local clients and publishes it for other
// instances. Published payloads carry this hub's id so the echo the bridge
// delivers back here is dropped instead of reaching local clients twice.
func (h *Hub) Broadcast(channel, event string, payload interface{}) {
	h.broadcastLocal(channel, event, payload)
	if h.pub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	wrapped, err := json.Marshal(bridgeEnvelope{Origin: h.id, Data: data})
	if err != nil {
		return
	}
	_ = h.pub.Publish(channel, event, wrapped)
}
