package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-zerotrust/pkg/events"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
)

const (
	// writeWait is the deadline for a single outbound frame
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before giving up on the client
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// clientBuffer is the per-client outbound frame queue depth
	clientBuffer = 64

	// maxMessageSize bounds inbound client messages
	maxMessageSize = 1024
)

// wsFrame is one JSON frame pushed to a websocket client
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientMessage is the only shape clients send back
type clientMessage struct {
	Event string `json:"event"`
}

// wsClient tracks one connected websocket consumer
type wsClient struct {
	conn   *websocket.Conn
	send   chan wsFrame
	cancel context.CancelFunc
	logger logging.Logger
}

// handleWebSocket upgrades the connection and relays engine events until
// the client disconnects or falls too far behind.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	s.metrics.WebsocketClients.Inc()
	defer s.metrics.WebsocketClients.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wsClient{
		conn:   conn,
		send:   make(chan wsFrame, clientBuffer),
		cancel: cancel,
		logger: s.logger.With(logging.String("remote", conn.RemoteAddr().String())),
	}

	// Subscribe before the snapshot so nothing published in between is lost
	topics := []string{events.TopicActivity, events.TopicAttack, events.TopicReset}
	subs := make([]*events.Subscription, 0, len(topics))
	for _, topic := range topics {
		sub, err := s.engine.Bus().Subscribe(ctx, topic)
		if err != nil {
			client.logger.Warn("websocket subscribe failed",
				logging.String("topic", topic), logging.Error(err))
			conn.Close()
			return
		}
		subs = append(subs, sub)
	}

	client.send <- wsFrame{Event: "connected", Data: map[string]string{
		"status": "Connected to Zero-Trust Simulator",
	}}
	client.send <- wsFrame{Event: "network_data", Data: s.engine.Topology()}

	client.logger.Info("websocket client connected")

	for _, sub := range subs {
		go client.relay(sub)
	}
	go client.writePump(ctx)

	client.readPump(s)

	client.logger.Info("websocket client disconnected")
}

// relay forwards bus events onto the client's send queue. A client whose
// queue is full gets cancelled rather than allowed to stall the relay.
func (c *wsClient) relay(sub *events.Subscription) {
	for evt := range sub.Events() {
		select {
		case c.send <- wsFrame{Event: evt.Topic, Data: evt.Data}:
		default:
			c.logger.Warn("dropping slow websocket client",
				logging.String("topic", sub.Topic()))
			c.cancel()
			return
		}
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *wsClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// readPump consumes client messages until the connection drops. The only
// request clients make is a topology refresh.
func (c *wsClient) readPump(s *Server) {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", logging.Error(err))
			}
			return
		}

		if msg.Event == "request_network_data" {
			select {
			case c.send <- wsFrame{Event: "network_data", Data: s.engine.Topology()}:
			default:
			}
		}
	}
}
