package httpapi

import (
	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// envelope is the wire framing for both directions:
// {"event": "message:send", "payload": {...}}.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type outEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// ConnectionHandler owns one websocket connection's lifecycle: it verifies
// the supplied token, registers the connection with the relay, dispatches
// inbound events in arrival order and pumps outbound events back.
//
// A missing or invalid token does not reject the connection; it stays open
// without a bound identity and every identity-requiring event is ignored.
type ConnectionHandler struct {
	log        *slog.Logger
	relay      services.IRelayService
	issuer     *auth.TokenIssuer
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewConnectionHandler(log *slog.Logger, relay services.IRelayService, issuer *auth.TokenIssuer, bufferSize int) *ConnectionHandler {
	return &ConnectionHandler{
		log:    log,
		relay:  relay,
		issuer: issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		bufferSize: bufferSize,
	}
}

func (h *ConnectionHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	userID := h.identify(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newConnSink(h.bufferSize)
	go h.writeLoop(ctx, conn, sink)

	if userID != "" {
		h.relay.Connected(ctx, userID, sink)
		// Exactly one deregister per connection, whatever ends the
		// read loop.
		defer h.relay.Disconnected(context.Background(), userID, sink)
	}

	h.readLoop(ctx, conn, sink, userID)
}

// identify extracts and verifies the token from the query string or the
// Authorization header. Failure yields an empty identity, not an error.
func (h *ConnectionHandler) identify(c *gin.Context) string {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	if token == "" {
		return ""
	}
	userID, err := h.issuer.VerifyToken(strings.TrimPrefix(token, "Bearer "))
	if err != nil {
		h.log.Debug("connection proceeds unauthenticated", "error", err)
		return ""
	}
	return userID
}

// readLoop processes inbound frames in arrival order. It returns when the
// peer disconnects or sends an unreadable frame.
func (h *ConnectionHandler) readLoop(ctx context.Context, conn *websocket.Conn, sink *connSink, userID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug("connection closed", "user_id", userID, "error", err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Debug("dropping malformed frame", "user_id", userID, "error", err)
			continue
		}
		if userID == "" {
			// No bound identity: inert for every protocol step.
			continue
		}
		h.dispatch(ctx, sink, userID, env)
	}
}

type typingInbound struct {
	To string `json:"to"`
}

type sendInbound struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type readInbound struct {
	ConversationID string `json:"conversationId"`
	From           string `json:"from"`
}

func (h *ConnectionHandler) dispatch(ctx context.Context, sink *connSink, userID string, env envelope) {
	switch env.Event {
	case event.NameTypingStart, event.NameTypingStop:
		var in typingInbound
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			return
		}
		h.relay.Typing(ctx, userID, in.To, env.Event == event.NameTypingStart)
	case "message:send":
		var in sendInbound
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			return
		}
		h.relay.Send(ctx, sink, userID, in.To, in.Content)
	case event.NameMessageRead:
		var in readInbound
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			return
		}
		h.relay.MarkRead(ctx, sink, userID, in.ConversationID, in.From)
	default:
		h.log.Debug("ignoring unknown event", "event", env.Event, "user_id", userID)
	}
}

// writeLoop drains the sink onto the websocket until the connection context
// ends.
func (h *ConnectionHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sink *connSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sink.events:
			if err := conn.WriteJSON(toOutEnvelope(evt)); err != nil {
				h.log.Debug("failed to push event to connection", "event", evt.EventName(), "error", err)
				return
			}
		}
	}
}

// toOutEnvelope shapes domain events into the original client's payloads.
func toOutEnvelope(e event.DomainEvent) outEnvelope {
	switch evt := e.(type) {
	case event.MessageNew:
		return outEnvelope{Event: evt.EventName(), Payload: toMessagePayload(evt.Message)}
	case event.MessageDelivered:
		return outEnvelope{Event: evt.EventName(), Payload: gin.H{"messageId": evt.MessageID}}
	case event.MessageRead:
		payload := gin.H{"conversationId": evt.ConversationID}
		if evt.Count != nil {
			payload["count"] = *evt.Count
		}
		return outEnvelope{Event: evt.EventName(), Payload: payload}
	case event.PresenceUpdate:
		return outEnvelope{Event: evt.EventName(), Payload: gin.H{"userId": evt.UserID, "online": evt.Online}}
	case event.Typing:
		return outEnvelope{Event: evt.EventName(), Payload: gin.H{"from": evt.From}}
	default:
		return outEnvelope{Event: e.EventName()}
	}
}
