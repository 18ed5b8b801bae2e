package http

import (
	"encoding/json"
	"log"
	"net/http"

	"asaa-quiz-service/internal/app"
	"asaa-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler drives quiz attempts and availability watches over websockets.
type WSHandler struct {
	attempts     *app.AttemptService
	identity     *app.IdentityService
	availability *app.AvailabilityService
	upgrader     websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, identity *app.IdentityService, availability *app.AvailabilityService) *WSHandler {
	return &WSHandler{
		attempts:     attempts,
		identity:     identity,
		availability: availability,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeQuiz runs one attempt for the named user. The client receives "state"
// messages for every engine transition and countdown tick, and sends
// {"type":"answer","payload":{"option":N}} and {"type":"advance"}.
// Closing the socket mid-attempt tears the engine down without a result.
func (h *WSHandler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}

	user, err := h.identity.Lookup(r.Context(), username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	attempt, err := h.attempts.Start(r.Context(), user)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer attempt.Close()

	updates, cancel := attempt.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := attempt.Select(payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "advance":
			snapshot, err := attempt.Advance(r.Context())
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if snapshot.State == app.StateFinished {
				// Subscriber channels close with the engine; push the final
				// snapshot on the direct path before shutting down.
				send <- outboundMessage[any]{Type: "state", Payload: snapshot}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// ServeAvailability streams the availability banner for the named user (or a
// signed-out visitor when no username is given), re-evaluated every minute.
// The watcher stops as soon as the socket closes, so navigating away never
// leaks a ticker.
func (h *WSHandler) ServeAvailability(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	var user *domain.User
	if username != "" {
		u, err := h.identity.Lookup(r.Context(), username)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		user = &u
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.availability.Watch(r.Context(), user)
	defer cancel()

	go func() {
		// Drain reads so we notice the peer going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for update := range updates {
		if err := conn.WriteJSON(outboundMessage[any]{Type: "availability", Payload: update}); err != nil {
			return
		}
	}
}
