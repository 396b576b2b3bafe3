package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizdeck/internal/auth"
	"quizdeck/internal/logging"
	"quizdeck/internal/session"
)

// SessionStore is the registry the gateway keeps live sessions in.
type SessionStore interface {
	GetOrCreate(id string, create func() *session.Session) *session.Session
	Delete(id string)
}

// WSHandler owns one quiz session per WebSocket connection and drives its
// countdown with a per-connection ticker.
type WSHandler struct {
	store       SessionStore
	directory   session.Directory
	submitter   session.Submitter
	log         *logging.Logger
	reviewDelay int
	upgrader    websocket.Upgrader
}

func NewWSHandler(store SessionStore, directory session.Directory, submitter session.Submitter, reviewDelay int, log *logging.Logger) *WSHandler {
	return &WSHandler{
		store:       store,
		directory:   directory,
		submitter:   submitter,
		log:         log.With("component", "ws"),
		reviewDelay: reviewDelay,
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

type startPayload struct {
	QuizID string `json:"quiz_id"`
}

type answerPayload struct {
	QuestionID string `json:"question_id"`
	OptionKey  string `json:"option_key"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the session event loop. The bearer
// credential arrives as a query parameter because browsers cannot set
// headers on WebSocket dials.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	identity := auth.FromIDToken(token)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	sess := h.store.GetOrCreate(connID, func() *session.Session {
		return session.New(connID, identity, h.directory, h.submitter,
			session.WithReviewDelay(h.reviewDelay))
	})
	// Dropping the session stops any further mutations on the abandoned
	// attempt; its epoch guard discards in-flight responses.
	defer h.store.Delete(connID)

	log := h.log.With("conn", connID, "user", identity.DisplayName())
	log.Info("session opened")
	defer log.Info("session closed")

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("write failed", "err", err)
				return
			}
		}
	}()

	// The once-per-second tick drives the countdown, the auto-submit at zero
	// and the Reviewing→Finished delay. Closing the connection stops it.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sess.Tick(r.Context()); err != nil {
					h.push(send, closeSignals, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
				}
				h.push(send, closeSignals, outboundMessage{Type: "state", Payload: sess.Snapshot()})
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "state", Payload: sess.Snapshot()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(r.Context(), sess, inbound); err != nil {
			h.push(send, closeSignals, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
		h.push(send, closeSignals, outboundMessage{Type: "state", Payload: sess.Snapshot()})
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, sess *session.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "listQuizzes":
		_, err := sess.LoadQuizzes(ctx)
		return err
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		quiz, ok := sess.FindQuiz(payload.QuizID)
		if !ok {
			return errUnknownQuiz
		}
		return sess.Start(ctx, quiz)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return sess.SelectAnswer(payload.QuestionID, payload.OptionKey)
	case "submit":
		return sess.Submit(ctx)
	case "reset":
		sess.Reset()
		return nil
	default:
		return errUnsupportedType
	}
}

// push writes without blocking forever when the connection is going away.
func (h *WSHandler) push(send chan<- outboundMessage, closeSignals <-chan struct{}, msg outboundMessage) {
	select {
	case send <- msg:
	case <-closeSignals:
	}
}
