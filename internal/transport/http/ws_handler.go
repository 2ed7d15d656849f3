package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"wlingo-quiz-service/internal/app"
	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/logger"
)

type WSHandler struct {
	service    *app.QuizService
	log        *logger.Logger
	cookieName string
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *logger.Logger, cookieName string) *WSHandler {
	if cookieName == "" {
		cookieName = "quiz_session_id"
	}
	return &WSHandler{
		service:    service,
		log:        log.With("component", "ws"),
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic string `json:"topic"`
	Mode  string `json:"mode"`
}

type questionPayload struct {
	Index int `json:"index"`
}

type answerPayload struct {
	Index               int     `json:"index"`
	SelectedOptionIndex *int    `json:"selectedOptionIndex"`
	Answer              *string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS upgrades the request and serves quiz operations for the session
// named by the cookie. A "start" message creates one when there is none.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if c, err := r.Cookie(h.cookieName); err == nil {
		sessionID = c.Value
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "error", err)
				failed = true
				// Unblocks the reader; keep draining so it never blocks on send.
				conn.Close()
			}
		}
	}()

	sendErr := func(err error) {
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			h.log.Error("ws request failed", "session", sessionID, "error", err)
			msg = "internal error"
		}
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg, Status: status}}
	}
	badRequest := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg, Status: http.StatusBadRequest}}
	}

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					badRequest("invalid start payload")
					continue
				}
			}
			mode := domain.ParseMode(payload.Mode)
			if payload.Topic == ArithmeticTopicID {
				mode = domain.ModeArithmetic
			}
			session, created, err := h.service.StartSession(ctx, sessionID, payload.Topic, mode)
			if err != nil {
				sendErr(err)
				continue
			}
			sessionID = session.ID
			send <- outboundMessage[any]{Type: "session", Payload: sessionResponse{
				SessionID: session.ID,
				Topic:     session.Topic,
				Mode:      session.Mode,
				Total:     session.Total(),
				NextIndex: len(session.Answers),
				Created:   created,
			}}
		case "question":
			var payload questionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				badRequest("invalid question payload")
				continue
			}
			view, err := h.service.GetQuestion(ctx, sessionID, payload.Index)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: view}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				badRequest("invalid answer payload")
				continue
			}
			var sel domain.Selection
			switch {
			case payload.SelectedOptionIndex != nil:
				sel = domain.SelectIndex(*payload.SelectedOptionIndex)
			case payload.Answer != nil:
				sel = domain.SelectValue(*payload.Answer)
			default:
				badRequest("selectedOptionIndex or answer is required")
				continue
			}
			record, err := h.service.SubmitAnswer(ctx, sessionID, payload.Index, sel)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: record}
		case "result":
			result, err := h.service.GetResult(ctx, sessionID)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: result}
		case "reset":
			if err := h.service.ResetSession(ctx, sessionID); err != nil {
				sendErr(err)
				continue
			}
			sessionID = ""
			send <- outboundMessage[any]{Type: "reset", Payload: struct{}{}}
		default:
			badRequest("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

// sameOrigin rejects cross-site upgrades, since the session comes from the
// cookie. Clients that send no Origin header (non-browser) are allowed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
