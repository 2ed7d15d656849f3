package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *testServer, sessionID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if sessionID != "" {
		header.Set("Cookie", "quiz_session_id="+sessionID)
	}
	u := "ws" + srv.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string, into any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	if into != nil {
		if err := json.Unmarshal(msg.Payload, into); err != nil {
			t.Fatalf("decode %s payload: %v", expect, err)
		}
	}
}

func TestWebSocketUsesCookieSession(t *testing.T) {
	srv := newTestServer(t)
	started := decodeBody[sessionResponse](t, srv.postJSON(t, "/api/start", startRequest{Topic: "german_basic"}))
	session := srv.session(t, started.SessionID)

	conn := dialWS(t, srv, started.SessionID)

	send(t, conn, "question", map[string]any{"index": 0})
	var view struct {
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
		Total   int      `json:"total"`
	}
	readNext(t, conn, "question", &view)
	if view.Prompt != session.Questions[0].Prompt || view.Total != 3 {
		t.Fatalf("unexpected question %+v", view)
	}

	correct := slices.Index(view.Options, session.Questions[0].CorrectAnswer)
	send(t, conn, "answer", map[string]any{"index": 0, "selectedOptionIndex": correct})
	var record struct {
		IsCorrect bool `json:"isCorrect"`
	}
	readNext(t, conn, "answerResult", &record)
	if !record.IsCorrect {
		t.Fatalf("expected correct answer")
	}

	send(t, conn, "answer", map[string]any{"index": 0, "selectedOptionIndex": correct})
	var errPayload errorPayload
	readNext(t, conn, "error", &errPayload)
	if errPayload.Status != http.StatusConflict {
		t.Fatalf("expected conflict on resubmission, got %+v", errPayload)
	}

	send(t, conn, "result", nil)
	var result struct {
		CorrectCount int `json:"correctCount"`
		NextIndex    int `json:"nextIndex"`
	}
	readNext(t, conn, "result", &result)
	if result.CorrectCount != 1 || result.NextIndex != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWebSocketStartAndReset(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv, "")

	send(t, conn, "result", nil)
	var errPayload errorPayload
	readNext(t, conn, "error", &errPayload)
	if errPayload.Status != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without a session, got %+v", errPayload)
	}

	send(t, conn, "start", map[string]any{"topic": ArithmeticTopicID})
	var started sessionResponse
	readNext(t, conn, "session", &started)
	if !started.Created || started.Total != 3 || started.Mode != "arithmetic" {
		t.Fatalf("unexpected session %+v", started)
	}

	send(t, conn, "reset", nil)
	readNext(t, conn, "reset", nil)
	if srv.store.Len() != 0 {
		t.Fatalf("expected session removed after reset")
	}

	send(t, conn, "bogus", nil)
	readNext(t, conn, "error", &errPayload)
	if errPayload.Status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %+v", errPayload)
	}
}

func TestWebSocketRejectsCrossSiteOrigin(t *testing.T) {
	srv := newTestServer(t)
	started := decodeBody[sessionResponse](t, srv.postJSON(t, "/api/start", startRequest{Topic: "german_basic"}))
	u := "ws" + srv.URL[len("http"):] + "/ws"

	header := http.Header{}
	header.Set("Cookie", "quiz_session_id="+started.SessionID)
	header.Set("Origin", "http://evil.example")
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if err == nil {
		conn.Close()
		t.Fatalf("expected cross-site handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}

	header.Set("Origin", srv.URL)
	conn, _, err = websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("same-origin dial: %v", err)
	}
	defer conn.Close()
	send(t, conn, "result", nil)
	readNext(t, conn, "result", nil)
}
