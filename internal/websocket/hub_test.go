package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/models"
)

type staticStatus struct{ restricted bool }

func (s staticStatus) UserStatus(ctx context.Context, userID uuid.UUID) (*models.UserRealtimeStatus, error) {
	return &models.UserRealtimeStatus{UserID: userID, Restricted: s.restricted, CurrentSessions: []*models.StudySession{}}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHub_RejectsMissingOrBadToken(t *testing.T) {
	hub := NewHub(nil, middleware.NewJWTAuth("secret"), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "")
	if err == nil {
		t.Fatalf("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}

	_, resp, err = dial(t, srv, "garbage")
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token")
	}
}

func TestHub_SnapshotAndDirectSend(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, auth, staticStatus{restricted: true})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	userID := uuid.New()
	token, err := auth.GenerateToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	conn, _, err := dial(t, srv, token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snapshot struct {
		Type    string                    `json:"type"`
		Payload models.UserRealtimeStatus `json:"payload"`
	}
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Type != "restriction_status" || !snapshot.Payload.Restricted || snapshot.Payload.UserID != userID {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if hub.Connected(userID) != 1 {
		t.Fatalf("expected one registered connection, got %d", hub.Connected(userID))
	}

	hub.SendToUser(userID, models.WSMessage{Type: "notification", Payload: map[string]string{"title": "hello"}})

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if msg.Type != "notification" {
		t.Fatalf("expected notification message, got %s", msg.Type)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected(userID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection was not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
