package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"example.com/fitplan/internal/auth"
	"example.com/fitplan/internal/domain"
)

type echoChatter struct{}

func (echoChatter) Chat(_ context.Context, msg domain.ChatMessage) (domain.ChatReply, error) {
	if strings.TrimSpace(msg.Message) == "" {
		return domain.ChatReply{}, &domain.ValidationError{Fields: []domain.FieldError{{Field: "message", Rule: "required"}}}
	}
	return domain.ChatReply{Response: msg.UserID + ": " + msg.Message, MessageType: msg.MessageType}, nil
}

func withClaims(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set := make(map[string]struct{}, len(scopes))
			for _, s := range scopes {
				set[s] = struct{}{}
			}
			claims := &auth.Claims{Subject: "user-1", Scopes: set, ExpiresAt: time.Now().Add(time.Hour)}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestServerAnswersChatMessages(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(withClaims(auth.ScopeChat)(NewServer(hub, echoChatter{}, ServerConfig{}, nil)))
	defer srv.Close()

	conn := dial(t, srv)
	require.Equal(t, FrameConnected, readFrame(t, conn).Type)
	require.Eventually(t, func() bool { return hub.CountForUser("user-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "how many sets?", "message_type": "workout"}))
	reply := readFrame(t, conn)
	require.Equal(t, FrameReply, reply.Type)
	data := reply.Data.(map[string]any)
	require.Equal(t, "user-1: how many sets?", data["response"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": " "}))
	require.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.Equal(t, FrameError, readFrame(t, conn).Type)

	require.Equal(t, 1, hub.SendToUser("user-1", []byte(`{"type":"push"}`)))
	require.Equal(t, "push", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServerRequiresChatScope(t *testing.T) {
	srv := httptest.NewServer(withClaims(auth.ScopePlansRead)(NewServer(NewHub(nil), echoChatter{}, ServerConfig{}, nil)))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServerEnforcesPerUserLimit(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(withClaims(auth.ScopeChat)(NewServer(hub, echoChatter{}, ServerConfig{MaxConnectionsPerUser: 1}, nil)))
	defer srv.Close()

	conn := dial(t, srv)
	require.Equal(t, FrameConnected, readFrame(t, conn).Type)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestServerClosesSocketsOnHubClose(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(withClaims(auth.ScopeChat)(NewServer(hub, echoChatter{}, ServerConfig{}, nil)))
	defer srv.Close()

	conn := dial(t, srv)
	require.Equal(t, FrameConnected, readFrame(t, conn).Type)
	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
