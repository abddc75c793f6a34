package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/config"
	"github.com/avvvet/sightline/internal/models"
)

// recorder echoes the request it received
type recorder struct {
	mu       sync.Mutex
	requests []models.AssistRequest
	closed   []string
}

func (r *recorder) Process(ctx context.Context, req *models.AssistRequest) *models.AssistResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, *req)
	return &models.AssistResponse{
		SessionID:  req.SessionID,
		SpeechText: "type=" + req.Type,
		Speak:      true,
	}
}

func (r *recorder) CloseSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, sessionID)
}

func (r *recorder) closedSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "assist.frame", Subject("assist", models.RequestFrame))
}

func TestNATSHandle(t *testing.T) {
	rec := &recorder{}
	nt := &NATSTransport{
		config:  &config.Config{NatsSubjectPrefix: "assist", PhraseTimeout: time.Second},
		handler: rec,
		logger:  zap.NewNop(),
	}

	data := nt.handle(context.Background(), "assist.advance", []byte(`{"session_id":"s1"}`))

	var resp models.AssistResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "type=advance", resp.SpeechText)

	data = nt.handle(context.Background(), "assist.command", []byte(`{"session_id":"s1","type":"start","destination":"cafeteria"}`))
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "type=start", resp.SpeechText)
	require.Len(t, rec.requests, 2)
	require.NotNil(t, rec.requests[1].Destination)
	assert.Equal(t, "cafeteria", *rec.requests[1].Destination)
}

func TestNATSHandle_BadJSON(t *testing.T) {
	rec := &recorder{}
	nt := &NATSTransport{config: &config.Config{}, handler: rec, logger: zap.NewNop()}

	data := nt.handle(context.Background(), "assist.frame", []byte(`{not json`))

	var resp models.AssistResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorParseError, *resp.ErrorCode)
	assert.Empty(t, rec.requests)
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocket_SessionPerConnection(t *testing.T) {
	rec := &recorder{}
	ws := NewWebSocketServer(":0", rec, time.Second, zap.NewNop())
	server := httptest.NewServer(ws.Routes())
	defer server.Close()

	conn := dial(t, server, "?session_id=abc")

	require.NoError(t, conn.WriteJSON(models.AssistRequest{SessionID: "spoofed", Type: models.RequestStatus}))
	var resp models.AssistResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "type=status", resp.SpeechText)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	resp = models.AssistResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorParseError, *resp.ErrorCode)
	assert.Equal(t, "abc", resp.SessionID)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool {
		closed := rec.closedSessions()
		return len(closed) == 1 && closed[0] == "abc"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_GeneratedSessionID(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(NewWebSocketServer(":0", rec, time.Second, zap.NewNop()).Routes())
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.AssistRequest{Type: models.RequestPing}))
	var resp models.AssistResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Len(t, resp.SessionID, 36)
}

func TestHealthz(t *testing.T) {
	server := httptest.NewServer(NewWebSocketServer(":0", &recorder{}, time.Second, zap.NewNop()).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
