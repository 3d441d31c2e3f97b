package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/VoiceCall/internal/adapters/signal"
	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Mode:       "test",
		Port:       8080,
		StaticPath: t.TempDir(),
		ReadLimit:  65536,
		PingPeriod: time.Second,
		PongWait:   5 * time.Second,
		WriteWait:  time.Second,
		SendBuffer: 16,
		Secret:     "test-secret",
		LogLevel:   "info",
		ICEServers: []config.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}},
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	m := metrics.New()
	hub := signal.NewHub(app.SimplePolicy{}, m)
	o := &orch.Orchestrator{Registry: app.NewRegistry(), Gateway: hub, Metrics: m}

	srv := httptest.NewServer(SetupRouter(ctx, testConfig(t), o, hub, m))
	t.Cleanup(func() {
		cancel()
		hub.CloseAll()
		srv.Close()
	})
	return srv
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(v map[string]any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(v))
}

// expect reads until a message of the given type arrives, skipping others.
func (c *wsClient) expect(typ string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", typ)
		var msg map[string]any
		require.NoError(c.t, json.Unmarshal(data, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func (c *wsClient) register(phone, name string) string {
	c.t.Helper()
	c.send(map[string]any{"type": "register", "phoneNumber": phone, "userName": name})
	msg := c.expect("registered")
	require.Equal(c.t, true, msg["success"])
	id, _ := msg["userId"].(string)
	require.NotEmpty(c.t, id)
	return id
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSignalingEndToEnd(t *testing.T) {
	srv := startServer(t)
	alice := dial(t, srv)
	bob := dial(t, srv)

	aliceID := alice.register("+1", "Alice")
	bobID := bob.register("+2", "Bob")
	assert.NotEqual(t, aliceID, bobID)

	offer := map[string]any{"type": "offer", "sdp": "v=0 offer"}
	alice.send(map[string]any{"type": "call-request", "targetPhoneNumber": "+2", "offer": offer})

	incoming := bob.expect("incoming-call")
	assert.Equal(t, "Alice", incoming["from"])
	assert.Equal(t, "+1", incoming["fromPhoneNumber"])
	assert.Equal(t, aliceID, incoming["fromId"])
	assert.Equal(t, offer, incoming["offer"])

	initiated := alice.expect("call-initiated")
	assert.Equal(t, "Bob", initiated["targetName"])
	assert.Equal(t, bobID, initiated["targetId"])

	answer := map[string]any{"type": "answer", "sdp": "v=0 answer"}
	bob.send(map[string]any{"type": "answer-call", "callerId": aliceID, "answer": answer})
	answered := alice.expect("call-answered")
	assert.Equal(t, answer, answered["answer"])
	assert.Equal(t, "Bob", answered["answererName"])
	connected := bob.expect("call-connected")
	assert.Equal(t, "Alice", connected["callerName"])

	var users []domain.User
	getJSON(t, srv.URL+"/api/users", &users)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, domain.StatusInCall, u.Status)
	}

	cand := map[string]any{"candidate": "candidate:1 1 udp 1 10.0.0.1 5000 typ host", "sdpMid": "0", "sdpMLineIndex": float64(0)}
	alice.send(map[string]any{"type": "ice-candidate", "targetId": bobID, "candidate": cand})
	relayed := bob.expect("ice-candidate")
	assert.Equal(t, cand, relayed["candidate"])
	assert.Equal(t, aliceID, relayed["from"])

	alice.send(map[string]any{"type": "end-call", "targetId": bobID})
	ended := bob.expect("call-ended")
	assert.Equal(t, orch.MsgCallEnded, ended["message"])

	getJSON(t, srv.URL+"/api/users", &users)
	for _, u := range users {
		assert.Equal(t, domain.StatusAvailable, u.Status)
	}
}

func TestSignalingErrorsAreAdvisory(t *testing.T) {
	srv := startServer(t)
	alice := dial(t, srv)
	alice.register("+1", "Alice")

	alice.send(map[string]any{"type": "call-request", "targetPhoneNumber": "+404", "offer": map[string]any{"type": "offer", "sdp": "v=0"}})
	assert.Equal(t, orch.MsgUserNotFound, alice.expect("call-error")["message"])

	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	msg := alice.expect("call-error")
	assert.Contains(t, msg["message"], "Invalid message")

	// The connection survives both errors.
	alice.send(map[string]any{"type": "ping"})
	alice.expect("pong")
}

func TestDisconnectUpdatesPresence(t *testing.T) {
	srv := startServer(t)
	alice := dial(t, srv)
	bob := dial(t, srv)
	alice.register("+1", "Alice")
	bob.register("+2", "Bob")

	require.NoError(t, alice.conn.Close())

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/users")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var users []domain.User
		if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
			return false
		}
		return len(users) == 1 && users[0].UserName == "Bob"
	}, 3*time.Second, 20*time.Millisecond)

	for {
		users, _ := bob.expect("users-list")["users"].([]any)
		if len(users) == 1 && users[0].(map[string]any)["userName"] == "Bob" {
			break
		}
	}
}

func TestHealth(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv)
	c.register("+1", "Alice")

	var health struct {
		Status         string `json:"status"`
		ConnectedUsers int    `json:"connectedUsers"`
		Connections    int    `json:"connections"`
		Timestamp      string `json:"timestamp"`
	}
	getJSON(t, srv.URL+"/api/health", &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ConnectedUsers)
	assert.Equal(t, 1, health.Connections)
	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)
}

func TestICEServers(t *testing.T) {
	srv := startServer(t)
	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	getJSON(t, srv.URL+"/api/ice-servers", &body)
	require.Len(t, body.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, body.ICEServers[0].URLs)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv)
	c.register("+1", "Alice")
	// The gauge is updated before the presence broadcast goes out.
	c.expect("users-list")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `voicecall_events_total{type="register"} 1`)
	assert.Contains(t, string(body), "voicecall_users_online 1")
}

func TestClientTokenCookie(t *testing.T) {
	srv := startServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == "VoiceSessions" {
			found = true
			assert.True(t, ck.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie issued")
}

func TestSignalOptionsFallsBackToDefaults(t *testing.T) {
	assert.Equal(t, signal.DefaultOptions(), SignalOptions(&config.Config{}))

	opts := SignalOptions(&config.Config{PingPeriod: 20 * time.Second, SendBuffer: 8})
	assert.Equal(t, 20*time.Second, opts.PingPeriod)
	assert.Equal(t, 8, opts.SendBuffer)
	assert.Equal(t, signal.DefaultOptions().PongWait, opts.PongWait)
	assert.Equal(t, signal.DefaultOptions().ReadLimit, opts.ReadLimit)
}
