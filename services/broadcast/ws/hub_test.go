package wsbroadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/tests"
)

type message struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub(t *testing.T) {
	hub := NewHub(testutil.NewLogger(testutil.NewConfig()), []string{"*"})
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "child-1", emotion.State{Mode: emotion.ModeLearning, ActiveModule: 2})
	}))
	defer srv.Close()

	conn := dial(t, srv)
	init := read(t, conn)
	assert.Equal(t, TypeStateInit, init.Type)
	assert.JSONEq(t, `{"mode":"learning","active_module":2,"samples":null}`, string(init.Data))

	require.Eventually(t, func() bool { return hub.Clients("child-1") == 1 }, time.Second, 10*time.Millisecond)

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	hub.Publish("child-2", emotion.Transition{From: emotion.ModeLearning, To: emotion.ModeCalming, At: at})
	hub.Publish("child-1", emotion.Transition{From: emotion.ModeLearning, To: emotion.ModeCalming, At: at, Module: 2})

	msg := read(t, conn)
	assert.Equal(t, TypeModeChanged, msg.Type)
	assert.Equal(t, at, msg.Ts)
	assert.JSONEq(t, `{"from":"learning","to":"calming","at":"2024-05-06T07:08:09Z","module":2,"window":null}`, string(msg.Data))

	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients("child-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(req))
}
