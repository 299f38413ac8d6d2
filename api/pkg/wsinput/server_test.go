package wsinput

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
	"github.com/helixml/droidbridge/api/pkg/input"
	"github.com/helixml/droidbridge/api/pkg/loop"
)

func newTestServer(t *testing.T) (*Server, chan input.Event) {
	t.Helper()
	events := make(chan input.Event, 16)
	screen := controlmsg.NewScreenInfo(controlmsg.Resolution{Width: 1920, Height: 1080}, controlmsg.Resolution{})
	s := New(Config{}, screen, loop.NewManual(), func(ev input.Event) { events <- ev })
	return s, events
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + DefaultPath
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func waitEvent(t *testing.T, events chan input.Event) input.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no input event")
		return input.Event{}
	}
}

func TestServerDispatchesFrames(t *testing.T) {
	s, events := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts.URL)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, keyFrame(evdev.KEY_H, true, 0)))
	// text frames and garbage are skipped
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x42}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, absFrame(100, 200, 0, 0)))

	ev := waitEvent(t, events)
	assert.Equal(t, input.KindKeyPress, ev.Kind)
	assert.Equal(t, "h", ev.Key)

	ev = waitEvent(t, events)
	assert.Equal(t, input.KindMotion, ev.Kind)
	assert.Equal(t, 100.0, ev.X)
	assert.Equal(t, 200.0, ev.Y)

	assert.Eventually(t, func() bool { return s.Connections() == 1 }, time.Second, 10*time.Millisecond)

	// the held key is released when the client goes away
	require.NoError(t, conn.Close())
	ev = waitEvent(t, events)
	assert.Equal(t, input.KindKeyRelease, ev.Kind)
	assert.Equal(t, "h", ev.Key)
	assert.Eventually(t, func() bool { return s.Connections() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServerStatus(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Connections() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 1, status["connections"])
}

func TestServerRejectsPlainRequests(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, err := http.Post(ts.URL+DefaultPath, "application/octet-stream", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + DefaultPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeStopsOnContextDone(t *testing.T) {
	s, _ := newTestServer(t)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn := dial(t, "http://"+lis.Addr().String())
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Connections() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, DefaultPath, cfg.Path)
}
