package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/STARREPORTS/internal/notifications"
	"github.com/STARREPORTS/internal/types"
	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{hub: hub, send: make(chan []byte, sendBuffer)}
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastState(types.NewState())
	select {
	case msg := <-client.send:
		var env types.WSMessage
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if env.Type != types.WSTypeStateUpdate {
			t.Errorf("Type = %q", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Stop()
	hub.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after Stop", hub.ClientCount())
	}

	late := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(late)
	if _, ok := <-late.send; ok {
		t.Error("client registered after Stop should be closed")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after late Register", hub.ClientCount())
	}
	hub.BroadcastJSON(map[string]string{"type": "late"})
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.Register(slow)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastJSON(map[string]string{"type": "ping"})
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func readWS(t *testing.T, conn *websocket.Conn) types.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg types.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWebSocketPushesState(t *testing.T) {
	manager := notifications.NewManager(notifications.Config{EnableToast: false})
	env := newTestEnv(t, nil, func(o *Options) { o.Notifications = manager })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if msg := readWS(t, conn); msg.Type != types.WSTypeStateUpdate {
		t.Fatalf("first message = %q, want %q", msg.Type, types.WSTypeStateUpdate)
	}
	waitFor(t, func() bool { return env.srv.Hub().ClientCount() == 1 })

	resp, err := http.Post(ts.URL+"/api/grades", "application/json", strings.NewReader(`{"name":"Grade 1"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msg := readWS(t, conn)
	if msg.Type != types.WSTypeStateUpdate {
		t.Fatalf("Type = %q", msg.Type)
	}
	data, _ := json.Marshal(msg.Data)
	var st types.State
	json.Unmarshal(data, &st)
	if len(st.Grades) != 1 || st.Grades[0].Name != "Grade 1" {
		t.Errorf("pushed grades = %+v", st.Grades)
	}

	manager.ShowDashboardBanner("Saving failed", notifications.BannerTypeError)
	if msg := readWS(t, conn); msg.Type != types.WSTypeBanner {
		t.Errorf("Type = %q, want %q", msg.Type, types.WSTypeBanner)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}
}

func TestBannerEndpoints(t *testing.T) {
	manager := notifications.NewManager(notifications.Config{})
	env := newTestEnv(t, nil, func(o *Options) { o.Notifications = manager })

	manager.ShowDashboardBanner("Disk full", notifications.BannerTypeWarning)
	rec := env.do(t, http.MethodGet, "/api/notifications/banner", nil)
	expectStatus(t, rec, http.StatusOK)
	banner := decode[notifications.BannerState](t, rec)
	if !banner.Visible || banner.Message != "Disk full" {
		t.Errorf("banner = %+v", banner)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/notifications/banner/clear", nil), http.StatusOK)
	if manager.GetBannerState().Visible {
		t.Error("banner still visible after clear")
	}
}
