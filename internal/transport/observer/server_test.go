package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"flownet.ai/internal/observerproto"
	"flownet.ai/internal/sim/world"
)

type fakeHost struct {
	join  chan world.ObserverJoinRequest
	sub   chan world.ObserverSubscribeRequest
	leave chan string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		join:  make(chan world.ObserverJoinRequest, 4),
		sub:   make(chan world.ObserverSubscribeRequest, 4),
		leave: make(chan string, 4),
	}
}

func (h *fakeHost) Bootstrap() observerproto.BootstrapResponse {
	return observerproto.BootstrapResponse{ProtocolVersion: observerproto.Version, WorldID: "MAIN", Tick: 9, Networks: []string{"FLUID"}}
}
func (h *fakeHost) ObserverJoin() chan<- world.ObserverJoinRequest           { return h.join }
func (h *fakeHost) ObserverSubscribe() chan<- world.ObserverSubscribeRequest { return h.sub }
func (h *fakeHost) ObserverLeave() chan<- string                             { return h.leave }

func wsURL(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") }

func TestBootstrapHandler(t *testing.T) {
	s := NewServer(newFakeHost(), Config{}, nil)
	srv := httptest.NewServer(s.BootstrapHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var got observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WorldID != "MAIN" || got.Tick != 9 {
		t.Fatalf("bootstrap=%+v", got)
	}
}

func TestSubscribeJoinsAndStreams(t *testing.T) {
	h := newFakeHost()
	counts := make(chan int, 4)
	s := NewServer(h, Config{QueueDepth: 4, OnClients: func(n int) { counts <- n }}, nil)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	sub := observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, Networks: []string{" fluid "}, Containers: true}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var join world.ObserverJoinRequest
	select {
	case join = <-h.join:
	case <-time.After(2 * time.Second):
		t.Fatalf("no join request")
	}
	if len(join.Networks) != 1 || join.Networks[0] != "FLUID" || !join.Containers {
		t.Fatalf("join=%+v", join)
	}
	if n := <-counts; n != 1 {
		t.Fatalf("clients=%d, want 1", n)
	}

	join.TickOut <- []byte(`{"type":"TICK","tick":3}`)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(msg), `"tick":3`) {
		t.Fatalf("msg=%s", msg)
	}

	sub.Networks = []string{"power"}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	select {
	case upd := <-h.sub:
		if upd.SessionID != join.SessionID || upd.Networks[0] != "POWER" {
			t.Fatalf("update=%+v", upd)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscribe update")
	}

	conn.Close()
	select {
	case sid := <-h.leave:
		if sid != join.SessionID {
			t.Fatalf("leave=%s, want %s", sid, join.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no leave")
	}
}

func TestBadHandshakeCloses(t *testing.T) {
	h := newFakeHost()
	s := NewServer(h, Config{}, nil)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"HELLO"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v, want policy violation close", err)
	}
	select {
	case <-h.join:
		t.Fatalf("unexpected join")
	default:
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:1":     false,
		"nonsense":       false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v, want %v", addr, got, want)
		}
	}
}
