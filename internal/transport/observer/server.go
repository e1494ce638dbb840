package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"flownet.ai/internal/observerproto"
	"flownet.ai/internal/sim/world"
)

// Host is the world surface the observer stream needs.
type Host interface {
	Bootstrap() observerproto.BootstrapResponse
	ObserverJoin() chan<- world.ObserverJoinRequest
	ObserverSubscribe() chan<- world.ObserverSubscribeRequest
	ObserverLeave() chan<- string
}

type Config struct {
	QueueDepth  int
	MaxClients  int
	AllowRemote bool
	// OnClients is called with the live client count after every change.
	OnClients func(n int)
}

type Server struct {
	host Host
	cfg  Config
	log  *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	clients  atomic.Int64
}

func NewServer(h Host, cfg Config, logger *log.Logger) *Server {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 8
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		host: h,
		cfg:  cfg,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.cfg.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.host.Bootstrap())
	}
}

func (s *Server) clientsChanged(delta int64) {
	n := s.clients.Add(delta)
	if s.cfg.OnClients != nil {
		s.cfg.OnClients(int(n))
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.cfg.MaxClients > 0 && s.clients.Load() >= int64(s.cfg.MaxClients) {
			http.Error(rw, "too many observers", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		tickOut := make(chan []byte, s.cfg.QueueDepth)

		joinReq := world.ObserverJoinRequest{
			SessionID:  sid,
			TickOut:    tickOut,
			Networks:   sub.Networks,
			Containers: sub.Containers,
		}
		select {
		case s.host.ObserverJoin() <- joinReq:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		s.clientsChanged(1)
		s.log.Printf("observer %s joined from %s", sid, r.RemoteAddr)
		defer func() {
			s.clientsChanged(-1)
			select {
			case s.host.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-tickOut:
					if !ok {
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			req := world.ObserverSubscribeRequest{
				SessionID:  sid,
				Networks:   sub.Networks,
				Containers: sub.Containers,
			}
			select {
			case s.host.ObserverSubscribe() <- req:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	nets := sub.Networks[:0]
	for _, n := range sub.Networks {
		if n = strings.ToUpper(strings.TrimSpace(n)); n != "" {
			nets = append(nets, n)
		}
	}
	sub.Networks = nets
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
