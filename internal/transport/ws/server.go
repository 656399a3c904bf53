package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/multiworld"
)

type Server struct {
	mgr *multiworld.Manager
	log *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(mgr *multiworld.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		mgr: mgr,
		log: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("player", sess.PlayerID), zap.String("world", sess.CurrentWorld))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.Out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			act, code, reason := decodeAct(msg)
			if code != "" {
				s.reject(sess, code, reason)
				continue
			}
			if err := s.mgr.RouteAct(ctx, &sess, act); err != nil {
				switch {
				case errors.Is(err, multiworld.ErrWorldBusy):
					s.reject(sess, protocol.ErrWorldBusy, "world inbox busy")
				case errors.Is(err, multiworld.ErrWorldNotFound):
					s.reject(sess, protocol.ErrWorldNotFound, err.Error())
				default:
					log.Warn("route act", zap.Error(err))
				}
			}
		}

		s.mgr.Leave(sess)
		log.Info("session closed")
	}
}

// decodeAct returns a protocol error code and message when msg is not a usable ACT.
func decodeAct(msg []byte) (protocol.ActMsg, string, string) {
	var act protocol.ActMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return act, protocol.ErrProtoBadRequest, "malformed message"
	}
	if base.Type != protocol.TypeAct {
		return act, protocol.ErrProtoBadRequest, "expected ACT, got " + base.Type
	}
	if err := json.Unmarshal(msg, &act); err != nil {
		return act, protocol.ErrProtoBadRequest, "malformed ACT"
	}
	if act.ProtocolVersion != protocol.Version {
		return act, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	return act, "", ""
}

// reject queues an EVENT carrying a single ERROR; it is dropped if the queue is full.
func (s *Server) reject(sess multiworld.Session, code, message string) {
	b, err := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		WorldID:         sess.CurrentWorld,
		Events:          []protocol.Event{protocol.ErrorEvent(0, code, message)},
	})
	if err != nil {
		return
	}
	select {
	case sess.Out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (multiworld.Session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return multiworld.Session{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return multiworld.Session{}, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "malformed HELLO")
		return multiworld.Session{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return multiworld.Session{}, false
	}
	if hello.PlayerName == "" {
		hello.PlayerName = "player"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out := make(chan []byte, maxQ)

	sess, resp, err := s.mgr.Join(hello.PlayerName, out, hello.WorldID)
	if err != nil {
		s.log.Warn("join", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "join failed"), time.Now().Add(time.Second))
		return multiworld.Session{}, false
	}
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.mgr.Leave(sess)
		return multiworld.Session{}, false
	}
	return sess, true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
