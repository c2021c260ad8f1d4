package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Garsondee/Dustline/internal/lobby"
	"github.com/Garsondee/Dustline/internal/rts"
)

const (
	writeWait      = 10 * time.Second
	readLimitBytes = 16 * 1024

	// Inputs beyond this per-session rate are dropped, not queued.
	inputRatePerSecond = 30
	inputBurst         = 60

	outboxCap = 32
)

// wsSession is one client connection: a read pump feeding the game's
// input queue and a write pump draining the outbox. The outbox is
// latest-wins; a slow client loses old snapshots rather than stalling
// the game goroutine.
type wsSession struct {
	conn    *websocket.Conn
	game    *rts.Game
	session *lobby.Session
	logger  *slog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	out    chan *rts.ServerMessage
	closed bool
}

func newWSSession(conn *websocket.Conn, game *rts.Game, sess *lobby.Session, logger *slog.Logger) *wsSession {
	return &wsSession{
		conn:    conn,
		game:    game,
		session: sess,
		logger:  logger.With("game", sess.GameID, "player", sess.PlayerID),
		limiter: rate.NewLimiter(rate.Limit(inputRatePerSecond), inputBurst),
		out:     make(chan *rts.ServerMessage, outboxCap),
	}
}

// Deliver implements rts.SnapshotSink. Called inline from the game
// goroutine, so it must never block: when the outbox is full the
// oldest message is discarded to make room.
func (s *wsSession) Deliver(msg *rts.ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.out <- msg:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	s.mu.Unlock()
	_ = s.conn.Close()
}

// inboundMessage is the raw client frame before dispatch. Ping is
// answered from the session, bypassing the tick.
type inboundMessage struct {
	Ping bool `json:"ping"`
}

// readPump consumes client frames until the connection drops.
func (s *wsSession) readPump() {
	s.conn.SetReadLimit(readLimitBytes)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "err", err)
			}
			return
		}
		if !s.limiter.Allow() {
			s.logger.Warn("input rate exceeded, dropping frame")
			continue
		}

		var head inboundMessage
		if err := json.Unmarshal(raw, &head); err != nil {
			s.logger.Warn("malformed client frame", "err", err)
			continue
		}
		if head.Ping {
			s.Deliver(rts.PongMessage())
			continue
		}

		in := &rts.PlayerInput{}
		if err := json.Unmarshal(raw, in); err != nil {
			s.logger.Warn("malformed input frame", "err", err)
			continue
		}
		// The session, not the client, decides whose orders these are.
		in.PlayerID = s.session.PlayerID
		s.game.QueueInput(in)
	}
}

// writePump drains the outbox onto the wire.
func (s *wsSession) writePump() {
	for msg := range s.out {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(msg); err != nil {
			s.logger.Warn("websocket write failed", "err", err)
			_ = s.conn.Close()
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
