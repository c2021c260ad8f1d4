// Package lobby owns game lifecycle outside the simulation: creating
// games, matchmaking reservations, session tokens and the cleanup
// sweeper. The lobby never reaches into a running tick; it hands out
// *rts.Game references and lets the transport layer talk to them.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Garsondee/Dustline/internal/rts"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrLobbyFull    = errors.New("lobby: game cap reached")
	ErrGameNotFound = errors.New("lobby: game not found")
	ErrGameFull     = errors.New("lobby: game is full")
	ErrBadToken     = errors.New("lobby: unknown session token")
)

// Cleanup policy.
const (
	sweepInterval      = 5 * time.Second
	staleGameAge       = 5 * time.Minute
	staleMatchmakeAge  = 10 * time.Minute
	defaultMaxGames    = 64
	defaultFactionType = "DUNE_COALITION"
)

// Config tunes the lobby.
type Config struct {
	MaxGames int
	Balance  *rts.Balance
	Logger   *slog.Logger

	// Clock is swappable for tests; nil means time.Now.
	Clock func() time.Time
}

// Session binds a matchmaking reservation to one player slot. The
// token is the only credential a client holds.
type Session struct {
	Token       string
	GameID      string
	PlayerID    int
	Slot        int
	FactionType string
	Name        string
}

// Reservation is the matchmaking response payload.
type Reservation struct {
	GameID       string `json:"gameId"`
	SessionToken string `json:"sessionToken"`
	PlayerID     int    `json:"playerId"`
}

// JoinRequest carries the matchmaking parameters for one player.
type JoinRequest struct {
	Name        string `json:"name"`
	FactionType string `json:"faction"`
	Biome       string `json:"biome"`
	Density     string `json:"density"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// matchRecord is a pre-start game gathering players.
type matchRecord struct {
	gameID     string
	created    time.Time
	biome      string
	density    string
	maxPlayers int
	sessions   []*Session
	started    bool
}

func (m *matchRecord) full() bool { return len(m.sessions) >= m.maxPlayers }

// gameRecord is a started game plus its lobby-side bookkeeping.
type gameRecord struct {
	game      *rts.Game
	created   time.Time
	cancel    context.CancelFunc
	sessions  map[string]*Session
	connected atomic.Int32
}

// Lobby is the shared registry of matches and running games. All maps
// are guarded by mu; nothing under mu ever waits on a game tick.
type Lobby struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	matches map[string]*matchRecord
	games   map[string]*gameRecord

	playerSeq atomic.Int64
}

// New builds a lobby. Run starts the sweeper.
func New(cfg Config) *Lobby {
	if cfg.MaxGames <= 0 {
		cfg.MaxGames = defaultMaxGames
	}
	if cfg.Balance == nil {
		cfg.Balance = rts.DefaultBalance()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Lobby{
		cfg:     cfg,
		logger:  logger.With("component", "lobby"),
		now:     now,
		matches: make(map[string]*matchRecord),
		games:   make(map[string]*gameRecord),
	}
}

// Run drives the cleanup sweeper until the context ends. Meant to be
// its own goroutine.
func (l *Lobby) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Shutdown()
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// CreateGame starts a game immediately with the given slots, bypassing
// matchmaking. Used by the direct create endpoint and by tests.
func (l *Lobby) CreateGame(slots []rts.PlayerSlot, biome, density string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.games)+len(l.matches) >= l.cfg.MaxGames {
		return "", ErrLobbyFull
	}

	gameID := uuid.NewString()
	rec, err := l.startGameLocked(gameID, slots, biome, density)
	if err != nil {
		return "", err
	}
	for _, p := range slots {
		token := uuid.NewString()
		rec.sessions[token] = &Session{
			Token:       token,
			GameID:      gameID,
			PlayerID:    p.PlayerID,
			Slot:        p.PlayerID,
			FactionType: p.FactionType,
			Name:        p.Name,
		}
	}
	return gameID, nil
}

// JoinMatchmaking reserves a slot. An empty gameID opens a new
// matchmaking game; otherwise it joins the named one. Filling the last
// slot starts the game.
func (l *Lobby) JoinMatchmaking(gameID string, req JoinRequest) (*Reservation, error) {
	if req.FactionType == "" {
		req.FactionType = defaultFactionType
	}
	if l.cfg.Balance.Factions[req.FactionType] == nil {
		return nil, fmt.Errorf("lobby: unknown faction %q", req.FactionType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var m *matchRecord
	if gameID == "" {
		if len(l.games)+len(l.matches) >= l.cfg.MaxGames {
			return nil, ErrLobbyFull
		}
		maxPlayers := req.MaxPlayers
		if maxPlayers < 2 || maxPlayers > 4 {
			maxPlayers = 2
		}
		m = &matchRecord{
			gameID:     uuid.NewString(),
			created:    l.now(),
			biome:      req.Biome,
			density:    req.Density,
			maxPlayers: maxPlayers,
		}
		l.matches[m.gameID] = m
	} else {
		m = l.matches[gameID]
		if m == nil {
			return nil, ErrGameNotFound
		}
		if m.full() || m.started {
			return nil, ErrGameFull
		}
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Player %d", len(m.sessions)+1)
	}
	s := &Session{
		Token:       uuid.NewString(),
		GameID:      m.gameID,
		PlayerID:    int(l.playerSeq.Add(1)),
		Slot:        len(m.sessions),
		FactionType: req.FactionType,
		Name:        name,
	}
	m.sessions = append(m.sessions, s)

	if m.full() {
		if err := l.promoteLocked(m); err != nil {
			return nil, err
		}
	}
	return &Reservation{GameID: m.gameID, SessionToken: s.Token, PlayerID: s.PlayerID}, nil
}

// LeaveMatchmaking releases a reservation; an emptied match is removed.
func (l *Lobby) LeaveMatchmaking(gameID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.matches[gameID]
	if m == nil {
		return ErrGameNotFound
	}
	for i, s := range m.sessions {
		if s.Token == token {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			for j := i; j < len(m.sessions); j++ {
				m.sessions[j].Slot = j
			}
			if len(m.sessions) == 0 {
				delete(l.matches, gameID)
			}
			return nil
		}
	}
	return ErrBadToken
}

// IsGameReady reports whether a matchmaking game has filled and
// started.
func (l *Lobby) IsGameReady(gameID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.games[gameID]; ok {
		return true
	}
	m := l.matches[gameID]
	return m != nil && m.started
}

// Game returns a running game by id.
func (l *Lobby) Game(gameID string) (*rts.Game, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec := l.games[gameID]
	if rec == nil {
		return nil, ErrGameNotFound
	}
	return rec.game, nil
}

// ResolveSession validates a token for the WebSocket handshake and
// returns the bound session.
func (l *Lobby) ResolveSession(gameID, token string) (*Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec := l.games[gameID]
	if rec == nil {
		return nil, ErrGameNotFound
	}
	s := rec.sessions[token]
	if s == nil {
		return nil, ErrBadToken
	}
	return s, nil
}

// MarkConnected counts an attached client; the sweeper keeps games
// with at least one alive.
func (l *Lobby) MarkConnected(gameID string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec := l.games[gameID]; rec != nil {
		rec.connected.Add(1)
	}
}

// MarkDisconnected releases a MarkConnected count.
func (l *Lobby) MarkDisconnected(gameID string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec := l.games[gameID]; rec != nil {
		rec.connected.Add(-1)
	}
}

// GameCount returns the number of running games.
func (l *Lobby) GameCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.games)
}

// Shutdown stops every running game.
func (l *Lobby) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, rec := range l.games {
		rec.cancel()
		rec.game.Stop()
		delete(l.games, id)
	}
	for id := range l.matches {
		delete(l.matches, id)
	}
}

// promoteLocked turns a full matchmaking record into a running game.
// Caller holds mu.
func (l *Lobby) promoteLocked(m *matchRecord) error {
	slots := make([]rts.PlayerSlot, 0, len(m.sessions))
	for i, s := range m.sessions {
		slots = append(slots, rts.PlayerSlot{
			PlayerID:    s.PlayerID,
			Team:        rts.Team(i),
			Name:        s.Name,
			FactionType: s.FactionType,
		})
	}
	rec, err := l.startGameLocked(m.gameID, slots, m.biome, m.density)
	if err != nil {
		return err
	}
	for _, s := range m.sessions {
		rec.sessions[s.Token] = s
	}
	m.started = true
	delete(l.matches, m.gameID)
	return nil
}

// startGameLocked constructs and launches the game goroutine. Caller
// holds mu.
func (l *Lobby) startGameLocked(gameID string, slots []rts.PlayerSlot, biome, density string) (*gameRecord, error) {
	g, err := rts.NewGame(gameID, slots, rts.GameOptions{
		Seed:    l.now().UnixNano(),
		Balance: l.cfg.Balance,
		Biome:   biome,
		Density: density,
		Logger:  l.logger,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	rec := &gameRecord{
		game:     g,
		created:  l.now(),
		cancel:   cancel,
		sessions: make(map[string]*Session, len(slots)),
	}
	l.games[gameID] = rec
	go g.Run(ctx)
	l.logger.Info("game started", "game", gameID, "players", len(slots))
	return rec, nil
}

// sweep removes finished games, long-abandoned games and matchmaking
// records that never filled.
func (l *Lobby) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, rec := range l.games {
		finished := rec.game.Status() != rts.StatusRunning
		abandoned := rec.connected.Load() == 0 && now.Sub(rec.created) > staleGameAge
		if !finished && !abandoned {
			continue
		}
		rec.cancel()
		rec.game.Stop()
		delete(l.games, id)
		l.logger.Info("game swept", "game", id,
			"status", string(rec.game.Status()), "abandoned", abandoned)
	}

	for id, m := range l.matches {
		if now.Sub(m.created) > staleMatchmakeAge {
			delete(l.matches, id)
			l.logger.Info("matchmaking record swept", "game", id, "slots", len(m.sessions))
		}
	}
}
