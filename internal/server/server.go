// Package server exposes the lobby and running games over HTTP and
// WebSocket. Handlers stay thin: resolve, validate, hand off to the
// lobby or the game's input queue.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gorilla/websocket"

	"github.com/Garsondee/Dustline/internal/lobby"
	"github.com/Garsondee/Dustline/internal/rts"
)

// Config wires the server's collaborators.
type Config struct {
	Lobby   *lobby.Lobby
	Balance *rts.Balance
	Logger  *slog.Logger
}

// Server is the HTTP/WebSocket front. It implements http.Handler.
type Server struct {
	lobby    *lobby.Lobby
	balance  *rts.Balance
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New builds the server and its route table.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	balance := cfg.Balance
	if balance == nil {
		balance = rts.DefaultBalance()
	}
	s := &Server{
		lobby:   cfg.Lobby,
		balance: balance,
		logger:  logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32768,
			// The game client is served from anywhere during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/rts/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/rts/factions/{factionType}", s.handleFactionData)
	s.mux.HandleFunc("POST /api/rts/matchmaking", s.handleJoinMatchmaking)
	s.mux.HandleFunc("POST /api/rts/matchmaking/{gameId}/leave", s.handleLeaveMatchmaking)
	s.mux.HandleFunc("GET /api/rts/matchmaking/{gameId}/ready", s.handleIsReady)
	s.mux.HandleFunc("GET /rts/{gameId}", s.handleWebSocket)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lobbyErrorStatus maps lobby sentinels onto HTTP statuses.
func lobbyErrorStatus(err error) int {
	switch {
	case errors.Is(err, lobby.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrGameFull):
		return http.StatusConflict
	case errors.Is(err, lobby.ErrLobbyFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, lobby.ErrBadToken):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

type createGameRequest struct {
	Biome   string `json:"biome"`
	Density string `json:"density"`
	Players []struct {
		Name    string `json:"name"`
		Faction string `json:"faction"`
	} `json:"players"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	slots := make([]rts.PlayerSlot, 0, len(req.Players))
	for i, p := range req.Players {
		faction := p.Faction
		if faction == "" {
			faction = "DUNE_COALITION"
		}
		slots = append(slots, rts.PlayerSlot{
			PlayerID:    i,
			Team:        rts.Team(i),
			Name:        p.Name,
			FactionType: faction,
		})
	}
	gameID, err := s.lobby.CreateGame(slots, req.Biome, req.Density)
	if err != nil {
		writeError(w, lobbyErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"gameId": gameID})
}

type unitData struct {
	Type      string `json:"type"`
	Cost      int    `json:"cost"`
	Upkeep    int    `json:"upkeep"`
	BuildTime int    `json:"buildTicks"`
	Weapon    string `json:"weapon,omitempty"`
}

type buildingData struct {
	Type           string   `json:"type"`
	Cost           int      `json:"cost"`
	BuildTime      int      `json:"buildTicks"`
	PowerGenerated int      `json:"powerGenerated,omitempty"`
	PowerConsumed  int      `json:"powerConsumed,omitempty"`
	UpkeepProvided int      `json:"upkeepProvided,omitempty"`
	Produces       []string `json:"produces,omitempty"`
}

type researchData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Cost     int      `json:"cost"`
	Duration int      `json:"durationTicks"`
	Prereqs  []string `json:"prereqs,omitempty"`
}

type factionDataResponse struct {
	Type            string         `json:"type"`
	StartingCredits int            `json:"startingCredits"`
	MaxUpkeepBase   int            `json:"maxUpkeepBase"`
	Units           []unitData     `json:"units"`
	Buildings       []buildingData `json:"buildings"`
	Research        []researchData `json:"research"`
}

// handleFactionData serves the static rule set for one faction type:
// what it can build, train and research, with costs.
func (s *Server) handleFactionData(w http.ResponseWriter, r *http.Request) {
	fd := s.balance.Factions[r.PathValue("factionType")]
	if fd == nil {
		writeError(w, http.StatusNotFound, "unknown faction type")
		return
	}
	resp := factionDataResponse{
		Type:            fd.Type,
		StartingCredits: fd.StartingCredits,
		MaxUpkeepBase:   fd.MaxUpkeepBase,
	}

	units := append([]string(nil), fd.Units...)
	sort.Strings(units)
	for _, ut := range units {
		ud := s.balance.Units[ut]
		resp.Units = append(resp.Units, unitData{
			Type:      ud.Type,
			Cost:      ud.CostCredits,
			Upkeep:    ud.Upkeep,
			BuildTime: ud.BuildTicks,
			Weapon:    ud.Weapon,
		})
	}

	buildings := append([]string(nil), fd.Buildings...)
	sort.Strings(buildings)
	for _, bt := range buildings {
		bd := s.balance.Buildings[bt]
		resp.Buildings = append(resp.Buildings, buildingData{
			Type:           bd.Type,
			Cost:           bd.CostCredits,
			BuildTime:      bd.BuildTicks,
			PowerGenerated: bd.PowerGenerated,
			PowerConsumed:  bd.PowerConsumed,
			UpkeepProvided: bd.UpkeepProvided,
			Produces:       bd.Produces,
		})
	}

	research := append([]string(nil), fd.Research...)
	sort.Strings(research)
	for _, rid := range research {
		rd := s.balance.Research[rid]
		resp.Research = append(resp.Research, researchData{
			ID:       rd.ID,
			Name:     rd.Name,
			Cost:     rd.CostCredits,
			Duration: rd.DurationTicks,
			Prereqs:  rd.Prereqs,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type joinMatchmakingRequest struct {
	GameID string `json:"gameId"`
	lobby.JoinRequest
}

func (s *Server) handleJoinMatchmaking(w http.ResponseWriter, r *http.Request) {
	var req joinMatchmakingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	res, err := s.lobby.JoinMatchmaking(req.GameID, req.JoinRequest)
	if err != nil {
		writeError(w, lobbyErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLeaveMatchmaking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.lobby.LeaveMatchmaking(r.PathValue("gameId"), req.SessionToken); err != nil {
		writeError(w, lobbyErrorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIsReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"ready": s.lobby.IsGameReady(r.PathValue("gameId")),
	})
}

// handleWebSocket authenticates the session token, upgrades and runs
// the connection pumps until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	token := r.URL.Query().Get("sessionToken")

	sess, err := s.lobby.ResolveSession(gameID, token)
	if err != nil {
		writeError(w, lobbyErrorStatus(err), err.Error())
		return
	}
	game, err := s.lobby.Game(gameID)
	if err != nil {
		writeError(w, lobbyErrorStatus(err), err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "game", gameID, "err", err)
		return
	}

	ws := newWSSession(conn, game, sess, s.logger)
	game.AttachSink(sess.PlayerID, ws)
	s.lobby.MarkConnected(gameID)
	s.logger.Info("session connected", "game", gameID, "player", sess.PlayerID)

	ws.Deliver(rts.PlayerIDMessage(sess.PlayerID))
	go ws.writePump()
	ws.readPump()

	game.DetachSink(sess.PlayerID)
	s.lobby.MarkDisconnected(gameID)
	ws.close()
	s.logger.Info("session disconnected", "game", gameID, "player", sess.PlayerID)
}
