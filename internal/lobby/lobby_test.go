package lobby

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/Dustline/internal/rts"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLobby(t *testing.T, maxGames int) (*Lobby, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(Config{MaxGames: maxGames, Clock: clock.Now})
	t.Cleanup(l.Shutdown)
	return l, clock
}

func twoSlots() []rts.PlayerSlot {
	return []rts.PlayerSlot{
		{PlayerID: 0, Team: 0, Name: "a", FactionType: "DUNE_COALITION"},
		{PlayerID: 1, Team: 1, Name: "b", FactionType: "SALT_SYNDICATE"},
	}
}

func TestMatchmakingFillsAndStarts(t *testing.T) {
	l, _ := newTestLobby(t, 8)

	first, err := l.JoinMatchmaking("", JoinRequest{Name: "ana", FactionType: "DUNE_COALITION", MaxPlayers: 2})
	require.NoError(t, err)
	require.NotEmpty(t, first.GameID)
	require.NotEmpty(t, first.SessionToken)
	assert.False(t, l.IsGameReady(first.GameID))

	second, err := l.JoinMatchmaking(first.GameID, JoinRequest{Name: "bo", FactionType: "SALT_SYNDICATE"})
	require.NoError(t, err)
	assert.Equal(t, first.GameID, second.GameID)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)
	assert.True(t, l.IsGameReady(first.GameID))

	g, err := l.Game(first.GameID)
	require.NoError(t, err)
	assert.Equal(t, rts.StatusRunning, g.Status())

	// Full: a third player bounces.
	_, err = l.JoinMatchmaking(first.GameID, JoinRequest{Name: "cy"})
	assert.ErrorIs(t, err, ErrGameFull)
}

func TestSessionTokenBindsSlot(t *testing.T) {
	l, _ := newTestLobby(t, 8)

	first, err := l.JoinMatchmaking("", JoinRequest{Name: "ana", FactionType: "DUNE_COALITION", MaxPlayers: 2})
	require.NoError(t, err)
	second, err := l.JoinMatchmaking(first.GameID, JoinRequest{Name: "bo", FactionType: "SALT_SYNDICATE"})
	require.NoError(t, err)

	s, err := l.ResolveSession(first.GameID, second.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, second.PlayerID, s.PlayerID)
	assert.Equal(t, 1, s.Slot)
	assert.Equal(t, "SALT_SYNDICATE", s.FactionType)

	_, err = l.ResolveSession(first.GameID, "not-a-token")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = l.ResolveSession("not-a-game", second.SessionToken)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestLeaveMatchmakingReleasesSlot(t *testing.T) {
	l, _ := newTestLobby(t, 8)

	res, err := l.JoinMatchmaking("", JoinRequest{Name: "ana", MaxPlayers: 2})
	require.NoError(t, err)

	require.ErrorIs(t, l.LeaveMatchmaking(res.GameID, "wrong"), ErrBadToken)
	require.NoError(t, l.LeaveMatchmaking(res.GameID, res.SessionToken))

	// The emptied record is gone.
	_, err = l.JoinMatchmaking(res.GameID, JoinRequest{Name: "bo"})
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorIs(t, l.LeaveMatchmaking(res.GameID, res.SessionToken), ErrGameNotFound)
}

func TestGameCapRejectsCreation(t *testing.T) {
	l, _ := newTestLobby(t, 1)

	_, err := l.CreateGame(twoSlots(), "desert", "")
	require.NoError(t, err)

	_, err = l.CreateGame(twoSlots(), "desert", "")
	assert.ErrorIs(t, err, ErrLobbyFull)
	_, err = l.JoinMatchmaking("", JoinRequest{MaxPlayers: 2})
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestJoinRejectsUnknownFaction(t *testing.T) {
	l, _ := newTestLobby(t, 8)
	_, err := l.JoinMatchmaking("", JoinRequest{FactionType: "MOON_PEOPLE", MaxPlayers: 2})
	assert.Error(t, err)
}

func TestSweepRemovesAbandonedGames(t *testing.T) {
	l, clock := newTestLobby(t, 8)

	abandonedID, err := l.CreateGame(twoSlots(), "desert", "")
	require.NoError(t, err)
	watchedID, err := l.CreateGame(twoSlots(), "desert", "")
	require.NoError(t, err)
	l.MarkConnected(watchedID)

	// Young games survive regardless of connections.
	l.sweep()
	assert.Equal(t, 2, l.GameCount())

	clock.Advance(staleGameAge + time.Minute)
	l.sweep()
	_, err = l.Game(abandonedID)
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = l.Game(watchedID)
	assert.NoError(t, err, "connected game swept")

	// Disconnecting ages it out on the next pass.
	l.MarkDisconnected(watchedID)
	clock.Advance(staleGameAge + time.Minute)
	l.sweep()
	assert.Zero(t, l.GameCount())
}

func TestSweepRemovesStaleMatchmaking(t *testing.T) {
	l, clock := newTestLobby(t, 8)

	res, err := l.JoinMatchmaking("", JoinRequest{Name: "ana", MaxPlayers: 2})
	require.NoError(t, err)

	clock.Advance(staleMatchmakeAge - time.Minute)
	l.sweep()
	_, err = l.JoinMatchmaking(res.GameID, JoinRequest{Name: "late"})
	require.NoError(t, err, "record swept too early")

	// A fresh solo record left to rot disappears.
	res2, err := l.JoinMatchmaking("", JoinRequest{Name: "solo", MaxPlayers: 3})
	require.NoError(t, err)
	clock.Advance(staleMatchmakeAge + time.Minute)
	l.sweep()
	_, err = l.JoinMatchmaking(res2.GameID, JoinRequest{Name: "bo"})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestSweepRemovesFinishedGames(t *testing.T) {
	l, _ := newTestLobby(t, 8)

	id, err := l.CreateGame(twoSlots(), "desert", "")
	require.NoError(t, err)
	g, err := l.Game(id)
	require.NoError(t, err)

	g.Stop()
	// Stopped but still RUNNING status: not sweepable yet.
	l.sweep()
	assert.Equal(t, 1, l.GameCount())
}
