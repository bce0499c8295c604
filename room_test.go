package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomManagerGetOrCreate(t *testing.T) {
	rm := newRoomManager(10 * time.Minute)

	room, created := rm.getOrCreate("attic", "first-token")
	require.True(t, created)
	assert.Equal(t, "attic", room.id)
	assert.Equal(t, Pregame, room.phase)
	assert.Equal(t, "first-token", room.presenter.Token)

	// A second caller gets the same room; its candidate token is unused.
	again, created := rm.getOrCreate("attic", "second-token")
	assert.False(t, created)
	assert.Same(t, room, again)
	assert.Equal(t, "first-token", again.presenter.Token)
}

func TestRoomManagerLookup(t *testing.T) {
	rm := newRoomManager(10 * time.Minute)

	_, ok := rm.lookup("attic")
	assert.False(t, ok)

	room, _ := rm.getOrCreate("attic", "token")
	found, ok := rm.lookup("attic")
	require.True(t, ok)
	assert.Same(t, room, found)

	rm.remove("attic")
	_, ok = rm.lookup("attic")
	assert.False(t, ok)
}

func TestRoomManagerRoomIDs(t *testing.T) {
	rm := newRoomManager(10 * time.Minute)
	assert.Empty(t, rm.roomIDs())

	rm.getOrCreate("attic", "a")
	rm.getOrCreate("cellar", "b")

	assert.ElementsMatch(t, []string{"attic", "cellar"}, rm.roomIDs())
}

func TestSweepEvictsOnlyIdleRooms(t *testing.T) {
	cfg := testConfig(t)
	rm := newRoomManager(10 * time.Minute)

	stale, _ := rm.getOrCreate("stale", "a")
	stale.mu.Lock()
	stale.lastAccess = time.Now().Add(-11 * time.Minute)
	stale.mu.Unlock()

	fresh, _ := rm.getOrCreate("fresh", "b")
	fresh.touch()

	rm.sweep(cfg, newRouter())

	_, ok := rm.lookup("stale")
	assert.False(t, ok)
	_, ok = rm.lookup("fresh")
	assert.True(t, ok)
}

func TestSweepClosesReapedConnections(t *testing.T) {
	cfg := testConfig(t)
	rm := newRoomManager(10 * time.Minute)
	rt := newRouter()

	stale, _ := rm.getOrCreate("stale", "presenter-a")
	stale.mu.Lock()
	stale.players = append(stale.players, &Player{Name: "ann", Token: "token-ann"})
	stale.lastAccess = time.Now().Add(-11 * time.Minute)
	stale.mu.Unlock()

	fresh, _ := rm.getOrCreate("fresh", "presenter-b")
	fresh.touch()

	presenter := testClient(rt, "presenter-a")
	player := testClient(rt, "token-ann")
	survivor := testClient(rt, "presenter-b")

	rm.sweep(cfg, rt)

	_, open := <-presenter.send
	assert.False(t, open)
	_, open = <-player.send
	assert.False(t, open)

	rt.deliver(cfg, "presenter-b", "still here")
	require.Len(t, drain(survivor), 1)
}

func TestTouchRefreshesLastAccess(t *testing.T) {
	room := newRoom("attic", "token")
	room.mu.Lock()
	room.lastAccess = time.Now().Add(-time.Hour)
	room.mu.Unlock()

	room.touch()

	room.mu.RLock()
	defer room.mu.RUnlock()
	assert.WithinDuration(t, time.Now(), room.lastAccess, time.Second)
}

func TestGamePhaseJSON(t *testing.T) {
	cases := map[GamePhase]string{
		Pregame:  `"pregame"`,
		Playing:  `"playing"`,
		Postgame: `"postgame"`,
	}

	for phase, want := range cases {
		data, err := phase.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestNextPrompt(t *testing.T) {
	room := newRoom("attic", "token")
	room.prompts = []string{"first", "second"}

	prompt, ok := room.nextPrompt()
	require.True(t, ok)
	assert.Equal(t, "second", prompt)

	prompt, ok = room.nextPrompt()
	require.True(t, ok)
	assert.Equal(t, "first", prompt)

	_, ok = room.nextPrompt()
	assert.False(t, ok)
}
