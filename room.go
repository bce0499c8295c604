package main

import (
	"encoding/json"
	"sync"
	"time"
)

// GamePhase is the closed set of room states. A room only ever moves
// forward: Pregame → Playing → Postgame → destroyed.
type GamePhase int

const (
	Pregame GamePhase = iota
	Playing
	Postgame
)

func (p GamePhase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Postgame:
		return "postgame"
	default:
		return "pregame"
	}
}

func (p GamePhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Player holds the data we store server-side. Artifact is whatever is
// currently in the player's hands: the prompt or caption they must draw,
// or the image they must caption, and, between submitting and the round
// barrier, the work they just produced.
type Player struct {
	Name     string
	Token    string
	Artifact string
	Ready    bool
}

type Presenter struct {
	Token string
}

// HistoryEntry is one link in a chain: who authored the artifact.
type HistoryEntry struct {
	Author   string `json:"author"`
	Artifact string `json:"artifact"`
}

type Room struct {
	id string

	mu sync.RWMutex

	phase     GamePhase
	players   []*Player
	presenter Presenter

	roundCount  int
	maxRounds   int
	drawingTask bool
	timeout     int

	prompts   []string
	histories [][]HistoryEntry

	lastAccess        time.Time
	allowHistoryDumps bool
}

func newRoom(roomID, presenterToken string) *Room {
	return &Room{
		id:          roomID,
		phase:       Pregame,
		presenter:   Presenter{Token: presenterToken},
		roundCount:  1,
		drawingTask: true,
		lastAccess:  time.Now(),
	}
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastAccess = time.Now()
	r.mu.Unlock()
}

// nextPrompt pops the last prompt from the pool. The pool is only ever
// selected when it holds at least one prompt per player, so ok is false
// only if that invariant has been broken.
func (r *Room) nextPrompt() (string, bool) {
	if len(r.prompts) == 0 {
		return "", false
	}
	prompt := r.prompts[len(r.prompts)-1]
	r.prompts = r.prompts[:len(r.prompts)-1]
	return prompt, true
}

// defaultMaxRoundsLocked is the round cap implied by the current player
// count: the largest even number no greater than the number of players.
func (r *Room) defaultMaxRoundsLocked() int {
	return (len(r.players) / 2) * 2
}

func (r *Room) playerByTokenLocked(token string) (*Player, int) {
	for i, p := range r.players {
		if p.Token == token {
			return p, i
		}
	}
	return nil, -1
}

// RoomManager holds all live rooms, so each $path/$roomid is its own
// isolated session.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRoomManager(idleTimeout time.Duration) *RoomManager {
	return &RoomManager{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
}

// getOrCreate returns the room with the given ID, creating it with the
// supplied presenter token if absent. The second return value reports
// whether a new room was created, in which case the caller owns the
// presenter identity it passed in.
func (rm *RoomManager) getOrCreate(roomID, presenterToken string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[roomID]; ok {
		return room, false
	}

	room := newRoom(roomID, presenterToken)
	rm.rooms[roomID] = room
	return room, true
}

func (rm *RoomManager) lookup(roomID string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	return room, ok
}

func (rm *RoomManager) remove(roomID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.rooms, roomID)
}

func (rm *RoomManager) roomIDs() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	ids := make([]string, 0, len(rm.rooms))
	for id := range rm.rooms {
		ids = append(ids, id)
	}
	return ids
}

// sweep removes every room whose lastAccess predates now minus the idle
// window and closes the connections of everyone still in it. Handlers
// holding a reference to a swept room finish their current event against
// it; any later message naming the room is dropped.
func (rm *RoomManager) sweep(cfg *Config, rt *Router) {
	cutoff := time.Now().Add(-rm.idleTimeout)

	// Snapshot first: room locks are never taken while holding the
	// registry lock, since the postgame handler locks the other way
	// around.
	rm.mu.Lock()
	rooms := make(map[string]*Room, len(rm.rooms))
	for id, room := range rm.rooms {
		rooms[id] = room
	}
	rm.mu.Unlock()

	for id, room := range rooms {
		room.mu.RLock()
		last := room.lastAccess
		tokens := make([]string, 0, len(room.players)+1)
		tokens = append(tokens, room.presenter.Token)
		for _, player := range room.players {
			tokens = append(tokens, player.Token)
		}
		room.mu.RUnlock()

		if last.Before(cutoff) {
			rm.remove(id)
			for _, token := range tokens {
				rt.closeToken(token)
			}
			logf(cfg, "GAMES: Reaped idle room %s", id)
		}
	}
}

// reaperLoop periodically sweeps rooms that have been idle longer than
// the configured session timeout.
func (rm *RoomManager) reaperLoop(cfg *Config, rt *Router) {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		rm.sweep(cfg, rt)
	}
}
