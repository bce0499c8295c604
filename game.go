package main

import (
	"math/rand"
	"strconv"
	"time"
)

// handleMessage is the single entry point for inbound websocket traffic.
// Messages naming an unknown room are dropped, as are messages whose
// token matches neither the presenter nor a current player. Commands
// that are invalid for the room's phase are ignored without a reply, so
// clients racing a page reload never see an error.
func (rm *RoomManager) handleMessage(cfg *Config, rt *Router, msg ClientMessage) {
	room, ok := rm.lookup(msg.RoomID)
	if !ok {
		logf(cfg, "GAMES: Dropped message for unknown room %q", msg.RoomID)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	room.lastAccess = time.Now()

	if msg.Token == room.presenter.Token {
		switch room.phase {
		case Pregame:
			room.handlePresenterPregameLocked(cfg, rt, msg)
		case Playing:
			// The presenter is a passive observer once the round loop starts.
		case Postgame:
			room.handlePresenterPostgameLocked(cfg, rt, rm, msg)
		}
		return
	}

	player, pos := room.playerByTokenLocked(msg.Token)
	if player == nil {
		logf(cfg, "GAMES: Dropped message with unknown token for room %s", room.id)
		return
	}

	switch room.phase {
	case Pregame:
		if msg.Command == "leave_game" {
			room.players = append(room.players[:pos], room.players[pos+1:]...)
			logf(cfg, "GAMES: Player %q left room %s", player.Name, room.id)
			room.pushDashboardLocked(cfg, rt)
		}
	case Playing:
		room.handleSubmissionLocked(cfg, rt, player, msg)
	case Postgame:
		// Nothing left for players to do; the presenter ends the room.
	}
}

func (r *Room) handlePresenterPregameLocked(cfg *Config, rt *Router, msg ClientMessage) {
	switch msg.Command {
	case "reconnect_check":
		r.pushDashboardLocked(cfg, rt)

	case "start_game":
		r.startGameLocked(cfg, rt, msg)
	}
}

// startGameLocked fixes the ring order, game settings, and prompt pool,
// deals one prompt per player, and moves the room to Playing.
func (r *Room) startGameLocked(cfg *Config, rt *Router, msg ClientMessage) {
	rand.Shuffle(len(r.players), func(i, j int) {
		r.players[i], r.players[j] = r.players[j], r.players[i]
	})

	if msg.Timeout != "" {
		if t, err := strconv.Atoi(msg.Timeout); err == nil && t >= 0 {
			r.timeout = t
		}
	}

	r.maxRounds = r.defaultMaxRoundsLocked()
	if msg.RoundCount != "" {
		if rounds, err := strconv.Atoi(msg.RoundCount); err == nil &&
			rounds >= 2 && rounds <= r.defaultMaxRoundsLocked() {
			r.maxRounds = (rounds / 2) * 2
		}
	}

	r.prompts = lookupWordlist(msg.WordlistChosen)
	if msg.WordlistChosen == "custom" {
		words := parseCustomWords(msg.CustomWords)
		if len(words) >= len(r.players) {
			r.prompts = words
		}
	}

	// Absent field keeps the room's previous setting.
	if msg.AllowHistoryLogging != nil {
		r.allowHistoryDumps = *msg.AllowHistoryLogging
	}

	rand.Shuffle(len(r.prompts), func(i, j int) {
		r.prompts[i], r.prompts[j] = r.prompts[j], r.prompts[i]
	})

	r.histories = make([][]HistoryEntry, 0, len(r.players))
	for _, player := range r.players {
		prompt, ok := r.nextPrompt()
		if !ok {
			logf(cfg, "GAMES: Prompt pool exhausted in room %s", r.id)
		}
		player.Artifact = prompt
		r.histories = append(r.histories, []HistoryEntry{{Author: "Computer", Artifact: prompt}})

		rt.deliver(cfg, player.Token, TaskMessage{Prompt: prompt, Timeout: r.timeout})
	}

	r.phase = Playing
	r.pushDashboardLocked(cfg, rt)

	logf(cfg, "GAMES: Started game in room %s with %d players, %d rounds, timeout %d",
		r.id, len(r.players), r.maxRounds, r.timeout)
}

// handleSubmissionLocked processes player traffic during the round loop:
// reconnect checks, and the drawing or caption submissions that drive
// the readiness barrier.
func (r *Room) handleSubmissionLocked(cfg *Config, rt *Router, player *Player, msg ClientMessage) {
	if msg.Command != "" {
		// A ready player gets nothing back, so the next artifact never
		// leaks before the barrier trips.
		if msg.Command == "reconnect_check" && !player.Ready {
			task := TaskMessage{Timeout: r.timeout}
			if r.drawingTask {
				task.Prompt = player.Artifact
			} else {
				task.Image = player.Artifact
			}
			rt.deliver(cfg, player.Token, task)
			r.pushDashboardLocked(cfg, rt)
		}
		return
	}

	// A submission has to carry the field the current task asks for;
	// anything else is malformed traffic and changes nothing.
	submission := msg.Image
	if !r.drawingTask {
		submission = msg.Prompt
	}
	if submission == "" {
		return
	}

	player.Artifact = submission
	player.Ready = true

	r.pushDashboardLocked(cfg, rt)

	for _, p := range r.players {
		if !p.Ready {
			return
		}
	}

	r.finishRoundLocked(cfg, rt)
}

// finishRoundLocked runs once per tripped barrier: every player has
// submitted. Artifacts are appended to their chains, then either the
// game ends or everything rotates one ring position.
func (r *Room) finishRoundLocked(cfg *Config, rt *Router) {
	count := len(r.players)

	for i, player := range r.players {
		r.histories[i] = append(r.histories[i], HistoryEntry{Author: player.Name, Artifact: player.Artifact})
	}

	if r.roundCount >= r.maxRounds {
		r.phase = Postgame
		rt.deliver(cfg, r.presenter.Token, RevealMessage{GameState: r.phase, Histories: r.histories})

		if r.allowHistoryDumps {
			if err := dumpHistories(cfg, r.histories); err != nil {
				logf(cfg, "GAMES: Failed to dump histories for room %s: %v", r.id, err)
			}
		}

		logf(cfg, "GAMES: Room %s finished after %d rounds", r.id, r.roundCount)
		return
	}

	// Hand each artifact to the next player in the ring; the first
	// player receives from the last.
	handed := make([]string, count)
	for i, player := range r.players {
		handed[i] = player.Artifact
	}
	for i := range r.players {
		receiver := r.players[(i+1)%count]
		receiver.Artifact = handed[i]

		task := TaskMessage{Timeout: r.timeout}
		if r.drawingTask {
			task.Image = handed[i]
		} else {
			task.Prompt = handed[i]
		}
		rt.deliver(cfg, receiver.Token, task)
	}

	for _, player := range r.players {
		player.Ready = false
	}
	r.drawingTask = !r.drawingTask
	r.roundCount++

	r.pushDashboardLocked(cfg, rt)

	// Shift chains one position right so histories keep tracking the
	// player currently holding each chain's artifact.
	shifted := make([][]HistoryEntry, 0, count)
	shifted = append(shifted, r.histories[count-1])
	shifted = append(shifted, r.histories[:count-1]...)
	r.histories = shifted
}

func (r *Room) handlePresenterPostgameLocked(cfg *Config, rt *Router, rm *RoomManager, msg ClientMessage) {
	if msg.Command != "start_new_game" {
		return
	}

	for _, player := range r.players {
		rt.deliver(cfg, player.Token, ReloadMessage{GameState: r.phase, Command: "reload"})
	}

	rm.remove(r.id)
	logf(cfg, "GAMES: Room %s ended for a new game", r.id)
}

// dashboardLocked projects the room into the presenter's snapshot. The
// max_rounds field is informational, recomputed from the current player
// count; the cap fixed at game start is what the engine enforces.
func (r *Room) dashboardLocked() DashboardMessage {
	ready := make([]string, 0, len(r.players))
	waiting := make([]string, 0, len(r.players))
	for _, p := range r.players {
		if p.Ready {
			ready = append(ready, p.Name)
		} else {
			waiting = append(waiting, p.Name)
		}
	}

	return DashboardMessage{
		GameState:      r.phase,
		ReadyPlayers:   ready,
		WaitingPlayers: waiting,
		RoundCount:     r.roundCount,
		MaxRounds:      r.defaultMaxRoundsLocked(),
		Timeout:        r.timeout,
	}
}

func (r *Room) pushDashboardLocked(cfg *Config, rt *Router) {
	rt.deliver(cfg, r.presenter.Token, r.dashboardLocked())
}
