// Drawphone
//
// A presenter opens a room and puts the dashboard on a shared screen.
// Players join from their phones, each receives a secret prompt, and the
// room then alternates: draw the prompt you were handed, caption the
// image you were handed, passing work around the ring every round. At
// the end the presenter reveals each prompt→image→caption chain.
//
// Features:
// - One room per /path/:roomid, created on first visit
// - Room creator becomes the presenter (dashboard view, does not play)
// - Players identified by opaque token cookie; reconnects tolerated
// - Ring order and prompt deal are shuffled at game start
// - Built-in simple/advanced wordlists, or a custom comma-separated list
// - Rounds advance only when every player has submitted
// - Optional history dump to disk when the room opts in
// - Rooms auto-reaped after a configurable idle timeout
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients. Numeric settings arrive as strings,
// straight from form fields; parse failures fall back to defaults.
type ClientMessage struct {
	RoomID              string `json:"room_id"`
	Token               string `json:"token"`
	Command             string `json:"command,omitempty"`
	Prompt              string `json:"prompt,omitempty"`
	Image               string `json:"image,omitempty"`
	Timeout             string `json:"timeout,omitempty"`
	RoundCount          string `json:"round_count,omitempty"`
	WordlistChosen      string `json:"wordlist_chosen,omitempty"`
	CustomWords         string `json:"custom_words,omitempty"`
	AllowHistoryLogging *bool  `json:"allow_history_logging,omitempty"`
}

// TaskMessage hands a player their next piece of work: a prompt or
// caption to draw, or an image to caption. The timeout is advisory,
// used by clients for their own countdown.
type TaskMessage struct {
	Prompt  string `json:"prompt,omitempty"`
	Image   string `json:"image,omitempty"`
	Timeout int    `json:"timeout"`
}

// DashboardMessage is the presenter's snapshot, pushed after every
// state-affecting event.
type DashboardMessage struct {
	GameState      GamePhase `json:"game_state"`
	ReadyPlayers   []string  `json:"ready_players"`
	WaitingPlayers []string  `json:"waiting_players"`
	RoundCount     int       `json:"round_count"`
	MaxRounds      int       `json:"max_rounds"`
	Timeout        int       `json:"timeout"`
}

// RevealMessage carries the finished chains to the presenter.
type RevealMessage struct {
	GameState GamePhase        `json:"game_state"`
	Histories [][]HistoryEntry `json:"histories"`
}

// ReloadMessage tells players to reload the page when the room ends.
type ReloadMessage struct {
	GameState GamePhase `json:"game_state"`
	Command   string    `json:"command"`
}

type Client struct {
	conn  *websocket.Conn
	send  chan any
	token string
}

// Router keeps the set of live connections, each tagged with its owning
// token, and delivers messages to every connection carrying a given tag.
// A token may have zero, one, or (briefly, across a reconnect) several
// live connections.
type Router struct {
	mu      sync.Mutex
	clients map[*Client]bool
}

func newRouter() *Router {
	return &Router{
		clients: make(map[*Client]bool),
	}
}

func (rt *Router) register(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.clients[c] = true
}

func (rt *Router) unregister(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.clients[c]; ok {
		delete(rt.clients, c)
		close(c.send)
	}
}

// closeToken drops every connection tagged with token, closing their
// send channels so the write pumps shut the sockets down.
func (rt *Router) closeToken(token string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for client := range rt.clients {
		if client.token == token {
			delete(rt.clients, client)
			close(client.send)
		}
	}
}

// deliver sends msg to every connection tagged with token. No matching
// connection is the normal "player not yet connected" case, not an
// error. A connection with a full send buffer is dropped rather than
// blocking delivery to anyone else.
func (rt *Router) deliver(cfg *Config, token string, msg any) {
	if token == "" {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for client := range rt.clients {
		if client.token != token {
			continue
		}

		select {
		case client.send <- msg:
		default:
			logf(cfg, "GAMES: Dropped unresponsive connection for token %s", token)
			delete(rt.clients, client)
			close(client.send)
		}
	}
}

func (c *Client) readPump(cfg *Config, rm *RoomManager, rt *Router) {
	defer func() {
		rt.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		rm.handleMessage(cfg, rt, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	tokenCookieName = "token"
	nameCookieName  = "name"
)

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

// The token cookie is deliberately readable from script: every client
// message carries the token alongside its room_id.
func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// serveRoomPage is the join decision for GET /path/:roomid. An unknown
// room is created with the requester as presenter; known cookies route
// back to their view; an in-progress room silently refuses new joins.
func serveRoomPage(cfg *Config, rm *RoomManager, rt *Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		token := cookieValue(r, tokenCookieName)
		newToken := uuid.NewString()

		room, created := rm.getOrCreate(roomID, newToken)
		if created {
			setTokenCookie(w, newToken)
			serveView(cfg, w, dashboardHTML)
			logf(cfg, "GAMES: Created room %s for %s", roomID, realIP(r))
			return
		}

		room.touch()

		room.mu.Lock()
		defer room.mu.Unlock()

		if token == room.presenter.Token {
			serveView(cfg, w, dashboardHTML)
			return
		}

		if player, _ := room.playerByTokenLocked(token); player != nil {
			serveView(cfg, w, gameHTML)
			room.pushDashboardLocked(cfg, rt)
			return
		}

		if room.phase != Pregame {
			return
		}

		name := cookieValue(r, nameCookieName)
		if name == "" {
			serveView(cfg, w, playerSetupHTML)
			return
		}

		room.players = append(room.players, &Player{
			Name:  sanitizeName(name),
			Token: newToken,
		})
		setTokenCookie(w, newToken)
		serveView(cfg, w, gameHTML)
		room.pushDashboardLocked(cfg, rt)

		logf(cfg, "GAMES: Player %q joined room %s", sanitizeName(name), roomID)
	}
}

// Websocket handler. The connection is tagged with the token cookie it
// arrived with; every message it sends names its own room and token.
func serveWS(cfg *Config, rm *RoomManager, rt *Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := cookieValue(r, tokenCookieName)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:  conn,
			send:  make(chan any, 8),
			token: token,
		}

		rt.register(client)

		go client.writePump()
		client.readPump(cfg, rm, rt)
	}
}

// serveRoomList backs the intro page: the IDs of rooms that currently exist.
func serveRoomList(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(rm.roomIDs()); err != nil {
			logf(cfg, "SERVE: Failed to encode room list: %v", err)
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using
// go-qrcode. Fetching the code counts as room activity, so a dashboard
// left on the QR view keeps its room alive.
func qrHandler(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, ok := rm.lookup(ps.ByName("roomid"))
		if !ok {
			http.Error(w, "no such room", http.StatusNotFound)
			return
		}

		room.touch()

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// ---- Static file paths ----

//go:embed drawphone/index.html
var indexHTML []byte

//go:embed drawphone/dashboard.html
var dashboardHTML []byte

//go:embed drawphone/game.html
var gameHTML []byte

//go:embed drawphone/player_setup.html
var playerSetupHTML []byte

//go:embed drawphone/app.css
var drawphoneCSS []byte

//go:embed drawphone/app.js
var drawphoneJS []byte

// serveView writes an embedded page, rewriting its asset URLs so pages
// served behind a non-empty --prefix still find their stylesheet and
// script.
func serveView(cfg *Config, w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)

	if cfg.prefix != "" {
		page = bytes.ReplaceAll(page, []byte(`"/assets/drawphone/`), []byte(`"`+cfg.prefix+`/assets/drawphone/`))
	}

	_, _ = w.Write(page)
}

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		serveView(cfg, w, indexHTML)
	}
}

func getAssetHandler(cfg *Config, contentType string, data []byte) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// registerDrawphoneGame sets up routes so that:
//   - $path                  → intro page with room picker
//   - $path/:roomid          → presenter dashboard, player view, or join flow
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerDrawphoneGame(cfg *Config, path string, mux *httprouter.Router) {
	rm := newRoomManager(cfg.sessionTimeout)
	rt := newRouter()

	go rm.reaperLoop(cfg, rt)

	// Intro page and the room list that backs it
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+".json", serveRoomList(cfg, rm))

	// Per-room views and join flow
	mux.GET(cfg.prefix+path+"/:roomid", serveRoomPage(cfg, rm, rt))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/drawphone/app.css", getAssetHandler(cfg, "text/css; charset=utf-8", drawphoneCSS))
	mux.GET(cfg.prefix+"/assets/drawphone/app.js", getAssetHandler(cfg, "application/javascript; charset=utf-8", drawphoneJS))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWS(cfg, rm, rt))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler(cfg, rm))
}
