package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeCountsAsRoomActivity(t *testing.T) {
	cfg := testConfig(t)
	rm := newRoomManager(10 * time.Minute)

	room, _ := rm.getOrCreate("attic", "presenter-token")
	stale := time.Now().Add(-time.Hour)
	room.mu.Lock()
	room.lastAccess = stale
	room.mu.Unlock()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://game.local/drawphone/attic/qr", nil)
	qrHandler(cfg, rm)(rec, req, httprouter.Params{{Key: "roomid", Value: "attic"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	room.mu.RLock()
	defer room.mu.RUnlock()
	assert.True(t, room.lastAccess.After(stale))
}

func TestQRCodeUnknownRoom(t *testing.T) {
	cfg := testConfig(t)
	rm := newRoomManager(10 * time.Minute)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://game.local/drawphone/cellar/qr", nil)
	qrHandler(cfg, rm)(rec, req, httprouter.Params{{Key: "roomid", Value: "cellar"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeViewRewritesAssetURLsForPrefix(t *testing.T) {
	cfg := testConfig(t)
	cfg.prefix = "/games"

	rec := httptest.NewRecorder()
	serveView(cfg, rec, dashboardHTML)

	body := rec.Body.String()
	assert.Contains(t, body, `"/games/assets/drawphone/app.css"`)
	assert.Contains(t, body, `"/games/assets/drawphone/app.js"`)
	assert.NotContains(t, body, `"/assets/drawphone/`)
}

func TestServeViewWithoutPrefix(t *testing.T) {
	cfg := testConfig(t)

	rec := httptest.NewRecorder()
	serveView(cfg, rec, gameHTML)

	assert.Contains(t, rec.Body.String(), `"/assets/drawphone/app.css"`)
}
