// Package mockapi serves a fake Bilibili Live API for demos.
//
// Every room flips between offline and live every 20-60 seconds. Each user
// id N owns room N+1000. A /hook endpoint logs webhook notifications.
package mockapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// roomState tracks live status and next change time for a single room.
type roomState struct {
	live         bool
	nextChangeAt time.Time
}

// API is the fake upstream.
type API struct {
	mu    sync.Mutex
	rooms map[int64]*roomState
}

// New creates an empty [API]; rooms appear on first request.
func New() *API {
	return &API{rooms: make(map[int64]*roomState)}
}

// Handler returns the upstream routes plus the /hook sink.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/room/v1/Room/get_info", a.handleRoomDetail)
	mux.HandleFunc("/room/v1/Room/getRoomInfoOld", a.handleUserRoom)
	mux.HandleFunc("/room/v1/Room/room_init", a.handleRoomInit)
	mux.HandleFunc("/hook", handleHook)
	return mux
}

// ListenAndServe serves the fake upstream on addr.
func (a *API) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// status returns the current state of roomID, flipping it when due.
func (a *API) status(roomID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, exists := a.rooms[roomID]
	if !exists {
		state = &roomState{nextChangeAt: time.Now().Add(nextChange())}
		a.rooms[roomID] = state
	}

	if time.Now().After(state.nextChangeAt) {
		state.live = !state.live
		state.nextChangeAt = time.Now().Add(nextChange())
		slog.Info("room status change", "room_id", roomID, "live", state.live)
	}
	return state.live
}

func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

func liveStatus(live bool) int {
	if live {
		return 1
	}
	return 0
}

func (a *API) handleRoomDetail(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(r.URL.Query().Get("room_id"), 10, 64)
	if err != nil {
		writeEnvelope(w, 1, "invalid room_id", nil)
		return
	}

	// simulate small latency variance
	time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

	writeEnvelope(w, 0, "ok", map[string]any{
		"room_id":     roomID,
		"live_status": liveStatus(a.status(roomID)),
		"title":       "Demo stream " + strconv.FormatInt(roomID, 10),
		"user_cover":  "",
		"online":      rand.Intn(5000),
	})
}

func (a *API) handleUserRoom(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.URL.Query().Get("mid"), 10, 64)
	if err != nil {
		writeEnvelope(w, -400, "invalid mid", nil)
		return
	}

	// every third user's lookup fails, exercising the fallback tier
	if uid%3 == 0 {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	roomID := uid + 1000
	writeEnvelope(w, 0, "ok", map[string]any{
		"roomStatus": 1,
		"liveStatus": liveStatus(a.status(roomID)),
		"title":      "Demo stream " + strconv.FormatInt(roomID, 10),
		"roomid":     roomID,
	})
}

func (a *API) handleRoomInit(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeEnvelope(w, 60004, "room not found", nil)
		return
	}

	roomID := uid + 1000
	writeEnvelope(w, 0, "ok", map[string]any{
		"room_id":     roomID,
		"uid":         uid,
		"live_status": liveStatus(a.status(roomID)),
	})
}

func handleHook(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	slog.Info("webhook received", "body", string(body))
	w.WriteHeader(http.StatusNoContent)
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"code": code, "message": message, "data": data}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
