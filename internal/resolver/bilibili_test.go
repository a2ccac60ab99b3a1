package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

// upstream is a fake live API that serves canned bodies per path and
// counts hits.
type upstream struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	server *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits[r.URL.Path]++
		h, ok := u.routes[r.URL.Path]
		u.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) handle(path string, h http.HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = h
}

func (u *upstream) json(path, body string) {
	u.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func (u *upstream) status(path string, code int) {
	u.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *upstream) resolver(timeout time.Duration) *Resolver {
	api := NewAPI(fetch.NewClient(""), APIConfig{BaseURL: u.server.URL, Timeout: timeout})
	return New(DefaultTiers(api, testLogger()), testLogger(), nil)
}

func TestResolve_RoomDetail(t *testing.T) {
	u := newUpstream(t)
	u.json(pathRoomDetail, `{"code":0,"msg":"ok","data":{"room_id":889,"live_status":1,"title":"Test Stream","user_cover":"https://i0.example/cover.jpg","online":321}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "889", Kind: live.KindRoom})
	require.NoError(t, err)

	assert.True(t, info.IsLive)
	assert.Equal(t, "Test Stream", info.Title)
	assert.Equal(t, "https://live.bilibili.com/889", info.RoomURL)
	assert.Equal(t, "889", info.RoomID)
	assert.Equal(t, "https://i0.example/cover.jpg", info.CoverURL)
	assert.Equal(t, 321, info.Online)
	assert.Equal(t, 0, u.count(pathUserRoom), "room entities never use user tiers")
}

func TestResolve_RoomDetailDefaults(t *testing.T) {
	u := newUpstream(t)
	u.json(pathRoomDetail, `{"code":0,"data":{"live_status":2,"keyframe":"https://i0.example/key.jpg"}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "889", Kind: live.KindRoom})
	require.NoError(t, err)

	assert.False(t, info.IsLive, "only live_status 1 counts as live")
	assert.Equal(t, DefaultTitle, info.Title)
	assert.Equal(t, "https://i0.example/key.jpg", info.CoverURL)
	assert.Equal(t, "889", info.RoomID)
}

func TestResolve_RoomDetailUpstreamError(t *testing.T) {
	u := newUpstream(t)
	u.json(pathRoomDetail, `{"code":60004,"message":"room does not exist","data":{}}`)

	_, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "1", Kind: live.KindRoom})
	require.Error(t, err)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 60004, upErr.Code)
	assert.Equal(t, 0, u.count(pathRoomInit), "legacy tier only serves user entities")
}

func TestResolve_UserPrefersRoomDetail(t *testing.T) {
	u := newUpstream(t)
	u.json(pathUserRoom, `{"code":0,"data":{"roomStatus":1,"liveStatus":0,"title":"stale","roomid":5050,"url":"https://live.bilibili.com/5050"}}`)
	u.json(pathRoomDetail, `{"code":0,"data":{"room_id":5050,"live_status":1,"title":"fresh"}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err)

	assert.True(t, info.IsLive)
	assert.Equal(t, "fresh", info.Title)
	assert.Equal(t, "5050", info.RoomID)
	assert.Equal(t, 1, u.count(pathRoomDetail))
}

func TestResolve_UserDetailFailsUsesLookupStatus(t *testing.T) {
	u := newUpstream(t)
	u.json(pathUserRoom, `{"code":0,"data":{"liveStatus":1,"title":"from lookup","cover":"c.jpg","roomid":5050,"url":"https://live.bilibili.com/5050","online":9}}`)
	u.status(pathRoomDetail, http.StatusBadGateway)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err)

	assert.True(t, info.IsLive)
	assert.Equal(t, "from lookup", info.Title)
	assert.Equal(t, "c.jpg", info.CoverURL)
	assert.Equal(t, "https://live.bilibili.com/5050", info.RoomURL)
	assert.Equal(t, 9, info.Online)
	assert.Equal(t, 0, u.count(pathRoomInit), "lookup status is a success, no legacy fallback")
}

func TestResolve_UserWithoutRoomSkipsDetail(t *testing.T) {
	u := newUpstream(t)
	u.json(pathUserRoom, `{"code":0,"data":{"roomStatus":0,"liveStatus":0,"roomid":0}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err)

	assert.False(t, info.IsLive)
	assert.Equal(t, DefaultTitle, info.Title)
	assert.Equal(t, 0, u.count(pathRoomDetail))
}

func TestResolve_UserFallsBackToRoomInit(t *testing.T) {
	u := newUpstream(t)
	u.status(pathUserRoom, http.StatusInternalServerError)
	u.json(pathRoomInit, `{"code":0,"data":{"room_id":5050,"uid":12345,"live_status":0}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err)

	assert.False(t, info.IsLive)
	assert.Equal(t, "5050", info.RoomID)
	assert.Equal(t, "https://live.bilibili.com/5050", info.RoomURL)
	assert.Equal(t, 1, u.count(pathUserRoom))
	assert.Equal(t, 1, u.count(pathRoomInit))
}

func TestResolve_UserMalformedLookupFallsBack(t *testing.T) {
	u := newUpstream(t)
	u.json(pathUserRoom, `<html>rate limited</html>`)
	u.json(pathRoomInit, `{"code":0,"data":{"room_id":5050,"live_status":1}}`)

	info, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err)
	assert.True(t, info.IsLive)
}

func TestResolve_AllTiersFail(t *testing.T) {
	u := newUpstream(t)
	u.json(pathUserRoom, `{"code":-412,"message":"request was banned","data":null}`)
	u.json(pathRoomInit, `{"code":0,"data":null}`)

	_, err := u.resolver(time.Second).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.Error(t, err)

	var resErr *live.ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Len(t, resErr.Failures, 2)
	assert.Equal(t, "user-room", resErr.Failures[0].Tier)
	assert.Equal(t, "room-init", resErr.Failures[1].Tier)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestResolve_TierTimeout(t *testing.T) {
	u := newUpstream(t)
	u.handle(pathUserRoom, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	u.json(pathRoomInit, `{"code":0,"data":{"room_id":5050,"live_status":1}}`)

	start := time.Now()
	info, err := u.resolver(100*time.Millisecond).Resolve(context.Background(), live.Entity{ID: "12345", Kind: live.KindUser})
	require.NoError(t, err, "a timed out tier must fall through to the next one")
	assert.True(t, info.IsLive)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewAPI_Defaults(t *testing.T) {
	api := NewAPI(nil, APIConfig{BaseURL: "https://example.test/"})

	assert.Equal(t, "https://example.test", api.baseURL)
	assert.Equal(t, DefaultRoomBaseURL, api.roomBaseURL)
	assert.Equal(t, DefaultTimeout, api.timeout)
}
