package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/room/v1/Room/get_info":
			_, _ = w.Write([]byte(`{"code":0,"data":{"room_id":889,"live_status":1,"title":"Test Stream","user_cover":"https://i0.example/c.jpg","online":12}}`))
		case "/room/v1/Room/getRoomInfoOld":
			w.WriteHeader(http.StatusBadGateway)
		case "/room/v1/Room/room_init":
			_, _ = w.Write([]byte(`{"code":60004,"message":"room not found"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunCheck_LiveRoom(t *testing.T) {
	api := fakeAPI(t)

	out, _, err := execute(t, "check", "--room", "889", "--api-base-url", api.URL)
	if err != nil {
		t.Fatalf("check command error = %v", err)
	}

	for _, phrase := range []string{
		"room 889: LIVE",
		"Title:   Test Stream",
		"Room:    https://live.bilibili.com/889",
		"Online:  12",
	} {
		if !strings.Contains(out, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, out)
		}
	}
}

func TestRunCheck_UnresolvableUser(t *testing.T) {
	api := fakeAPI(t)

	_, stderr, err := execute(t, "check", "--user", "12345", "--api-base-url", api.URL)
	if err == nil {
		t.Fatal("check command error = nil, want status unavailable")
	}
	if !strings.Contains(err.Error(), "status unavailable for user 12345") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(stderr, "user-room") || !strings.Contains(stderr, "room-init") {
		t.Errorf("stderr = %q, want per-tier failures", stderr)
	}
}

func TestRunCheck_RequiresOneTarget(t *testing.T) {
	if _, _, err := execute(t, "check"); err == nil {
		t.Error("check without --user or --room error = nil")
	}
	if _, _, err := execute(t, "check", "--user", "1", "--room", "2"); err == nil {
		t.Error("check with both --user and --room error = nil")
	}
}
