package livewatch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/livewatch/live"
)

// fakeUpstream serves the room detail endpoint with a switchable status.
func fakeUpstream(t *testing.T, liveStatus *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/room/v1/Room/get_info" {
			_, _ = w.Write([]byte(`{"code":-404,"message":"not found"}`))
			return
		}
		status := liveStatus.Load()
		body := `{"code":0,"message":"0","data":{"room_id":889,"live_status":` +
			strconv.Itoa(int(status)) + `,"title":"Test Stream","user_cover":"","online":5}}`
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func runWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestStart_NotifiesOnRisingEdgeOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(1)
	upstream := fakeUpstream(t, &status)

	n := &fakeNotifier{}
	var callbackEvents atomic.Int32
	reg := prometheus.NewRegistry()

	w, err := New(
		WithEntity(live.Entity{ID: "889", DisplayName: "Room", Kind: live.KindRoom}),
		WithNotifier(n),
		WithAPIBaseURL(upstream.URL),
		WithPollInterval(50*time.Millisecond),
		WithPaceDelay(0),
		WithPort(0),
		WithLogger(testLogger()),
		WithMetricsRegistry(reg),
		WithTransitionCallback(func(live.TransitionEvent) { callbackEvents.Add(1) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cancel, done := runWatcher(t, w)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if events, _, _ := n.snapshot(); len(events) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// let a few more cycles run with a sustained live state
	time.Sleep(200 * time.Millisecond)

	cancel()
	waitStopped(t, done)

	events, _, closed := n.snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d notifications, want exactly 1", len(events))
	}
	if !events[0].Info.IsLive || events[0].Info.Title != "Test Stream" {
		t.Errorf("event info = %+v", events[0].Info)
	}
	if events[0].Info.RoomURL != "https://live.bilibili.com/889" {
		t.Errorf("RoomURL = %q", events[0].Info.RoomURL)
	}
	if callbackEvents.Load() != 1 {
		t.Errorf("callback invoked %d times, want 1", callbackEvents.Load())
	}
	if !closed {
		t.Error("notifier was not closed on shutdown")
	}
	if got := gaugeValue(t, reg, "livewatch_entity_live"); got != 1 {
		t.Errorf("livewatch_entity_live = %v, want 1", got)
	}
}

// gaugeValue returns the value of the first series of a gathered gauge.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestStart_StartupNotice(t *testing.T) {
	var status atomic.Int32
	upstream := fakeUpstream(t, &status)

	n := &fakeNotifier{}
	w, err := New(
		WithEntities(
			live.Entity{ID: "889", DisplayName: "Room", Kind: live.KindRoom},
			live.Entity{ID: "12345", Kind: live.KindUser},
		),
		WithNotifier(n),
		WithAPIBaseURL(upstream.URL),
		WithPollInterval(time.Hour),
		WithPort(0),
		WithLogger(testLogger()),
		WithStartupNotice(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cancel, done := runWatcher(t, w)

	deadline := time.Now().Add(2 * time.Second)
	var announcements int
	for time.Now().Before(deadline) {
		_, a, _ := n.snapshot()
		if announcements = len(a); announcements > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	waitStopped(t, done)

	_, a, _ := n.snapshot()
	if len(a) != 1 {
		t.Fatalf("got %d announcements, want 1", len(a))
	}
	want := []string{"Room", "12345"}
	for i, name := range want {
		if a[0].Names[i] != name {
			t.Errorf("Names[%d] = %q, want %q", i, a[0].Names[i], name)
		}
	}
}

func TestStart_ContextAlreadyCancelled(t *testing.T) {
	w, err := New(WithEntity(testEntity), WithNotifier(&fakeNotifier{}), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Start(ctx); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
}

func TestStart_PortInUse(t *testing.T) {
	blocker := httptest.NewServer(http.NotFoundHandler())
	defer blocker.Close()

	_, portStr, err := net.SplitHostPort(blocker.Listener.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}
	p, _ := strconv.Atoi(portStr)

	w, err := New(
		WithEntity(testEntity),
		WithNotifier(&fakeNotifier{}),
		WithPort(p),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := w.Start(ctx); err == nil {
		t.Error("Start() error = nil, want bind error")
	}
}

func TestCallbackDispatcher_RecoversPanics(t *testing.T) {
	n := &fakeNotifier{}
	var mu sync.Mutex
	var order []string

	d := &callbackDispatcher{
		next: n,
		callbacks: []func(live.TransitionEvent){
			func(live.TransitionEvent) { panic("boom") },
			func(live.TransitionEvent) {
				mu.Lock()
				order = append(order, "second")
				mu.Unlock()
			},
		},
		logger: testLogger(),
	}

	if err := d.Notify(context.Background(), live.TransitionEvent{ID: "ev"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(order) != 1 {
		t.Errorf("second callback ran %d times, want 1", len(order))
	}
	if events, _, _ := n.snapshot(); len(events) != 1 {
		t.Errorf("notifier received %d events, want 1", len(events))
	}
}
