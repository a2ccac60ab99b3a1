package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

// TestClient_ConnectionReuse verifies that sequential requests to the same
// host reuse pooled connections.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient("")

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5

	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Get(ctx, server.URL, 5*time.Second)
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

func TestClient_SendsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotAuth, gotMethod, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient("livewatch-test")
	resp := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Body:    []byte(`{"a":1}`),
		Headers: map[string]string{"Authorization": "Bot token"},
		Timeout: time.Second,
	})

	if !resp.OK() {
		t.Fatalf("OK() = false, err = %v", resp.Err())
	}
	if gotUA != "livewatch-test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "livewatch-test")
	}
	if gotAuth != "Bot token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bot token")
	}
	if gotMethod != http.MethodPost {
		t.Errorf("Method = %q, want POST", gotMethod)
	}
	if gotBody != `{"a":1}` {
		t.Errorf("Body = %q, want %q", gotBody, `{"a":1}`)
	}
}

func TestClient_DefaultUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	_ = NewClient("").Get(context.Background(), server.URL, time.Second)

	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default", gotUA)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	resp := NewClient("").Get(context.Background(), server.URL, 50*time.Millisecond)
	if resp.Error == nil {
		t.Fatal("Error = nil, want timeout error")
	}
	if resp.OK() {
		t.Error("OK() = true for timed out request")
	}
}

func TestClient_ZeroTimeoutUsesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok || time.Until(deadline) <= 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	for _, timeout := range []time.Duration{0, -time.Second} {
		resp := NewClient("").Do(context.Background(), Request{URL: server.URL, Timeout: timeout})
		if resp.Error != nil {
			t.Fatalf("Timeout %v: Error = %v, want nil", timeout, resp.Error)
		}
		if !resp.OK() || string(resp.Body) != "ok" {
			t.Errorf("Timeout %v: status = %d body = %q, want 200 ok", timeout, resp.StatusCode, resp.Body)
		}
	}
}

func TestResponse_Err(t *testing.T) {
	if err := (Response{StatusCode: 200}).Err(); err != nil {
		t.Errorf("Err() = %v for 200, want nil", err)
	}

	err := (Response{StatusCode: 502}).Err()
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Err() = %v for 502, want error mentioning status", err)
	}
}

// TestClient_Close verifies that Close() is safe to call and idempotent.
func TestClient_Close(t *testing.T) {
	client := NewClient("")

	client.Close()
	client.Close()
	client.Close()
}

// TestClient_Close_NilClient verifies that Close() handles nil receiver safely.
func TestClient_Close_NilClient(t *testing.T) {
	var client *Client

	client.Close()
}

// TestClient_Close_ActuallyClosesConnections verifies that Close closes idle
// connections, but the client remains usable for new requests.
func TestClient_Close_ActuallyClosesConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient("")

	for i := 0; i < 5; i++ {
		resp := client.Get(context.Background(), server.URL, time.Second)
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	client.Close()

	resp := client.Get(context.Background(), server.URL, time.Second)
	if resp.Error != nil {
		t.Errorf("request after Close failed: %v", resp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}
