package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

func TestDoJSONRetriesServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	client.initialDelay = time.Millisecond
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	var out map[string]any
	if _, err := client.DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response: %#v", out)
	}
}

func TestDoJSONNoRetryByDefault(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &map[string]any{})
	if err == nil {
		t.Fatal("expected upstream error")
	}
	if !apperr.Is(err, apperr.CodeExternalAPI) {
		t.Fatalf("expected external api code, got %v", err)
	}
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestDoJSONAuthFailureIsNotRetried(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(2*time.Second, 3)
	client.initialDelay = time.Millisecond
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, nil)
	if !apperr.Is(err, apperr.CodeAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected auth failure to stop retries, got %d attempts", got)
	}
}

func TestDoJSONSetsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("User-Agent") != userAgent {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	var out struct {
		N int `json:"n"`
	}
	_, err := DoBodyJSON(context.Background(), New(time.Second, 0), http.MethodPost, srv.URL, []byte(`{}`),
		map[string]string{"Authorization": "Bearer k"}, &out)
	if err != nil {
		t.Fatalf("DoBodyJSON failed: %v", err)
	}
	if out.N != 1 {
		t.Fatalf("unexpected decoded value %d", out.N)
	}
}

func TestDoJSONEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := DoBodyJSON(context.Background(), New(time.Second, 0), http.MethodGet, srv.URL, nil, nil, &map[string]any{})
	if !apperr.Is(err, apperr.CodeExternalAPI) {
		t.Fatalf("expected external api error on empty body, got %v", err)
	}
}
