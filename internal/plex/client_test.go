package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClientSendsStandardHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":0}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/", WithToken("secret"), WithIdentity(Identity{ClientIdentifier: "abc123", Product: "plexctl-test"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	query := NewQuery().Set("b", "2").Set("a", "1")
	if _, err := client.GetContainer(context.Background(), "/library/sections", query); err != nil {
		t.Fatalf("GetContainer: %v", err)
	}

	if rawQuery != "b=2&a=1" {
		t.Fatalf("query order not preserved: %q", rawQuery)
	}
	checks := map[string]string{
		"X-Plex-Token":             "secret",
		"X-Plex-Client-Identifier": "abc123",
		"X-Plex-Product":           "plexctl-test",
		"X-Plex-Device-Name":       "plexctl-test",
		"Accept":                   "application/json",
	}
	for key, want := range checks {
		if got.Get(key) != want {
			t.Fatalf("header %s = %q, want %q", key, got.Get(key), want)
		}
	}
	if got.Get("X-Plex-Platform") == "" || got.Get("X-Plex-Version") == "" {
		t.Fatalf("expected platform and version headers: %v", got)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://server", "::not a url"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestGetContainerMapsStatuses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("kaboom"))
		default:
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := client.GetContainer(ctx, "/missing", NewQuery()); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	_, err = client.GetContainer(ctx, "/broken", NewQuery())
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("status = %d", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected body in error: %v", err)
	}

	if _, err := client.GetContainer(ctx, "/garbage", NewQuery()); !errors.Is(err, ErrDeserialization) {
		t.Fatalf("expected ErrDeserialization, got %v", err)
	}
}

func TestRequestTimeoutOverride(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":0}}`))
	}))
	defer srv.Close()
	var once sync.Once
	defer once.Do(func() { close(release) })

	client, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Get(context.Background(), "/slow", NewQuery())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport timeout, got %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		once.Do(func() { close(release) })
	}()
	resp, err := client.Get(context.Background(), "/slow", NewQuery(), WithoutTimeout())
	if err != nil {
		t.Fatalf("expected request without timeout to succeed: %v", err)
	}
	_, _ = ReadBody(resp)
}

func TestTransportErrorKeepsCause(t *testing.T) {
	t.Parallel()

	client, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Get(ctx, "/", NewQuery())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cause to be context.Canceled, got %v", err)
	}
}

func TestRequestObserverAndCopies(t *testing.T) {
	t.Parallel()

	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("X-Plex-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var routes []string
	var statuses []int
	client, err := New(srv.URL, WithToken("one"), WithRequestObserver(func(route string, status int, _ time.Duration) {
		routes = append(routes, route)
		statuses = append(statuses, status)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other := client.WithAccessToken("two")

	for _, c := range []*Client{client, other} {
		resp, err := c.Get(context.Background(), "/x", NewQuery(), Route("probe"))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		_, _ = ReadBody(resp)
	}

	if strings.Join(tokens, ",") != "one,two" {
		t.Fatalf("tokens = %v", tokens)
	}
	if strings.Join(routes, ",") != "probe,probe" || statuses[0] != http.StatusNoContent {
		t.Fatalf("observer saw routes=%v statuses=%v", routes, statuses)
	}
	if client.BaseURL() != other.BaseURL() {
		t.Fatalf("copy should keep base url")
	}
}
