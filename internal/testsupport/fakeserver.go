package testsupport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"plexctl/internal/plex"
)

// RecordedRequest is what the fake server saw.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

// FakeServer is an httptest media server with chi routing. Every request is
// recorded before routing; unrouted paths answer 404 like the real server.
type FakeServer struct {
	*httptest.Server

	router   chi.Router
	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeServer starts a server that is closed when the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()
	f := &FakeServer{router: chi.NewRouter()}
	f.router.Use(f.record)
	f.Server = httptest.NewServer(f.router)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Handle routes GET pattern to h.
func (f *FakeServer) Handle(pattern string, h http.HandlerFunc) {
	f.router.Get(pattern, h)
}

// JSON answers GET pattern with a fixed status and body.
func (f *FakeServer) JSON(pattern string, status int, body string) {
	f.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// Status answers GET pattern with an empty body.
func (f *FakeServer) Status(pattern string, status int) {
	f.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

// Requests returns a copy of every request seen so far.
func (f *FakeServer) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// RequestsTo returns the recorded requests for one path.
func (f *FakeServer) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range f.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// Client returns a plex client pointed at the fake server.
func (f *FakeServer) Client(t testing.TB, opts ...plex.Option) *plex.Client {
	t.Helper()
	opts = append([]plex.Option{plex.WithToken("test-token")}, opts...)
	client, err := plex.New(f.URL, opts...)
	if err != nil {
		t.Fatalf("plex.New: %v", err)
	}
	return client
}
