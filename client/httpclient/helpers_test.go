package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/internal/authtest"
	"github.com/joy-dx/sessionnet/relays"
	"github.com/joy-dx/sessionnet/session"
)

// --- helpers ----------------------------------------------------------------

type fakeRelay struct {
	mu   sync.Mutex
	evts []relayDTO.RelayEventInterface
}

func (r *fakeRelay) Debug(data relayDTO.RelayEventInterface) { r.add(data) }
func (r *fakeRelay) Info(data relayDTO.RelayEventInterface)  { r.add(data) }
func (r *fakeRelay) Warn(data relayDTO.RelayEventInterface)  { r.add(data) }
func (r *fakeRelay) Error(data relayDTO.RelayEventInterface) { r.add(data) }
func (r *fakeRelay) Fatal(data relayDTO.RelayEventInterface) { r.add(data) }
func (r *fakeRelay) Meta(data relayDTO.RelayEventInterface)  { r.add(data) }

func (r *fakeRelay) add(e relayDTO.RelayEventInterface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evts = append(r.evts, e)
}

// waiters returns waiter events in emission order, filtered by resolved state.
func (r *fakeRelay) waiters(resolved bool) []relays.RlyWaiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []relays.RlyWaiter
	for _, e := range r.evts {
		if w, ok := e.(relays.RlyWaiter); ok && w.Resolved == resolved {
			out = append(out, w)
		}
	}
	return out
}

func (r *fakeRelay) sessionEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.evts {
		if _, ok := e.(relays.RlySession); ok {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func testNetConfig(baseURL string, relay relayDTO.RelayInterface) *config.NetSvcConfig {
	netCfg := config.DefaultNetSvcConfig()
	netCfg.WithBaseURL(baseURL).
		WithRelay(relay).
		WithRequestTimeout(5 * time.Second).
		WithRefreshTimeout(5 * time.Second)
	return &netCfg
}

// rig wires a client, coordinator and memory store against the fake backend.
type rig struct {
	srv    *authtest.Server
	store  *session.MemoryStore
	signal *SessionSignal
	coord  *RefreshCoordinator
	client *HTTPClient
	relay  *fakeRelay
}

func newRig(t *testing.T, opts ...authtest.Option) *rig {
	t.Helper()
	srv := authtest.New(t, opts...)
	relay := &fakeRelay{}
	netCfg := testNetConfig(srv.URL, relay)
	return newRigWithProvider(t, srv, relay, netCfg, NewTokenRefresher(netCfg))
}

func newRigWithProvider(t *testing.T, srv *authtest.Server, relay *fakeRelay, netCfg *config.NetSvcConfig, provider dto.AuthProvider) *rig {
	t.Helper()
	store := session.NewMemoryStore(t.Name())
	signal := NewSessionSignal()
	coord := NewRefreshCoordinator(store, provider, signal, relay, WithRefreshTimeout(netCfg.RefreshTimeout))

	cfg := DefaultHTTPClientConfig()
	cfg.WithCoordinator(coord).WithMiddleware(RequestIDMiddleware())
	return &rig{
		srv:    srv,
		store:  store,
		signal: signal,
		coord:  coord,
		client: NewHTTPClient("test", netCfg, &cfg),
		relay:  relay,
	}
}

func (r *rig) login(t *testing.T) dto.Credentials {
	t.Helper()
	creds := r.srv.IssuePair("alice")
	if err := r.coord.Establish(context.Background(), creds); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	return creds
}

func (r *rig) do(ctx context.Context, method, path, taskName string) (dto.Response, error) {
	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithMethod(method).WithPath(path)
	return r.client.ProcessRequest(ctx, &dto.RequestConfig{ReqConfig: &reqCfg, TaskName: taskName})
}

type recordedRequest struct {
	Method      string
	Path        string
	Header      http.Header
	Body        []byte
	ContentType string
}

func newRecordingServer(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()

	var last recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		last = recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Header:      r.Header.Clone(),
			Body:        b,
			ContentType: r.Header.Get("Content-Type"),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

// fakeAuthProvider counts calls and optionally blocks until released.
type fakeAuthProvider struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	refresh func(ctx context.Context, old dto.Credentials) (dto.Credentials, error)
}

func (f *fakeAuthProvider) Refresh(ctx context.Context, old dto.Credentials) (dto.Credentials, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.refresh(ctx, old)
}

func (f *fakeAuthProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
