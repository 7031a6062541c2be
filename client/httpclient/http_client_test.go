package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/internal/authtest"
	"github.com/joy-dx/sessionnet/session"
	"github.com/joy-dx/sessionnet/utils"
	"golang.org/x/sync/errgroup"
)

func Test_HTTPClient_ProcessRequest_golden_dispatch(t *testing.T) {
	type golden struct {
		wantAuth     string
		wantHeaders  map[string]string
		wantCTPrefix string
		wantBodyJSON map[string]any
		wantRawBody  string
	}

	cases := []struct {
		name  string
		creds dto.Credentials
		build func(c *HTTPRequestConfig)
		want  golden
	}{
		{
			name:  "bearer attached with service and request headers",
			creds: dto.Credentials{AccessToken: "abc", RefreshToken: "r"},
			build: func(c *HTTPRequestConfig) {
				c.WithMethod(http.MethodPost).
					WithBody(map[string]any{"orig": "v"}).
					WithHeaders(map[string]string{"X-Client": "request"})
			},
			want: golden{
				wantAuth: "Bearer abc",
				wantHeaders: map[string]string{
					"X-Client":   "request",
					"X-Tenant":   "t1",
					"User-Agent": "sessionnet-test",
				},
				wantCTPrefix: "application/json",
				wantBodyJSON: map[string]any{"orig": "v"},
			},
		},
		{
			name:  "empty pair sends no authorization",
			creds: dto.Credentials{},
			build: func(c *HTTPRequestConfig) { c.WithMethod(http.MethodGet) },
			want:  golden{wantAuth: ""},
		},
		{
			name:  "public request omits stored credential",
			creds: dto.Credentials{AccessToken: "abc"},
			build: func(c *HTTPRequestConfig) { c.WithMethod(http.MethodGet).WithPublic(true) },
			want:  golden{wantAuth: ""},
		},
		{
			name:  "multipart body uses boundary content type",
			creds: dto.Credentials{AccessToken: "abc"},
			build: func(c *HTTPRequestConfig) {
				c.WithMethod(http.MethodPost).
					WithHeaders(map[string]string{"Content-Type": utils.ContentTypeJSON}).
					WithMultipart(map[string]any{
						"title": "cover",
						"file":  utils.FilePart{FileName: "a.png", ContentType: "image/png", Data: []byte("png")},
					})
			},
			want: golden{
				wantAuth:     "Bearer abc",
				wantCTPrefix: "multipart/form-data; boundary=",
			},
		},
		{
			name:  "raw payload keeps its own content type",
			creds: dto.Credentials{AccessToken: "abc"},
			build: func(c *HTTPRequestConfig) {
				c.WithMethod(http.MethodPut).
					WithHeaders(map[string]string{"Content-Type": "application/json; charset=utf-8"}).
					WithRawBody([]byte("binary"), "application/octet-stream")
			},
			want: golden{
				wantAuth:     "Bearer abc",
				wantCTPrefix: "application/octet-stream",
				wantRawBody:  "binary",
			},
		},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, last := newRecordingServer(t, http.StatusOK, "ok")
			netCfg := testNetConfig(srv.URL, &fakeRelay{})
			netCfg.WithUserAgent("sessionnet-test").WithExtraHeaders(dto.ExtraHeaders{
				"X-Tenant": "t1",
				"X-Client": "service",
			})

			store := session.NewMemoryStore(t.Name())
			if err := store.Set(context.Background(), tt.creds); err != nil {
				t.Fatalf("Set: %v", err)
			}
			cfg := DefaultHTTPClientConfig()
			cfg.WithStore(store)
			client := NewHTTPClient("test", netCfg, &cfg)

			reqCfg := DefaultHTTPRequestConfig()
			reqCfg.WithPath("/things/")
			tt.build(&reqCfg)

			resp, err := client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})
			if err != nil {
				t.Fatalf("ProcessRequest error: %v", err)
			}
			if resp.StatusCode != http.StatusOK || string(resp.Body) != "ok" {
				t.Fatalf("resp=%d %q; want 200 ok", resp.StatusCode, resp.Body)
			}
			if last.Path != "/things/" {
				t.Fatalf("path=%q; want /things/", last.Path)
			}

			if got := last.Header.Get("Authorization"); got != tt.want.wantAuth {
				t.Fatalf("Authorization=%q; want %q", got, tt.want.wantAuth)
			}
			for k, v := range tt.want.wantHeaders {
				if got := last.Header.Get(k); got != v {
					t.Fatalf("header %s=%q; want %q", k, got, v)
				}
			}
			if tt.want.wantCTPrefix != "" && !strings.HasPrefix(last.ContentType, tt.want.wantCTPrefix) {
				t.Fatalf("Content-Type=%q; want prefix %q", last.ContentType, tt.want.wantCTPrefix)
			}
			if tt.want.wantBodyJSON != nil {
				var got map[string]any
				if err := json.Unmarshal(last.Body, &got); err != nil {
					t.Fatalf("unmarshal body=%q: %v", last.Body, err)
				}
				if !reflect.DeepEqual(got, tt.want.wantBodyJSON) {
					t.Fatalf("json body=%v; want %v", got, tt.want.wantBodyJSON)
				}
			}
			if tt.want.wantRawBody != "" && string(last.Body) != tt.want.wantRawBody {
				t.Fatalf("body=%q; want %q", last.Body, tt.want.wantRawBody)
			}
		})
	}
}

func Test_HTTPClient_ProcessRequest_classifiedErrors(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusForbidden, `{"detail":"nope"}`)
	cfg := DefaultHTTPClientConfig()
	client := NewHTTPClient("test", testNetConfig(srv.URL, &fakeRelay{}), &cfg)

	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithPath("/secret/")
	resp, err := client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})
	if !errors.Is(err, dto.ErrForbidden) {
		t.Fatalf("err=%v; want ErrForbidden", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status=%d; want 403 response alongside the error", resp.StatusCode)
	}
	if got := dto.UserMessage(err); got != dto.MsgForbidden {
		t.Fatalf("UserMessage=%q; want %q", got, dto.MsgForbidden)
	}
}

func Test_HTTPClient_networkError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	cfg := DefaultHTTPClientConfig()
	client := NewHTTPClient("test", testNetConfig(url, &fakeRelay{}), &cfg)
	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithPath("/x/")

	_, err := client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})
	if !errors.Is(err, dto.ErrNetwork) {
		t.Fatalf("err=%v; want ErrNetwork", err)
	}
	o, _ := dto.AsOutcome(err)
	if o == nil || o.Err == nil {
		t.Fatalf("outcome=%v; want transport cause attached", o)
	}
}

func Test_HTTPClient_refreshAndReplay(t *testing.T) {
	r := newRig(t)
	orig := r.login(t)
	r.srv.ExpireAccess()

	resp, err := r.do(context.Background(), http.MethodGet, "/auth/me/", "")
	if err != nil {
		t.Fatalf("ProcessRequest error: %v", err)
	}
	var user authtest.User
	if err := json.Unmarshal(resp.Body, &user); err != nil || user.Username != "alice" {
		t.Fatalf("body=%q err=%v; want alice", resp.Body, err)
	}

	if got := r.srv.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls=%d; want 1", got)
	}
	if got := r.srv.Hits("/auth/me/"); got != 2 {
		t.Fatalf("hits=%d; want original plus one replay", got)
	}
	stored, _ := r.store.Get(context.Background())
	if stored.AccessToken == orig.AccessToken || stored.RefreshToken != orig.RefreshToken {
		t.Fatalf("stored=%+v; want new access and kept refresh %q", stored, orig.RefreshToken)
	}
	if r.signal.Fired() != 0 {
		t.Fatalf("signal fired on successful refresh")
	}
}

func Test_HTTPClient_refreshRotation(t *testing.T) {
	r := newRig(t, authtest.WithRotation())
	orig := r.login(t)
	r.srv.ExpireAccess()

	if _, err := r.do(context.Background(), http.MethodGet, "/auth/me/", ""); err != nil {
		t.Fatalf("ProcessRequest error: %v", err)
	}
	stored, _ := r.store.Get(context.Background())
	if stored.RefreshToken == orig.RefreshToken || stored.RefreshToken == "" {
		t.Fatalf("refresh=%q; want rotated token", stored.RefreshToken)
	}
}

func Test_HTTPClient_singleFlight(t *testing.T) {
	const n = 10
	r := newRig(t)
	r.login(t)
	r.srv.ExpireAccess()
	release := r.srv.HoldRefresh()
	defer release()

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("req-%d", i)
		g.Go(func() error {
			_, err := r.do(ctx, http.MethodGet, "/auth/me/", id)
			return err
		})
	}

	eventually(t, "all requests parked", func() bool { return r.coord.Waiting() == n-1 })
	release()

	if err := g.Wait(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := r.srv.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls=%d; want exactly 1 for %d failures", got, n)
	}
	if got := r.srv.Hits("/auth/me/"); got != 2*n {
		t.Fatalf("hits=%d; want %d", got, 2*n)
	}
	if got := len(r.relay.waiters(true)); got != n-1 {
		t.Fatalf("resolved waiters=%d; want %d", got, n-1)
	}
	if st := r.coord.Stats(); st.Refreshing || st.Waiting != 0 || st.Refreshes != 1 {
		t.Fatalf("stats=%+v; want idle after one refresh", st)
	}
}

func Test_HTTPClient_waitersResolvedInArrivalOrder(t *testing.T) {
	const n = 5
	r := newRig(t)
	r.login(t)
	r.srv.ExpireAccess()
	release := r.srv.HoldRefresh()
	defer release()

	var g errgroup.Group
	start := func(i int) {
		id := fmt.Sprintf("req-%d", i)
		g.Go(func() error {
			_, err := r.do(context.Background(), http.MethodGet, "/auth/me/", id)
			return err
		})
	}

	start(0)
	eventually(t, "refresh in flight", func() bool { return r.coord.Stats().Refreshing })
	for i := 1; i < n; i++ {
		start(i)
		want := i
		eventually(t, fmt.Sprintf("waiter %d queued", i), func() bool { return r.coord.Waiting() == want })
	}
	release()
	if err := g.Wait(); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	resolved := r.relay.waiters(true)
	if len(resolved) != n-1 {
		t.Fatalf("resolved=%d; want %d", len(resolved), n-1)
	}
	for i, w := range resolved {
		wantID := fmt.Sprintf("req-%d", i+1)
		if w.ID != wantID || w.Position != i+1 || w.Failed {
			t.Fatalf("resolved[%d]=%+v; want id %s position %d", i, w, wantID, i+1)
		}
	}
}

func Test_HTTPClient_refreshFailureEndsSessionOnce(t *testing.T) {
	const n = 3
	r := newRig(t)
	r.login(t)
	r.srv.ExpireAccess()
	r.srv.RevokeRefresh()
	release := r.srv.HoldRefresh()
	defer release()

	ended, unsub := r.signal.Subscribe()
	defer unsub()

	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = r.do(context.Background(), http.MethodGet, "/auth/me/", "")
			return nil
		})
	}
	eventually(t, "requests parked", func() bool { return r.coord.Waiting() == n-1 })
	release()
	_ = g.Wait()

	for i, err := range errs {
		if !errors.Is(err, dto.ErrRefreshFailed) {
			t.Fatalf("errs[%d]=%v; want ErrRefreshFailed", i, err)
		}
		if errors.Is(err, dto.ErrAuthExpired) {
			t.Fatalf("errs[%d] surfaced AuthExpired after refresh failure", i)
		}
		if got := dto.UserMessage(err); got != dto.MsgSession {
			t.Fatalf("UserMessage=%q; want %q", got, dto.MsgSession)
		}
	}
	if got := r.signal.Fired(); got != 1 {
		t.Fatalf("signal fired %d times; want 1", got)
	}
	if len(ended) != 1 {
		t.Fatalf("subscriber received %d emissions; want 1", len(ended))
	}
	if got := r.relay.sessionEvents(); got != 1 {
		t.Fatalf("session events=%d; want 1", got)
	}
	stored, _ := r.store.Get(context.Background())
	if !stored.IsEmpty() {
		t.Fatalf("store=%+v; want cleared", stored)
	}
	if got := r.srv.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls=%d; want 1", got)
	}
}

func Test_HTTPClient_refreshEndpointFailureIsTerminal(t *testing.T) {
	r := newRig(t)
	r.login(t)

	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithMethod(http.MethodPost).
		WithPath(authtest.RefreshPath).
		WithBody(map[string]any{"refresh": "unknown"})
	_, err := r.client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})

	if !errors.Is(err, dto.ErrRefreshFailed) {
		t.Fatalf("err=%v; want ErrRefreshFailed", err)
	}
	if got := r.srv.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls=%d; want only the direct call", got)
	}
	if st := r.coord.Stats(); st.Refreshes != 0 || st.Failures != 0 {
		t.Fatalf("stats=%+v; coordinator must not be involved", st)
	}
}

func Test_HTTPClient_noRefreshToken(t *testing.T) {
	r := newRig(t)
	creds := r.srv.IssuePair("alice")
	if err := r.store.Set(context.Background(), dto.Credentials{AccessToken: creds.AccessToken}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	r.srv.ExpireAccess()

	resp, err := r.do(context.Background(), http.MethodGet, "/auth/me/", "")
	if !errors.Is(err, dto.ErrAuthExpired) || !errors.Is(err, dto.ErrNoRefreshToken) {
		t.Fatalf("err=%v; want original AuthExpired carrying ErrNoRefreshToken", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d; want 401", resp.StatusCode)
	}
	if r.srv.RefreshCalls() != 0 {
		t.Fatalf("refresh attempted without a refresh token")
	}
	if r.signal.Fired() != 1 {
		t.Fatalf("signal fired %d times; want 1", r.signal.Fired())
	}
}

func Test_HTTPClient_replayRejectedIsNotReplayedAgain(t *testing.T) {
	srv := authtest.New(t)
	relay := &fakeRelay{}
	netCfg := testNetConfig(srv.URL, relay)
	second := make(chan struct{})
	var calls atomic.Int32
	provider := &fakeAuthProvider{refresh: func(ctx context.Context, old dto.Credentials) (dto.Credentials, error) {
		if calls.Add(1) == 2 {
			<-second
		}
		return dto.Credentials{AccessToken: "not-a-jwt"}, nil
	}}
	r := newRigWithProvider(t, srv, relay, netCfg, provider)
	r.login(t)
	srv.ExpireAccess()

	// The second cycle is held open; the caller must not wait for it.
	_, err := r.do(context.Background(), http.MethodGet, "/auth/me/", "")
	if !errors.Is(err, dto.ErrAuthExpired) || errors.Is(err, dto.ErrRefreshFailed) {
		t.Fatalf("err=%v; want AuthExpired from the replay", err)
	}
	if got := srv.Hits("/auth/me/"); got != 2 {
		t.Fatalf("hits=%d; want original plus exactly one replay", got)
	}
	eventually(t, "second cycle started", func() bool { return provider.Calls() == 2 })

	close(second)
	eventually(t, "second cycle finished", func() bool { return !r.coord.Stats().Refreshing })
	if got := provider.Calls(); got != 2 {
		t.Fatalf("provider calls=%d; want 2", got)
	}
	if r.signal.Fired() != 0 {
		t.Fatalf("signal fired %d; want 0 after a successful cycle", r.signal.Fired())
	}
}

func Test_HTTPClient_publicRequestNeverRefreshes(t *testing.T) {
	r := newRig(t)
	r.login(t)

	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithMethod(http.MethodPost).
		WithPath(authtest.LoginPath).
		WithPublic(true).
		WithBody(map[string]any{"username": "alice", "password": "wrong"})
	_, err := r.client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})

	if !errors.Is(err, dto.ErrAuthExpired) {
		t.Fatalf("err=%v; want 401 surfaced as AuthExpired", err)
	}
	if r.srv.RefreshCalls() != 0 || r.signal.Fired() != 0 {
		t.Fatalf("public 401 triggered refresh=%d signal=%d", r.srv.RefreshCalls(), r.signal.Fired())
	}
}

func Test_HTTPClient_validationHeadline(t *testing.T) {
	r := newRig(t)

	reqCfg := DefaultHTTPRequestConfig()
	reqCfg.WithMethod(http.MethodPost).
		WithPath("/auth/register/").
		WithPublic(true).
		WithBody(map[string]any{"username": "", "email": "bad", "password": "p", "password2": "p"})
	resp, err := r.client.ProcessRequest(context.Background(), &dto.RequestConfig{ReqConfig: &reqCfg})

	if !errors.Is(err, dto.ErrValidation) {
		t.Fatalf("err=%v; want ErrValidation", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d; want 400", resp.StatusCode)
	}
	o, _ := dto.AsOutcome(err)
	if want := []string{"Invalid format", "Required."}; !reflect.DeepEqual(o.Messages, want) {
		t.Fatalf("messages=%v; want %v", o.Messages, want)
	}
	if got := dto.UserMessage(err); got != "Invalid format" {
		t.Fatalf("UserMessage=%q; want headline", got)
	}
}
