package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// -----------------------------------------------------------------------------
// PERSISTENT CLIENT IMPLEMENTATION
// -----------------------------------------------------------------------------

// HTTPClient sends requests carrying the stored bearer credential. A request
// that comes back 401 is parked on the shared RefreshCoordinator and replayed
// once with the refreshed credential.

const NetClientHTTPRef dto.NetClientType = "net.client.http"

type HTTPClient struct {
	NetClient   dto.NetClient `json:"net_client" yaml:"net_client"`
	cfg         *HTTPClientConfig
	netCfg      *config.NetSvcConfig
	client      *http.Client
	relay       relayDTO.RelayInterface
	baseURL     string
	refreshPath string
}

func NewHTTPClient(ref string, netCfg *config.NetSvcConfig, cfg *HTTPClientConfig) *HTTPClient {
	baseURL := netCfg.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	return &HTTPClient{
		cfg:    cfg,
		netCfg: netCfg,
		NetClient: dto.NetClient{
			Name:        "HTTP Client",
			Ref:         ref,
			ClientType:  NetClientHTTPRef,
			Description: "Perform authenticated HTTP requests with single-flight credential refresh",
		},
		client:      newHTTPClient(netCfg.RequestTimeout),
		relay:       netCfg.Relay(),
		baseURL:     baseURL,
		refreshPath: urlPath(joinURL(baseURL, netCfg.RefreshPath)),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			MaxIdleConns:        50,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableKeepAlives:   false,
			Proxy:               http.ProxyFromEnvironment,
		}),
	}
}

func (c *HTTPClient) Ref() string {
	return c.NetClient.Ref
}
func (c *HTTPClient) Type() dto.NetClientType {
	return NetClientHTTPRef
}

// -----------------------------------------------------------------------------
// REQUEST EXECUTION
// -----------------------------------------------------------------------------

// ProcessRequest dispatches the request with the current credential. Non-success
// outcomes are returned as *dto.Outcome errors alongside whatever response arrived.
// AuthExpired is never returned while a refresh can still succeed.
func (c *HTTPClient) ProcessRequest(ctx context.Context, inCfg *dto.RequestConfig) (dto.Response, error) {
	cfg, castOk := inCfg.ReqConfig.(*HTTPRequestConfig)
	if !castOk {
		return dto.Response{}, errors.New("problem casting to httprequestconfig")
	}

	waiterID := inCfg.TaskName
	if waiterID == "" {
		waiterID = uuid.NewString()
	}

	creds, err := c.credentials(ctx, cfg)
	if err != nil {
		return dto.Response{}, err
	}

	response, err := c.send(ctx, cfg, creds, false)
	coordinator := c.cfg.Coordinator
	if !errors.Is(err, dto.ErrAuthExpired) || coordinator == nil || cfg.Public {
		return response, err
	}
	original, _ := dto.AsOutcome(err)

	fresh, refreshErr := coordinator.Await(ctx, waiterID, creds.AccessToken)
	if refreshErr != nil {
		return response, terminalOutcome(original, refreshErr)
	}
	return c.replay(ctx, cfg, waiterID, fresh)
}

// replay re-issues the request exactly once with the refreshed credential.
func (c *HTTPClient) replay(ctx context.Context, cfg *HTTPRequestConfig, waiterID string, fresh dto.Credentials) (dto.Response, error) {
	replaysTotal.Inc()
	response, err := c.send(ctx, cfg, fresh, true)
	if !errors.Is(err, dto.ErrAuthExpired) {
		return response, err
	}

	// Rejected again. The caller gets this AuthExpired now; a fresh cycle
	// starts in the background so later requests find a new pair, or the
	// session-invalidation signal fires if the backend revoked it.
	coordinator := c.cfg.Coordinator
	detached := context.WithoutCancel(ctx)
	go func() {
		_, _ = coordinator.Await(detached, waiterID, fresh.AccessToken)
	}()
	return response, err
}

// terminalOutcome converts the original AuthExpired outcome into the failure
// delivered to the caller once the refresh cycle gave up. Only a failed
// refresh becomes RefreshFailed; a missing refresh token or the caller's own
// cancellation keeps AuthExpired with the cause attached.
func terminalOutcome(original *dto.Outcome, cause error) error {
	out := *original
	out.Err = cause
	if !errors.Is(cause, dto.ErrRefreshFailed) {
		return &out
	}
	if o, ok := dto.AsOutcome(cause); ok && o.Kind == dto.OutcomeRefreshFailed {
		out.Messages = o.Messages
	}
	out.Kind = dto.OutcomeRefreshFailed
	return &out
}

func (c *HTTPClient) credentials(ctx context.Context, cfg *HTTPRequestConfig) (dto.Credentials, error) {
	store := c.cfg.store()
	if store == nil || cfg.Public {
		return dto.Credentials{}, nil
	}
	creds, err := store.Get(ctx)
	if err != nil {
		return dto.Credentials{}, fmt.Errorf("read session: %w", err)
	}
	return creds, nil
}

// send performs a single attempt: build, decorate, dispatch, classify.
func (c *HTTPClient) send(ctx context.Context, cfg *HTTPRequestConfig, creds dto.Credentials, replay bool) (dto.Response, error) {
	reqAny, err := cfg.NewRequest(ctx)
	if err != nil {
		return dto.Response{}, fmt.Errorf("build request: %w", err)
	}
	reqCfg, ok := reqAny.(*HTTPRequest)
	if !ok {
		return dto.Response{}, errors.New("problem casting built request to httprequest")
	}

	for _, mw := range c.cfg.Middlewares {
		if err := mw(ctx, reqCfg); err != nil {
			return dto.Response{}, fmt.Errorf("middleware aborted: %w", err)
		}
	}

	if err := reqCfg.FinalizeBody(); err != nil {
		return dto.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		reqCfg.Method,
		c.resolveURL(reqCfg),
		bytes.NewReader(reqCfg.BodyBytes),
	)
	if err != nil {
		return dto.Response{}, fmt.Errorf("create request: %w", err)
	}
	c.decorate(httpReq, reqCfg, creds)

	started := time.Now()
	httpResp, reqErr := c.client.Do(httpReq)
	if httpResp != nil {
		defer func() {
			io.Copy(io.Discard, httpResp.Body) // drain fully for connection reuse
			httpResp.Body.Close()
		}()
	}
	if reqErr != nil {
		outcome := Classify(c.refreshPath, Attempt{Path: httpReq.URL.Path, Err: reqErr})
		c.observe(httpReq, outcome, replay, started)
		return dto.Response{}, outcome
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		outcome := Classify(c.refreshPath, Attempt{Path: httpReq.URL.Path, Err: fmt.Errorf("read body: %w", err)})
		c.observe(httpReq, outcome, replay, started)
		return dto.Response{}, outcome
	}

	response := dto.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       bodyBytes,
	}

	outcome := Classify(c.refreshPath, Attempt{
		Path:       httpReq.URL.Path,
		StatusCode: response.StatusCode,
		Body:       bodyBytes,
	})
	c.observe(httpReq, outcome, replay, started)
	if outcome.IsSuccess() {
		return response, nil
	}
	return response, outcome
}

func (c *HTTPClient) observe(httpReq *http.Request, outcome *dto.Outcome, replay bool, started time.Time) {
	requestsTotal.WithLabelValues(httpReq.Method, string(outcome.Kind)).Inc()
	requestDuration.WithLabelValues(httpReq.Method).Observe(time.Since(started).Seconds())

	c.relay.Debug(relays.RlyRequest{
		Method:    httpReq.Method,
		URL:       httpReq.URL.Redacted(),
		Status:    outcome.StatusCode,
		Outcome:   string(outcome.Kind),
		RequestID: httpReq.Header.Get(HeaderRequestID),
		Replay:    replay,
	})
}

func (c *HTTPClient) Describe() dto.NetClient {
	return c.NetClient
}
