package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/utils"
	"golang.org/x/oauth2"
)

// maxRefreshBody caps how much of a refresh response is read.
const maxRefreshBody = 1 << 20

// TokenRefresher exchanges the refresh token at the REST refresh endpoint:
// POST {"refresh": "..."} answered by {"access": "...", "refresh"?: "..."}.
// It owns its HTTP client so refresh traffic never shares the request pipeline.
type TokenRefresher struct {
	endpoint  string
	client    *http.Client
	headers   dto.ExtraHeaders
	userAgent string
}

func NewTokenRefresher(netCfg *config.NetSvcConfig) *TokenRefresher {
	return &TokenRefresher{
		endpoint:  joinURL(netCfg.BaseURL, netCfg.RefreshPath),
		client:    newHTTPClient(netCfg.RefreshTimeout),
		headers:   netCfg.ExtraHeaders,
		userAgent: netCfg.UserAgent,
	}
}

func (t *TokenRefresher) Refresh(ctx context.Context, old dto.Credentials) (dto.Credentials, error) {
	if !old.HasRefresh() {
		return dto.Credentials{}, dto.ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh": old.RefreshToken})
	if err != nil {
		return dto.Credentials{}, fmt.Errorf("encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return dto.Credentials{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header = utils.LayerHeaders(
		map[string]string{"User-Agent": t.userAgent},
		t.headers,
		map[string]string{"Content-Type": utils.ContentTypeJSON},
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return dto.Credentials{}, Classify(req.URL.Path, Attempt{Path: req.URL.Path, Err: err})
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRefreshBody))
	if err != nil {
		return dto.Credentials{}, Classify(req.URL.Path, Attempt{Path: req.URL.Path, Err: fmt.Errorf("read body: %w", err)})
	}
	outcome := Classify(req.URL.Path, Attempt{Path: req.URL.Path, StatusCode: resp.StatusCode, Body: body})
	if !outcome.IsSuccess() {
		return dto.Credentials{}, outcome
	}
	// only a 2xx carries a new pair
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome.Kind = dto.OutcomeRefreshFailed
		return dto.Credentials{}, outcome
	}

	var issued dto.Credentials
	if err := json.Unmarshal(body, &issued); err != nil {
		return dto.Credentials{}, fmt.Errorf("decode refresh response: %w", err)
	}
	return issued, nil
}

// OAuth2Refresher performs a standard refresh_token grant for OAuth2 backends.
type OAuth2Refresher struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewOAuth2Refresher uses client for the token endpoint when non nil.
func NewOAuth2Refresher(cfg *oauth2.Config, client *http.Client) *OAuth2Refresher {
	return &OAuth2Refresher{cfg: cfg, client: client}
}

func (o *OAuth2Refresher) Refresh(ctx context.Context, old dto.Credentials) (dto.Credentials, error) {
	if !old.HasRefresh() {
		return dto.Credentials{}, dto.ErrNoRefreshToken
	}
	if o.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	}

	tok, err := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: old.RefreshToken}).Token()
	if err != nil {
		return dto.Credentials{}, fmt.Errorf("oauth2 refresh: %w", err)
	}
	return dto.Credentials{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}
