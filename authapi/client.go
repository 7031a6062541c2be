// Package authapi wraps the account endpoints of the backend. Login and
// registration store the issued credential pair on the net service; every
// other call goes through the authenticated pipeline and returns its
// classified errors untouched, auth failures included.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/joy-dx/sessionnet/client/httpclient"
	"github.com/joy-dx/sessionnet/dto"
)

const (
	PathRegister      = "/auth/register/"
	PathLogin         = "/auth/login/"
	PathCurrentUser   = "/auth/me/"
	PathUpdateProfile = "/auth/me/update/"
	PathBecomeCreator = "/auth/creator/become/"
	PathVerifyCreator = "/auth/creator/verify/"
)

// ErrInvalidCredentials is returned by Login when the backend rejects the
// username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

type Client struct {
	net dto.NetInterface
}

func New(net dto.NetInterface) *Client {
	return &Client{net: net}
}

// Login authenticates and stores the returned pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	var out AuthResult
	_, err := c.do(ctx, http.MethodPost, PathLogin, map[string]interface{}{
		"username": req.Username,
		"password": req.Password,
	}, true, &out)
	if errors.Is(err, dto.ErrAuthExpired) {
		// a public 401 is a rejected login, not an expired session
		if o, ok := dto.AsOutcome(err); ok && o.Headline() != "" {
			return AuthResult{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, o.Headline())
		}
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	return out, c.establish(ctx, out)
}

// Register creates the account and stores the returned pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	var out AuthResult
	_, err := c.do(ctx, http.MethodPost, PathRegister, map[string]interface{}{
		"username":  req.Username,
		"email":     req.Email,
		"password":  req.Password,
		"password2": req.Password2,
	}, true, &out)
	if err != nil {
		return AuthResult{}, err
	}
	return out, c.establish(ctx, out)
}

func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var out User
	_, err := c.do(ctx, http.MethodGet, PathCurrentUser, nil, false, &out)
	return out, err
}

// UpdateProfile applies a partial update; only the given fields change.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]interface{}) (User, error) {
	var out User
	_, err := c.do(ctx, http.MethodPut, PathUpdateProfile, fields, false, &out)
	return out, err
}

func (c *Client) BecomeCreator(ctx context.Context) (CreatorResult, error) {
	var out CreatorResult
	resp, err := c.do(ctx, http.MethodPost, PathBecomeCreator, nil, false, &out)
	if err != nil {
		return decodeRejected(resp, err)
	}
	return out, nil
}

// VerifyCreator submits the answer to the creator question. A wrong answer
// comes back as a validation error together with the decoded result.
func (c *Client) VerifyCreator(ctx context.Context, answer string) (CreatorResult, error) {
	var out CreatorResult
	resp, err := c.do(ctx, http.MethodPost, PathVerifyCreator, map[string]interface{}{
		"answer": answer,
	}, false, &out)
	if err != nil {
		return decodeRejected(resp, err)
	}
	return out, nil
}

// Logout forgets the stored pair.
func (c *Client) Logout(ctx context.Context) error {
	return c.net.Logout(ctx)
}

func (c *Client) establish(ctx context.Context, out AuthResult) error {
	if !out.Tokens.HasAccess() {
		return errors.New("auth response carried no access token")
	}
	if err := c.net.SetSession(ctx, out.Tokens); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body map[string]interface{}, public bool, out any) (dto.Response, error) {
	reqCfg := httpclient.DefaultHTTPRequestConfig()
	reqCfg.WithMethod(method).
		WithPath(path).
		WithBody(body).
		WithPublic(public)
	cfg := dto.DefaultRequestConfig()
	cfg.WithReqConfig(&reqCfg).
		WithTaskName(method + " " + path).
		WithResponseObject(out)
	return c.net.RequestOnce(ctx, &cfg)
}

// decodeRejected keeps the structured body of a 400 creator response next to its error.
func decodeRejected(resp dto.Response, err error) (CreatorResult, error) {
	var out CreatorResult
	if errors.Is(err, dto.ErrValidation) && len(resp.Body) > 0 {
		_ = json.Unmarshal(resp.Body, &out)
	}
	return out, err
}
