package dto

import (
	"context"
)

type NetInterface interface {
	Hydrate(ctx context.Context) error
	State() *NetState
	Get(ctx context.Context, target string, withRetry bool) (Response, error)
	Post(ctx context.Context, target string, payload map[string]interface{}, withRetry bool) (Response, error)
	Put(ctx context.Context, target string, payload map[string]interface{}, withRetry bool) (Response, error)
	Delete(ctx context.Context, target string, withRetry bool) (Response, error)
	Upload(ctx context.Context, target string, fields map[string]interface{}) (Response, error)
	RegisterClient(ref string, client NetClientInterface)
	RequestOnce(ctx context.Context, cfg *RequestConfig) (Response, error)
	RequestWithRetry(ctx context.Context, cfg *RequestConfig) (Response, error)
	Session(ctx context.Context) (Credentials, error)
	SetSession(ctx context.Context, creds Credentials) error
	Logout(ctx context.Context) error
	SessionListener() (<-chan struct{}, func())
}

// SessionStore holds the current credential pair.
// Implementations must write both logical keys together: a reader never
// observes a new access token next to a stale refresh token.
type SessionStore interface {
	Get(ctx context.Context) (Credentials, error)
	Set(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// AuthProvider exchanges a refresh credential for a new credential pair.
// The returned pair may omit RefreshToken when the backend does not rotate it.
type AuthProvider interface {
	Refresh(ctx context.Context, old Credentials) (Credentials, error)
}

// NetClientInterface abstracts a transport client registered on the service.
type NetClientInterface interface {
	Ref() string
	Type() NetClientType
	ProcessRequest(ctx context.Context, cfg *RequestConfig) (Response, error)
}
