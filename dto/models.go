package dto

import (
	"net/http"
	"time"
)

const NET_DEFAULT_CLIENT_REF = "net.client.default"

type NetClientType string

// NetClient describes a registered client for state reporting.
type NetClient struct {
	Name        string        `json:"name" yaml:"name"`
	Ref         string        `json:"ref" yaml:"ref"`
	ClientType  NetClientType `json:"client_type" yaml:"client_type"`
	Description string        `json:"description" yaml:"description"`
}

type NetState struct {
	BaseURL        string        `json:"net_base_url,omitempty" yaml:"net_base_url,omitempty"`
	RefreshPath    string        `json:"net_refresh_path,omitempty" yaml:"net_refresh_path,omitempty"`
	ExtraHeaders   ExtraHeaders  `json:"net_extra_headers,omitempty" yaml:"net_extra_headers,omitempty"`
	RequestTimeout time.Duration `json:"net_request_timeout,omitempty" yaml:"net_request_timeout,omitempty"`
	RefreshTimeout time.Duration `json:"net_refresh_timeout,omitempty" yaml:"net_refresh_timeout,omitempty"`
	UserAgent      string        `json:"net_user_agent,omitempty" yaml:"net_user_agent,omitempty"`
	SessionBackend string        `json:"net_session_backend,omitempty" yaml:"net_session_backend,omitempty"`
	Clients        []NetClient   `json:"net_clients,omitempty" yaml:"net_clients,omitempty"`
	// Authenticated true when an access token is currently stored
	Authenticated bool         `json:"net_authenticated" yaml:"net_authenticated"`
	Refresh       RefreshStats `json:"net_refresh" yaml:"net_refresh"`
}

// RefreshStats is a point-in-time view of the refresh coordinator.
type RefreshStats struct {
	Refreshing    bool      `json:"refreshing" yaml:"refreshing"`
	Waiting       int       `json:"waiting" yaml:"waiting"`
	Refreshes     int64     `json:"refreshes" yaml:"refreshes"`
	Failures      int64     `json:"failures" yaml:"failures"`
	Invalidations int       `json:"invalidations" yaml:"invalidations"`
	LastRefresh   time.Time `json:"last_refresh,omitempty" yaml:"last_refresh,omitempty"`
}

type Response struct {
	StatusCode int
	Headers    http.Header
	// As well as casting to ResponseObject if set, return as byes
	Body []byte
}
