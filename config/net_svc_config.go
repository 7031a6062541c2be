package config

import (
	"time"

	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
)

type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionFile   SessionBackend = "file"
	SessionRedis  SessionBackend = "redis"
	SessionS3     SessionBackend = "s3"
)

const (
	DefaultRefreshPath    = "/auth/token/refresh/"
	DefaultRequestTimeout = 120 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultUserAgent      = "sessionnet/1.0"
	DefaultKeyPrefix      = "sessionnet"
)

// SessionConfig selects where the credential pair is persisted.
type SessionConfig struct {
	Backend   SessionBackend `json:"backend" yaml:"backend" validate:"omitempty,oneof=memory file redis s3"`
	KeyPrefix string         `json:"key_prefix" yaml:"key_prefix"`
	// FilePath JSON file holding the pair, backend file
	FilePath      string `json:"file_path" yaml:"file_path" validate:"required_if=Backend file"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisPassword string `json:"-" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" validate:"gte=0"`
	S3Bucket      string `json:"s3_bucket" yaml:"s3_bucket" validate:"required_if=Backend s3"`
	S3Region      string `json:"s3_region" yaml:"s3_region"`
	S3Endpoint    string `json:"s3_endpoint" yaml:"s3_endpoint" validate:"omitempty,url"`
	S3PathStyle   bool   `json:"s3_path_style" yaml:"s3_path_style"`
}

type NetSvcConfig struct {
	BaseURL     string `json:"base_url" yaml:"base_url" validate:"required,url"`
	RefreshPath string `json:"refresh_path" yaml:"refresh_path" validate:"required,startswith=/"`
	// RequestTimeout is long on purpose: some endpoints run for tens of seconds
	RequestTimeout time.Duration           `json:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
	RefreshTimeout time.Duration           `json:"refresh_timeout" yaml:"refresh_timeout" validate:"gt=0"`
	UserAgent      string                  `json:"user_agent" yaml:"user_agent"`
	ExtraHeaders   dto.ExtraHeaders        `json:"extra_headers" yaml:"extra_headers"`
	Session        SessionConfig           `json:"session" yaml:"session"`
	MetricsAddr    string                  `json:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	LogLevel       string                  `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	relay          relayDTO.RelayInterface `json:"-" yaml:"-"`
	store          dto.SessionStore        `json:"-" yaml:"-"`
	authProvider   dto.AuthProvider        `json:"-" yaml:"-"`
}

func DefaultNetSvcConfig() NetSvcConfig {
	return NetSvcConfig{
		RefreshPath:    DefaultRefreshPath,
		RequestTimeout: DefaultRequestTimeout,
		RefreshTimeout: DefaultRefreshTimeout,
		UserAgent:      DefaultUserAgent,
		ExtraHeaders:   dto.ExtraHeaders{},
		Session: SessionConfig{
			Backend:   SessionMemory,
			KeyPrefix: DefaultKeyPrefix,
		},
		LogLevel: "info",
	}
}

func (c *NetSvcConfig) Relay() relayDTO.RelayInterface {
	if c.relay == nil {
		c.relay = relays.ProvideRelay()
	}
	return c.relay
}

// SessionStore returns an injected store, nil when one should be built from Session.
func (c *NetSvcConfig) SessionStore() dto.SessionStore {
	return c.store
}

// AuthProvider returns an injected refresher, nil for the REST refresh endpoint.
func (c *NetSvcConfig) AuthProvider() dto.AuthProvider {
	return c.authProvider
}

func (c *NetSvcConfig) WithRelay(relay relayDTO.RelayInterface) *NetSvcConfig {
	c.relay = relay
	return c
}

func (c *NetSvcConfig) WithSessionStore(store dto.SessionStore) *NetSvcConfig {
	c.store = store
	return c
}

func (c *NetSvcConfig) WithAuthProvider(provider dto.AuthProvider) *NetSvcConfig {
	c.authProvider = provider
	return c
}

func (c *NetSvcConfig) WithBaseURL(url string) *NetSvcConfig {
	c.BaseURL = url
	return c
}

func (c *NetSvcConfig) WithRefreshPath(path string) *NetSvcConfig {
	c.RefreshPath = path
	return c
}

func (c *NetSvcConfig) WithRequestTimeout(d time.Duration) *NetSvcConfig {
	c.RequestTimeout = d
	return c
}

func (c *NetSvcConfig) WithRefreshTimeout(d time.Duration) *NetSvcConfig {
	c.RefreshTimeout = d
	return c
}

func (c *NetSvcConfig) WithUserAgent(agent string) *NetSvcConfig {
	c.UserAgent = agent
	return c
}

func (c *NetSvcConfig) WithExtraHeaders(headers dto.ExtraHeaders) *NetSvcConfig {
	c.ExtraHeaders = headers
	return c
}

func (c *NetSvcConfig) WithSession(session SessionConfig) *NetSvcConfig {
	c.Session = session
	return c
}
