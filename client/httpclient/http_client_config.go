package httpclient

import (
	"context"

	"github.com/joy-dx/sessionnet/dto"
)

type Middleware func(ctx context.Context, req *HTTPRequest) error

type HTTPClientConfig struct {
	// BaseURL overrides the service base URL for this client
	BaseURL string
	// Store supplies the credential attached to each request. Falls back to the coordinator's store.
	Store dto.SessionStore
	// Coordinator handles auth expiry; nil lets AuthExpired reach the caller
	Coordinator *RefreshCoordinator
	Middlewares []Middleware
}

func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Middlewares: make([]Middleware, 0),
	}
}

func (c *HTTPClientConfig) WithBaseURL(url string) *HTTPClientConfig {
	c.BaseURL = url
	return c
}
func (c *HTTPClientConfig) WithStore(store dto.SessionStore) *HTTPClientConfig {
	c.Store = store
	return c
}
func (c *HTTPClientConfig) WithCoordinator(coordinator *RefreshCoordinator) *HTTPClientConfig {
	c.Coordinator = coordinator
	return c
}
func (c *HTTPClientConfig) WithMiddleware(m ...Middleware) *HTTPClientConfig {
	c.Middlewares = append(c.Middlewares, m...)
	return c
}

func (c *HTTPClientConfig) store() dto.SessionStore {
	if c.Store != nil {
		return c.Store
	}
	if c.Coordinator != nil {
		return c.Coordinator.Store()
	}
	return nil
}
