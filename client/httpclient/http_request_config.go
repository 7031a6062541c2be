package httpclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/utils"
)

// HTTPRequestConfig is immutable input (safe to reuse). A replay after a
// refresh rebuilds the request from it, so bodies are never consumed twice.
type HTTPRequestConfig struct {
	Method string `json:"method" yaml:"method"`
	// URL absolute target, takes precedence over Path
	URL string `json:"url" yaml:"url"`
	// Path relative to the client base URL
	Path string                 `json:"path" yaml:"path"`
	Body map[string]interface{} `json:"body" yaml:"body"`
	// BodyType application/json, application/x-www-form-urlencoded, multipart/form-data
	BodyType string            `json:"body_type" yaml:"body_type"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
	// RawBody binary payload sent as is with RawContentType
	RawBody        []byte `json:"-" yaml:"-"`
	RawContentType string `json:"raw_content_type" yaml:"raw_content_type"`
	// Public requests carry no credential and never trigger a refresh
	Public bool `json:"public" yaml:"public"`
}

func DefaultHTTPRequestConfig() HTTPRequestConfig {
	return HTTPRequestConfig{
		Method:   http.MethodGet,
		BodyType: utils.ContentTypeJSON,
		Headers:  make(map[string]string),
	}
}

func (c *HTTPRequestConfig) Ref() dto.NetClientType {
	return NetClientHTTPRef
}

func (c *HTTPRequestConfig) WithMethod(method string) *HTTPRequestConfig {
	c.Method = method
	return c
}
func (c *HTTPRequestConfig) WithBody(body map[string]interface{}) *HTTPRequestConfig {
	c.Body = body
	return c
}
func (c *HTTPRequestConfig) WithHeaders(headers map[string]string) *HTTPRequestConfig {
	c.Headers = headers
	return c
}
func (c *HTTPRequestConfig) WithURL(url string) *HTTPRequestConfig {
	c.URL = url
	return c
}
func (c *HTTPRequestConfig) WithPath(path string) *HTTPRequestConfig {
	c.Path = path
	return c
}

// WithTarget accepts either an absolute URL or a path relative to the base URL.
func (c *HTTPRequestConfig) WithTarget(target string) *HTTPRequestConfig {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return c.WithURL(target)
	}
	return c.WithPath(target)
}

// WithMultipart sends fields as multipart/form-data; utils.FilePart values become file parts.
func (c *HTTPRequestConfig) WithMultipart(fields map[string]interface{}) *HTTPRequestConfig {
	c.Body = fields
	c.BodyType = utils.ContentTypeMultipart
	return c
}

func (c *HTTPRequestConfig) WithRawBody(data []byte, contentType string) *HTTPRequestConfig {
	c.RawBody = data
	c.RawContentType = contentType
	return c
}

func (c *HTTPRequestConfig) WithPublic(public bool) *HTTPRequestConfig {
	c.Public = public
	return c
}

// NewRequest creates a per-call mutable request object.
// The config is never mutated, so a replay rebuilds the exact same request.
func (c *HTTPRequestConfig) NewRequest(ctx context.Context) (any, error) {
	r := &HTTPRequest{
		Method:   c.Method,
		URL:      c.URL,
		Path:     c.Path,
		BodyType: c.BodyType,
		Public:   c.Public,
		Headers:  make(map[string]string, len(c.Headers)),
	}
	for k, v := range c.Headers {
		r.Headers[k] = v
	}
	if c.Body != nil {
		r.Body = make(map[string]any, len(c.Body))
		for k, v := range c.Body {
			r.Body[k] = v
		}
	}
	if c.RawBody != nil {
		r.BodyBytes = c.RawBody
		r.ContentType = c.RawContentType
		r.binary = true
	}
	return r, nil
}

// HTTPRequest is per-call mutable state.
type HTTPRequest struct {
	Method   string
	URL      string
	Path     string
	Body     map[string]any
	BodyType string
	Headers  map[string]string
	Public   bool
	// Finalized wire body (deterministic for tests and retries)
	BodyBytes   []byte
	ContentType string
	binary      bool
}

func (r *HTTPRequest) ClientType() dto.NetClientType { return NetClientHTTPRef }

func (r *HTTPRequest) SetHeader(k, v string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[k] = v
}

func (r *HTTPRequest) Header(k string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[k]
}

// IsBinary reports a raw or multipart payload whose content type must not be JSON.
func (r *HTTPRequest) IsBinary() bool {
	return r.binary || strings.EqualFold(r.BodyType, utils.ContentTypeMultipart)
}
