package httpclient

import (
	"net/url"
	"strings"
)

func (c *HTTPClient) resolveURL(r *HTTPRequest) string {
	if r.URL != "" {
		return r.URL
	}
	return joinURL(c.baseURL, r.Path)
}

// joinURL appends path to base unless path is already absolute.
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// samePath compares two URL paths ignoring a trailing slash.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
