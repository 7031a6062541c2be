package httpclient

import (
	"net/http"

	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/utils"
)

// -----------------------------------------------------------------------------
// HEADER DECORATION
// -----------------------------------------------------------------------------

// decorate applies headers in increasing precedence: user agent, service extra
// headers, request headers, then the bearer credential. An empty pair leaves
// the request public.
func (c *HTTPClient) decorate(httpReq *http.Request, reqCfg *HTTPRequest, creds dto.Credentials) {
	headers := utils.LayerHeaders(
		map[string]string{"User-Agent": c.netCfg.UserAgent},
		c.netCfg.ExtraHeaders,
		reqCfg.Headers,
	)

	switch {
	case reqCfg.IsBinary():
		// multipart boundary or the raw payload's own type, never JSON
		headers.Set("Content-Type", reqCfg.ContentType)
	case reqCfg.ContentType != "" && headers.Get("Content-Type") == "":
		headers.Set("Content-Type", reqCfg.ContentType)
	}
	httpReq.Header = headers

	if creds.HasAccess() && !reqCfg.Public {
		creds.OAuthToken().SetAuthHeader(httpReq)
	}
}
