package httpclient

import (
	"fmt"
	"strings"

	"github.com/joy-dx/sessionnet/utils"
)

// FinalizeBody encodes the body once per attempt and settles the wire content
// type. Raw payloads pass through untouched and default to octet-stream.
// Multipart always wins over a preset type since the boundary lives in it.
func (r *HTTPRequest) FinalizeBody() error {
	if r.BodyBytes != nil {
		if r.binary && r.ContentType == "" {
			r.ContentType = utils.ContentTypeOctetStream
		}
		return nil
	}

	encoded, contentType, err := utils.PrepareBody(r.Body, r.BodyType)
	if err != nil {
		return fmt.Errorf("prepare %s body: %w", r.Method, err)
	}
	r.BodyBytes = encoded

	if strings.HasPrefix(contentType, utils.ContentTypeMultipart) {
		r.ContentType = contentType
		r.binary = true
		return nil
	}
	if r.ContentType == "" {
		r.ContentType = contentType
	}
	return nil
}
