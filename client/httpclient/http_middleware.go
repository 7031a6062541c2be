package httpclient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/relays"
)

const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware tags each attempt with a fresh X-Request-ID unless one
// is set. A replay after refresh gets a new id.
func RequestIDMiddleware() Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		if r.Header(HeaderRequestID) == "" {
			r.SetHeader(HeaderRequestID, uuid.NewString())
		}
		return nil
	}
}

// LoggingMiddleware emits one debug line per attempt. Register it after
// RequestIDMiddleware so the id is included.
func LoggingMiddleware(relay relayDTO.RelayInterface) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		target := r.URL
		if target == "" {
			target = r.Path
		}
		msg := fmt.Sprintf("[HTTP] %s %s", r.Method, target)
		if id := r.Header(HeaderRequestID); id != "" {
			msg += " id=" + id
		}
		if r.Public {
			msg += " public"
		}
		relay.Debug(relays.RlyNetLog{Msg: msg})
		return nil
	}
}
