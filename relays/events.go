package relays

import (
	"log/slog"

	relayDTO "github.com/joy-dx/relay/dto"
)

const RelayNetChannel relayDTO.EventChannel = "net"

const (
	RlyNetLogRef   relayDTO.EventRef = "net.log"
	RlyRequestRef  relayDTO.EventRef = "net.request"
	RlyRefreshRef  relayDTO.EventRef = "net.refresh"
	RlyWaiterRef   relayDTO.EventRef = "net.refresh.waiter"
	RlySessionRef  relayDTO.EventRef = "net.session"
	RlyRefreshOK   = "succeeded"
	RlyRefreshFail = "failed"
)

// RlyNetLog free form service message
type RlyNetLog struct {
	Msg string `json:"msg"`
}

func (e RlyNetLog) RelayChannel() relayDTO.EventChannel { return RelayNetChannel }
func (e RlyNetLog) RelayType() relayDTO.EventRef        { return RlyNetLogRef }
func (e RlyNetLog) Message() string                     { return e.Msg }
func (e RlyNetLog) ToSlog() []slog.Attr                 { return nil }

// RlyRequest reports one dispatched request and its classified outcome
type RlyRequest struct {
	Method    string `json:"method"`
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id,omitempty"`
	Replay    bool   `json:"replay,omitempty"`
}

func (e RlyRequest) RelayChannel() relayDTO.EventChannel { return RelayNetChannel }
func (e RlyRequest) RelayType() relayDTO.EventRef        { return RlyRequestRef }
func (e RlyRequest) Message() string                     { return e.Method + " " + e.URL }
func (e RlyRequest) ToSlog() []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("status", e.Status),
		slog.String("outcome", e.Outcome),
	}
	if e.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", e.RequestID))
	}
	if e.Replay {
		attrs = append(attrs, slog.Bool("replay", true))
	}
	return attrs
}

// RlyRefresh reports refresh cycle transitions
type RlyRefresh struct {
	Status  string `json:"status"`
	Waiters int    `json:"waiters"`
	Msg     string `json:"msg"`
	Err     error  `json:"-"`
}

func (e RlyRefresh) RelayChannel() relayDTO.EventChannel { return RelayNetChannel }
func (e RlyRefresh) RelayType() relayDTO.EventRef        { return RlyRefreshRef }
func (e RlyRefresh) Message() string                     { return e.Msg }
func (e RlyRefresh) ToSlog() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", e.Status),
		slog.Int("waiters", e.Waiters),
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	return attrs
}

// RlyWaiter reports a request queued behind, or released by, a refresh
type RlyWaiter struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Resolved bool   `json:"resolved"`
	Failed   bool   `json:"failed,omitempty"`
}

func (e RlyWaiter) RelayChannel() relayDTO.EventChannel { return RelayNetChannel }
func (e RlyWaiter) RelayType() relayDTO.EventRef        { return RlyWaiterRef }
func (e RlyWaiter) Message() string {
	if e.Resolved {
		return "refresh waiter resolved"
	}
	return "refresh waiter queued"
}
func (e RlyWaiter) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("id", e.ID),
		slog.Int("position", e.Position),
		slog.Bool("failed", e.Failed),
	}
}

// RlySession reports the session ending
type RlySession struct {
	Reason string `json:"reason"`
}

func (e RlySession) RelayChannel() relayDTO.EventChannel { return RelayNetChannel }
func (e RlySession) RelayType() relayDTO.EventRef        { return RlySessionRef }
func (e RlySession) Message() string                     { return "session invalidated" }
func (e RlySession) ToSlog() []slog.Attr {
	return []slog.Attr{slog.String("reason", e.Reason)}
}
