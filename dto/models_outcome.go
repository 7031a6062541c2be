package dto

import (
	"errors"
	"fmt"
)

type OutcomeKind string

const (
	OutcomeSuccess               OutcomeKind = "success"
	OutcomeAuthExpired           OutcomeKind = "auth_expired"
	OutcomeForbidden             OutcomeKind = "forbidden"
	OutcomeNotFound              OutcomeKind = "not_found"
	OutcomeServerError           OutcomeKind = "server_error"
	OutcomeClientValidationError OutcomeKind = "client_validation_error"
	OutcomeNetworkError          OutcomeKind = "network_error"
	OutcomeRefreshFailed         OutcomeKind = "refresh_failed"
)

var (
	ErrAuthExpired     = errors.New("auth expired")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrServerError     = errors.New("server error")
	ErrValidation      = errors.New("client validation error")
	ErrNetwork         = errors.New("network error")
	ErrRefreshFailed   = errors.New("refresh failed")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrSessionNotReady = errors.New("session store not configured")
)

var outcomeSentinels = map[OutcomeKind]error{
	OutcomeAuthExpired:           ErrAuthExpired,
	OutcomeForbidden:             ErrForbidden,
	OutcomeNotFound:              ErrNotFound,
	OutcomeServerError:           ErrServerError,
	OutcomeClientValidationError: ErrValidation,
	OutcomeNetworkError:          ErrNetwork,
	OutcomeRefreshFailed:         ErrRefreshFailed,
}

// User facing messages per outcome kind.
const (
	MsgValidation   = "Invalid request parameters"
	MsgForbidden    = "You do not have permission to perform this action"
	MsgNotFound     = "The requested resource does not exist"
	MsgServerError  = "Server error, please try again later"
	MsgNetworkError = "Network error, please check your connection"
	MsgSession      = "Your session has expired, please sign in again"
	MsgRequest      = "Request failed"
)

// Outcome is the classified result of one completed request. Non-success
// outcomes are returned as errors; errors.Is matches the kind sentinels.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Path       string
	// Messages flattened from the error body in document order
	Messages []string
	Body     []byte
	// Err transport or refresh cause, if any
	Err error
}

func (o *Outcome) Error() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s %s: %v", o.Kind, o.Path, o.Err)
	case o.Headline() != "":
		return fmt.Sprintf("%s %s (%d): %s", o.Kind, o.Path, o.StatusCode, o.Headline())
	default:
		return fmt.Sprintf("%s %s (%d)", o.Kind, o.Path, o.StatusCode)
	}
}

func (o *Outcome) Unwrap() error {
	return o.Err
}

func (o *Outcome) Is(target error) bool {
	sentinel, ok := outcomeSentinels[o.Kind]
	return ok && sentinel == target
}

// Headline is the first message found in the error body.
func (o *Outcome) Headline() string {
	if len(o.Messages) == 0 {
		return ""
	}
	return o.Messages[0]
}

func (o *Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// UserMessage maps the outcome to the single message shown to a user.
func (o *Outcome) UserMessage() string {
	switch o.Kind {
	case OutcomeSuccess:
		return ""
	case OutcomeClientValidationError:
		if h := o.Headline(); h != "" {
			return h
		}
		return MsgValidation
	case OutcomeForbidden:
		return MsgForbidden
	case OutcomeNotFound:
		return MsgNotFound
	case OutcomeNetworkError:
		return MsgNetworkError
	case OutcomeAuthExpired, OutcomeRefreshFailed:
		return MsgSession
	case OutcomeServerError:
		if o.StatusCode == 0 || o.StatusCode >= 500 {
			return MsgServerError
		}
		if h := o.Headline(); h != "" {
			return h
		}
		return MsgRequest
	default:
		return MsgRequest
	}
}

// AsOutcome extracts an Outcome from an error chain.
func AsOutcome(err error) (*Outcome, bool) {
	var o *Outcome
	if errors.As(err, &o) {
		return o, true
	}
	return nil, false
}

// UserMessage returns the user facing message for any request error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if o, ok := AsOutcome(err); ok {
		return o.UserMessage()
	}
	return MsgRequest
}
