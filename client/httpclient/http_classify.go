package httpclient

import (
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/joy-dx/sessionnet/dto"
)

// Attempt is what one dispatched request produced.
type Attempt struct {
	Path       string
	StatusCode int
	Body       []byte
	// Err set when no response arrived
	Err error
}

// Classify maps an attempt to its Outcome. refreshPath is the URL path of the
// refresh endpoint; any failure there is terminal and never routed back into a
// refresh.
func Classify(refreshPath string, a Attempt) *dto.Outcome {
	out := &dto.Outcome{
		Path:       a.Path,
		StatusCode: a.StatusCode,
		Body:       a.Body,
		Err:        a.Err,
	}

	failed := a.Err != nil || a.StatusCode < 100 || a.StatusCode >= 400
	if !failed {
		out.Kind = dto.OutcomeSuccess
		return out
	}
	if samePath(refreshPath, a.Path) {
		out.Kind = dto.OutcomeRefreshFailed
		out.Messages = detailMessages(a.Body)
		return out
	}
	if a.Err != nil {
		out.Kind = dto.OutcomeNetworkError
		return out
	}

	if a.StatusCode == http.StatusBadRequest {
		out.Kind = dto.OutcomeClientValidationError
		out.Messages = FlattenMessages(a.Body)
		return out
	}

	switch a.StatusCode {
	case http.StatusUnauthorized:
		out.Kind = dto.OutcomeAuthExpired
	case http.StatusForbidden:
		out.Kind = dto.OutcomeForbidden
	case http.StatusNotFound:
		out.Kind = dto.OutcomeNotFound
	default:
		out.Kind = dto.OutcomeServerError
	}
	out.Messages = detailMessages(a.Body)
	return out
}

// FlattenMessages collects every scalar value of a JSON object body in
// document order, descending into nested arrays and objects. Any other body
// yields nil.
func FlattenMessages(body []byte) []string {
	value, dataType, _, err := jsonparser.Get(body)
	if err != nil || dataType != jsonparser.Object {
		return nil
	}
	var out []string
	collect(value, dataType, &out)
	return out
}

func collect(value []byte, dataType jsonparser.ValueType, out *[]string) {
	switch dataType {
	case jsonparser.String:
		if s, err := jsonparser.ParseString(value); err == nil {
			*out = append(*out, s)
		}
	case jsonparser.Number, jsonparser.Boolean:
		*out = append(*out, string(value))
	case jsonparser.Array:
		_, _ = jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
			collect(v, t, out)
		})
	case jsonparser.Object:
		_ = jsonparser.ObjectEach(value, func(_ []byte, v []byte, t jsonparser.ValueType, _ int) error {
			collect(v, t, out)
			return nil
		})
	}
}

var detailKeys = []string{"detail", "error", "message"}

// detailMessages picks the conventional single-message field from an error body.
func detailMessages(body []byte) []string {
	for _, key := range detailKeys {
		if s, err := jsonparser.GetString(body, key); err == nil && s != "" {
			return []string{s}
		}
	}
	return nil
}
