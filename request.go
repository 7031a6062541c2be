package sessionnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joy-dx/sessionnet/client/httpclient"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/utils"
)

// Get target is a path relative to the base URL or an absolute URL.
func (s *NetSvc) Get(ctx context.Context, target string, withRetry bool) (dto.Response, error) {
	return s.send(ctx, http.MethodGet, target, nil, withRetry)
}

func (s *NetSvc) Post(ctx context.Context, target string, payload map[string]interface{}, withRetry bool) (dto.Response, error) {
	return s.send(ctx, http.MethodPost, target, payload, withRetry)
}

func (s *NetSvc) Put(ctx context.Context, target string, payload map[string]interface{}, withRetry bool) (dto.Response, error) {
	return s.send(ctx, http.MethodPut, target, payload, withRetry)
}

func (s *NetSvc) Delete(ctx context.Context, target string, withRetry bool) (dto.Response, error) {
	return s.send(ctx, http.MethodDelete, target, nil, withRetry)
}

// Upload posts fields as multipart/form-data; utils.FilePart values are sent as files.
func (s *NetSvc) Upload(ctx context.Context, target string, fields map[string]interface{}) (dto.Response, error) {
	httpRequestConfig := httpclient.DefaultHTTPRequestConfig()
	httpRequestConfig.WithTarget(target).
		WithMethod(http.MethodPost).
		WithMultipart(fields)
	cfg := dto.DefaultRequestConfig()
	cfg.WithReqConfig(&httpRequestConfig).
		WithTaskName("UPLOAD " + target)
	return s.RequestOnce(ctx, &cfg)
}

func (s *NetSvc) send(ctx context.Context, method, target string, payload map[string]interface{}, withRetry bool) (dto.Response, error) {
	httpRequestConfig := httpclient.DefaultHTTPRequestConfig()
	httpRequestConfig.WithTarget(target).
		WithMethod(method).
		WithBody(payload)
	cfg := dto.DefaultRequestConfig()
	cfg.WithReqConfig(&httpRequestConfig).
		WithTaskName(method + " " + target)

	if withRetry {
		return s.RequestWithRetry(ctx, &cfg)
	}
	return s.RequestOnce(ctx, &cfg)
}

// RequestWithRetry repeats transient failures: network errors and 5xx. Auth
// expiry is never retried here; the client already refreshed and replayed.
func (s *NetSvc) RequestWithRetry(ctx context.Context, cfg *dto.RequestConfig) (dto.Response, error) {
	if cfg == nil {
		return dto.Response{}, errors.New("nil RequestConfig provided")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Delay == nil {
		cfg.Delay = utils.ConstantDelay{Period: time.Second}
	}

	var (
		resp dto.Response
		err  error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if waitErr := cfg.Delay.Wait(ctx, attempt); waitErr != nil {
				return resp, fmt.Errorf("retry %s abandoned after %d attempts: %w", cfg.TaskName, attempt, err)
			}
		}

		resp, err = s.RequestOnce(ctx, cfg)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return resp, err
		}
	}

	return resp, fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries+1, err)
}

func isRetryable(err error) bool {
	o, ok := dto.AsOutcome(err)
	if !ok {
		return false
	}
	switch o.Kind {
	case dto.OutcomeNetworkError:
		return utils.IsTemporaryErr(o.Err)
	case dto.OutcomeServerError:
		return o.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// RequestOnce returns the response alongside any classified failure so callers
// can still read error bodies.
func (s *NetSvc) RequestOnce(ctx context.Context, cfg *dto.RequestConfig) (dto.Response, error) {
	if cfg == nil {
		return dto.Response{}, errors.New("nil RequestConfig provided")
	}

	if cfg.ClientRef == "" {
		return dto.Response{}, errors.New("nil ClientRef provided")
	}

	if cfg.ReqConfig == nil {
		return dto.Response{}, dto.ErrNilReqConfig
	}

	netClient, isOK := s.client(cfg.ClientRef)
	if !isOK {
		return dto.Response{}, fmt.Errorf("client not found: %s", cfg.ClientRef)
	}

	// Sanity check that the req config matches the client type to avoid later casting confusion
	if netClient.Type() != cfg.ReqConfig.Ref() {
		return dto.Response{}, fmt.Errorf(
			"client type mismatch: client=%s(%s) req=%s",
			cfg.ClientRef,
			netClient.Type(),
			cfg.ReqConfig.Ref(),
		)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	response, err := netClient.ProcessRequest(ctx, cfg)
	if err != nil {
		return response, fmt.Errorf("perform request: %w", err)
	}

	if cfg.ResponseObject != nil && len(response.Body) > 0 {
		if unmarshalErr := json.Unmarshal(response.Body, cfg.ResponseObject); unmarshalErr != nil {
			return response, fmt.Errorf("unmarshal response: %w", unmarshalErr)
		}
	}

	return response, nil
}
