package sessionnet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/joy-dx/sessionnet/client/httpclient"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
	"github.com/joy-dx/sessionnet/session"
)

func (s *NetSvc) State() *dto.NetState {
	state := &dto.NetState{
		BaseURL:        s.cfg.BaseURL,
		RefreshPath:    s.cfg.RefreshPath,
		ExtraHeaders:   s.cfg.ExtraHeaders,
		RequestTimeout: s.cfg.RequestTimeout,
		RefreshTimeout: s.cfg.RefreshTimeout,
		UserAgent:      s.cfg.UserAgent,
		SessionBackend: string(s.cfg.Session.Backend),
	}

	for _, c := range s.clients.GetAllSlice() {
		if d, ok := c.(interface{ Describe() dto.NetClient }); ok {
			state.Clients = append(state.Clients, d.Describe())
			continue
		}
		state.Clients = append(state.Clients, dto.NetClient{Ref: c.Ref(), ClientType: c.Type()})
	}
	sort.Slice(state.Clients, func(i, j int) bool { return state.Clients[i].Ref < state.Clients[j].Ref })

	if s.coordinator != nil {
		state.Refresh = s.coordinator.Stats()
		if creds, err := s.coordinator.Store().Get(context.Background()); err == nil {
			state.Authenticated = creds.HasAccess()
		}
	}
	return state
}

// Hydrate builds the session store, refresher, coordinator and default client.
// It succeeds once per service; clients built earlier keep that coordinator.
func (s *NetSvc) Hydrate(ctx context.Context) error {
	s.muHydrate.Lock()
	defer s.muHydrate.Unlock()
	if s.coordinator != nil {
		return ErrAlreadyHydrated
	}
	if s.cfg == nil {
		return errors.New("no net config")
	}
	if s.relay == nil {
		return errors.New("no relay implementation")
	}

	store := s.cfg.SessionStore()
	if store == nil {
		built, err := session.New(ctx, s.cfg.Session)
		if err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		store = built
	}

	provider := s.cfg.AuthProvider()
	if provider == nil {
		provider = httpclient.NewTokenRefresher(s.cfg)
	}

	s.coordinator = httpclient.NewRefreshCoordinator(store, provider, s.signal, s.relay,
		httpclient.WithRefreshTimeout(s.cfg.RefreshTimeout),
	)

	defaultClientCfg := httpclient.DefaultHTTPClientConfig()
	defaultClientCfg.WithCoordinator(s.coordinator).
		WithMiddleware(httpclient.RequestIDMiddleware(), httpclient.LoggingMiddleware(s.relay))
	defaultClient := httpclient.NewHTTPClient(dto.NET_DEFAULT_CLIENT_REF, s.cfg, &defaultClientCfg)
	s.RegisterClient(dto.NET_DEFAULT_CLIENT_REF, defaultClient)

	s.relay.Info(relays.RlyNetLog{Msg: fmt.Sprintf("Net service hydrated, session backend %s", s.cfg.Session.Backend)})
	return nil
}

// NewClient builds an HTTP client sharing the service coordinator, for a
// second API host for example. It is not registered.
func (s *NetSvc) NewClient(ref string, cfg *httpclient.HTTPClientConfig) (*httpclient.HTTPClient, error) {
	if s.coordinator == nil {
		return nil, dto.ErrSessionNotReady
	}
	if cfg.Coordinator == nil {
		cfg.WithCoordinator(s.coordinator)
	}
	return httpclient.NewHTTPClient(ref, s.cfg, cfg), nil
}
