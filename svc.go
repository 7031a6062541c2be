package sessionnet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joy-dx/lockablemap"
	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/joy-dx/sessionnet/client/httpclient"
	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
)

// NetSvc owns the session, the refresh coordinator and the registered clients.
type NetSvc struct {
	cfg         *config.NetSvcConfig
	relay       relayDTO.RelayInterface
	clients     *lockablemap.LockableMap[string, dto.NetClientInterface]
	signal      *httpclient.SessionSignal
	muHydrate   sync.Mutex
	coordinator *httpclient.RefreshCoordinator
}

// ErrAlreadyHydrated guards the one-coordinator-per-service invariant.
var ErrAlreadyHydrated = errors.New("net service already hydrated")

func (s *NetSvc) RegisterClient(ref string, client dto.NetClientInterface) {
	s.clients.Set(ref, client)
}

func (s *NetSvc) client(ref string) (dto.NetClientInterface, bool) {
	c, err := s.clients.Get(ref)
	return c, err == nil
}

// SessionListener returns a channel signalled when the session ends and the
// user has to authenticate again.
func (s *NetSvc) SessionListener() (<-chan struct{}, func()) {
	return s.signal.Subscribe()
}

// Session returns the stored credential pair.
func (s *NetSvc) Session(ctx context.Context) (dto.Credentials, error) {
	if s.coordinator == nil {
		return dto.Credentials{}, dto.ErrSessionNotReady
	}
	return s.coordinator.Store().Get(ctx)
}

// SetSession stores a pair obtained by login or registration.
func (s *NetSvc) SetSession(ctx context.Context, creds dto.Credentials) error {
	if s.coordinator == nil {
		return dto.ErrSessionNotReady
	}
	if !creds.HasAccess() {
		return errors.New("set session: credential pair has no access token")
	}
	if err := s.coordinator.Establish(ctx, creds); err != nil {
		return err
	}
	s.relay.Info(relays.RlyNetLog{Msg: "session established"})
	return nil
}

// Logout forgets the stored pair. It is a user action, so the
// session-invalidation signal is not raised.
func (s *NetSvc) Logout(ctx context.Context) error {
	if s.coordinator == nil {
		return dto.ErrSessionNotReady
	}
	if err := s.coordinator.Store().Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.relay.Info(relays.RlyNetLog{Msg: "session cleared"})
	return nil
}
