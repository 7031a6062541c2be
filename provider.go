package sessionnet

import (
	"sync"

	"github.com/joy-dx/lockablemap"
	"github.com/joy-dx/sessionnet/client/httpclient"
	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/joy-dx/sessionnet/relays"
)

var (
	service     *NetSvc
	serviceOnce sync.Once
)

// ProvideNetSvc returns the process wide service. One coordinator per process
// is what keeps refresh single-flight across every client.
func ProvideNetSvc(cfg *config.NetSvcConfig) *NetSvc {
	serviceOnce.Do(func() {
		service = NewNetSvc(cfg)
		cfg.Relay().Debug(relays.RlyNetLog{Msg: "Net service started"})
	})
	return service
}

// NewNetSvc builds an unshared service; most callers want ProvideNetSvc.
func NewNetSvc(cfg *config.NetSvcConfig) *NetSvc {
	return &NetSvc{
		cfg:     cfg,
		relay:   cfg.Relay(),
		signal:  httpclient.NewSessionSignal(),
		clients: lockablemap.NewLockableMap[string, dto.NetClientInterface](),
	}
}
