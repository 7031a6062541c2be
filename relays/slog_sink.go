package relays

import (
	"context"
	"log/slog"

	"github.com/joy-dx/relay"
	relayConfig "github.com/joy-dx/relay/config"
	relayDTO "github.com/joy-dx/relay/dto"
)

const SlogSinkRef = "slog"

// ProvideRelay returns the process wide relay service. It has no sinks until
// the host registers one, so a library user that never does stays silent.
func ProvideRelay() *relay.RelaySvc {
	cfg := relayConfig.DefaultRelaySvcConfig()
	return relay.ProvideRelaySvc(&cfg)
}

// SlogSink writes relay events to a caller supplied slog.Logger, so any
// handler (tint in the CLI) decides the output format.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Ref() string { return SlogSinkRef }

func (s *SlogSink) Debug(e relayDTO.RelayEventInterface) { s.log(slog.LevelDebug, e) }
func (s *SlogSink) Info(e relayDTO.RelayEventInterface)  { s.log(slog.LevelInfo, e) }
func (s *SlogSink) Warn(e relayDTO.RelayEventInterface)  { s.log(slog.LevelWarn, e) }
func (s *SlogSink) Error(e relayDTO.RelayEventInterface) { s.log(slog.LevelError, e) }

func (s *SlogSink) Fatal(e relayDTO.RelayEventInterface) {
	s.log(slog.LevelError, e, slog.Bool("fatal", true))
}

func (s *SlogSink) Meta(e relayDTO.RelayEventInterface) { s.log(slog.LevelDebug, e) }

func (s *SlogSink) log(level slog.Level, e relayDTO.RelayEventInterface, extra ...slog.Attr) {
	if e == nil {
		return
	}
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}
	attrs := []slog.Attr{
		slog.String("channel", string(e.RelayChannel())),
		slog.String("type", string(e.RelayType())),
	}
	attrs = append(attrs, e.ToSlog()...)
	attrs = append(attrs, extra...)
	s.logger.LogAttrs(ctx, level, e.Message(), attrs...)
}
