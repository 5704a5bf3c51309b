package server

import (
	"context"

	"github.com/rs/zerolog/log"
)

// InitialiseSystem warms the discovery cache so the first login does not pay for
// it. An unreachable realm is logged and retried on demand.
func (s *Server) InitialiseSystem(ctx context.Context) {
	if s.config.GetOfflineMode() {
		log.Info().Msg("offline mode enabled for development hosts")
	}
	issuer := s.config.GetProviderConfig().IssuerURL()
	ctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()
	if _, err := s.providers.Get(ctx, issuer); err != nil {
		log.Warn().Err(err).Str("issuer", issuer).Msg("identity provider discovery failed")
		return
	}
	log.Info().Str("issuer", issuer).Msg("identity provider discovered")
}
