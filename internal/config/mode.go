package config

import (
	"net"
	"strings"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// ActiveConfig is either Offline or Live. Callers switch on the concrete type.
type ActiveConfig interface {
	Mode() string
	isActiveConfig()
}

// Offline means no identity provider is contacted; the session is the mock user.
type Offline struct {
	MockUser MockUser
}

// Live carries the identity provider settings.
type Live struct {
	Provider ProviderConfig
}

func (Offline) Mode() string  { return ModeDevelopment }
func (Offline) isActiveConfig() {}

func (Live) Mode() string  { return ModeProduction }
func (Live) isActiveConfig() {}

// IsDevelopment reports whether host is localhost, the IPv4 loopback or a "dev" host.
func IsDevelopment(host string) bool {
	h := hostname(host)
	return h == "localhost" || h == "127.0.0.1" || strings.Contains(h, "dev")
}

// Resolve decides the mode for a request made to host. It is pure and is called
// afresh by every consumer.
func Resolve(kc KeycloakConfig, host string) ActiveConfig {
	if IsDevelopment(host) && kc.GetOfflineMode() {
		return Offline{MockUser: kc.GetOfflineUser()}
	}
	return Live{Provider: kc.GetProviderConfig()}
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}
