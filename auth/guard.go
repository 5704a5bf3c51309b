package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
)

type GuardOutcome int

const (
	Allow GuardOutcome = iota
	DenyRedirect
	// AllowPendingCallback lets the page finish a provider redirect.
	AllowPendingCallback
)

func (o GuardOutcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DenyRedirect:
		return "deny_redirect"
	case AllowPendingCallback:
		return "allow_pending_callback"
	default:
		return fmt.Sprintf("GuardOutcome(%d)", int(o))
	}
}

// Guard decides whether a protected page may be entered. It reads the session
// through the service and never writes to it.
type Guard struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewGuard(svc *Service) *Guard {
	return &Guard{svc: svc, metrics: svc.metrics}
}

// Evaluate decides and, on denial, navigates to the login page.
func (g *Guard) Evaluate(ctx context.Context) GuardOutcome {
	outcome := g.decide(ctx)
	g.metrics.GuardOutcome(outcome.String())
	if outcome == DenyRedirect {
		g.svc.loc.Navigate(LoginPath)
	}
	return outcome
}

func (g *Guard) decide(ctx context.Context) (outcome GuardOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = DenyRedirect
		}
	}()

	switch g.svc.Mode().(type) {
	case config.Offline:
		return Allow
	case config.Live:
		if DetectCallback(g.svc.loc) {
			return AllowPendingCallback
		}
		if g.svc.Initialize(ctx) {
			return Allow
		}
		return DenyRedirect
	default:
		return DenyRedirect
	}
}
