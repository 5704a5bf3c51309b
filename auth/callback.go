package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/rs/zerolog/log"
)

// callbackMarkers are the query parameters Keycloak adds when redirecting back.
var callbackMarkers = []string{"code", "state", "session_state"}

// DetectCallback reports whether loc is the target of a provider redirect.
func DetectCallback(loc location.Location) bool {
	q := loc.URL().Query()
	for _, marker := range callbackMarkers {
		if q.Has(marker) {
			return true
		}
	}
	return false
}

type CallbackResult int

const (
	NoCallback CallbackResult = iota
	CallbackFailed
	CallbackSucceeded
)

func (r CallbackResult) String() string {
	switch r {
	case NoCallback:
		return "none"
	case CallbackFailed:
		return "failed"
	case CallbackSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("CallbackResult(%d)", int(r))
	}
}

// Reconciler completes a provider redirect that landed on the current page.
type Reconciler struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewReconciler(svc *Service) *Reconciler {
	return &Reconciler{svc: svc, metrics: svc.metrics}
}

func (r *Reconciler) Detect() bool {
	return DetectCallback(r.svc.loc)
}

// Complete checks whether the redirect left the session logged in and, if so,
// removes the markers from the visible URL without navigating.
func (r *Reconciler) Complete(ctx context.Context) (result CallbackResult) {
	if !r.Detect() {
		return NoCallback
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("callback handling panicked")
			result = CallbackFailed
		}
		r.metrics.Callback(result.String())
	}()

	if !r.svc.sdk.IsLoggedIn() {
		return CallbackFailed
	}
	loc := r.svc.loc
	loc.ReplaceState(withoutQuery(loc.URL()))
	return CallbackSucceeded
}
