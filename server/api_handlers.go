package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/rs/zerolog/log"
)

type authStatusResponse struct {
	auth.Status
	Roles   []string              `json:"roles"`
	Profile *keycloak.UserProfile `json:"profile,omitempty"`
}

type refreshResponse struct {
	Refreshed bool                `json:"refreshed"`
	TokenInfo *keycloak.TokenInfo `json:"tokenInfo,omitempty"`
}

// AuthStatusHandler reports how the session is authenticated (GET /api/auth/status).
func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		state := ar.store.Get()
		writeJSON(w, http.StatusOK, authStatusResponse{
			Status:  ar.svc.AuthStatus(),
			Roles:   state.Roles,
			Profile: state.Profile,
		})
	}
}

// TokenInfoHandler returns the decoded access token, or null without one.
func (s *Server) TokenInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authFrom(r).svc.TokenInfo())
	}
}

// RefreshHandler refreshes the access token when it is about to expire.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		if err := ar.flow.RefreshSession(r.Context()); err != nil {
			log.Err(err).Str("session", ar.store.ID()).Msg("token refresh failed")
			writeJSONError(w, "refresh_failed", "the session could not be refreshed", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{Refreshed: true, TokenInfo: ar.svc.TokenInfo()})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
