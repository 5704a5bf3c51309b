package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyAuth stores the *authRequest of the request
const ContextKeyAuth ContextKey = "auth"

// WithSession opens the browser session and binds the authentication service to
// the request. Used for HTML/HTMX routes.
func (s *Server) WithSession(next http.HandlerFunc) http.HandlerFunc {
	return s.withSession(next, false)
}

// WithAPISession is WithSession for JSON routes: a required login is answered
// with 401 instead of a redirect.
func (s *Server) WithAPISession(next http.HandlerFunc) http.HandlerFunc {
	return s.withSession(next, true)
}

func (s *Server) withSession(next http.HandlerFunc, api bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar, err := s.newAuthRequest(w, r, api)
		if err != nil {
			log.Err(err).Str("path", r.URL.Path).Msg("failed to open session")
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyAuth, ar)
		next(w, r.WithContext(ctx))
	}
}

// RequireAuth runs the route guard. A denied request has already been answered
// with a navigation to the login page. A pending callback is left to the page;
// JSON routes have no callback to finish and deny it.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		if ar == nil {
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		switch auth.NewGuard(ar.svc).Evaluate(r.Context()) {
		case auth.DenyRedirect:
			return
		case auth.AllowPendingCallback:
			if ar.api {
				ar.svc.Location().Navigate(auth.LoginPath)
				return
			}
		}
		next(w, r)
	}
}

func authFrom(r *http.Request) *authRequest {
	ar, _ := r.Context().Value(ContextKeyAuth).(*authRequest)
	return ar
}
