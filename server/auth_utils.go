package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/jrsteele09/go-dashboard-gateway/session"
)

const (
	// sessionCookieName is the name of the cookie holding the session id
	sessionCookieName = "dashboard_session"
	// rememberMeCookieName carries the remember me choice across the provider redirect
	rememberMeCookieName = "remember_me"
)

// authRequest is the authentication view of one request: its location, its
// session and the service and flows bound to both.
type authRequest struct {
	loc   *location.HTTP
	store *session.Handle
	svc   *auth.Service
	flow  *auth.LoginFlow
	// api requests are answered with JSON, never with a page.
	api bool

	// forget stops session saves from reissuing the cookie during logout.
	forget bool
}

func (s *Server) newAuthRequest(w http.ResponseWriter, r *http.Request, api bool) (*authRequest, error) {
	httpLoc := location.NewHTTP(w, r)
	var loc location.Location = httpLoc
	if api {
		loc = &apiLocation{HTTP: httpLoc, w: w}
	}

	var sessionID string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		sessionID = cookie.Value
	}
	store, err := s.sessions.Open(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	ar := &authRequest{loc: httpLoc, store: store, api: api}
	store.OnSave(func(h *session.Handle) {
		if !ar.forget {
			setSessionCookie(w, r, h)
		}
	})

	sdk := keycloak.NewOIDCClient(s.config.GetProviderConfig(), s.providers, s.flows, store, loc)
	svc, err := auth.NewService(s.config, sdk, loc,
		auth.WithTransport(s.transport),
		auth.WithMetrics(s.metrics),
		auth.WithInitTimeout(s.initTimeout),
		auth.WithPublicHost(s.publicHost),
	)
	if err != nil {
		return nil, err
	}
	ar.svc = svc
	ar.flow = auth.NewLoginFlow(svc, store, auth.RememberMe(rememberMeFrom(r)))
	return ar, nil
}

// navigated reports whether the response was already written as a navigation.
func (ar *authRequest) navigated() bool {
	_, ok := ar.loc.Navigated()
	return ok
}

// replaceURL is the URL the rendered page must show in the address bar.
func (ar *authRequest) replaceURL() string {
	u, _ := ar.loc.Replaced()
	return u
}

// apiLocation answers navigations with 401 so JSON clients are not sent to an
// HTML page.
type apiLocation struct {
	*location.HTTP
	w    http.ResponseWriter
	done bool
}

func (l *apiLocation) Navigate(string) {
	if l.done {
		return
	}
	l.done = true
	writeJSONError(l.w, "unauthorized", "authentication required", http.StatusUnauthorized)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, h *session.Handle) {
	maxAge := 0
	if h.Get().RememberMe {
		maxAge = int(h.MaxAge().Seconds())
	}
	replaceCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    h.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) setRememberMeCookie(w http.ResponseWriter, r *http.Request, remember bool) {
	maxAge := -1
	if remember {
		maxAge = int(s.config.GetRememberMeAge().Seconds())
	}
	replaceCookie(w, &http.Cookie{
		Name:     rememberMeCookieName,
		Value:    "true",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{sessionCookieName, rememberMeCookieName} {
		replaceCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			HttpOnly: true,
			Secure:   getScheme(r) == "https",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// replaceCookie sets c, dropping an earlier Set-Cookie for the same name.
func replaceCookie(w http.ResponseWriter, c *http.Cookie) {
	prefix := c.Name + "="
	header := w.Header()
	kept := header["Set-Cookie"][:0]
	for _, v := range header["Set-Cookie"] {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		header.Del("Set-Cookie")
	} else {
		header["Set-Cookie"] = kept
	}
	http.SetCookie(w, c)
}

func rememberMeFrom(r *http.Request) bool {
	cookie, err := r.Cookie(rememberMeCookieName)
	return err == nil && cookie.Value == "true"
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if location.IsHTMX(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
