package server

import (
	"net/http"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/rs/zerolog/log"
)

// SocialButton is one "Continue with ..." button of the login page.
type SocialButton struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName               string
	DevMode               bool
	ShowForm              bool
	Error                 string
	RememberMe            bool
	SocialProviders       []SocialButton
	ForgotPasswordEnabled bool
	ReplaceURL            string
}

// LoginPageUIHandler displays the login page (GET /login). A signed in user is
// sent on to the dashboard.
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		view := ar.flow.Activate(r.Context())
		if ar.navigated() {
			return
		}
		s.renderLogin(w, r, ar, view)
	}
}

// LoginSubmissionHandler starts a sign in with the realm's own login page
// (POST /auth/login).
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		rememberMe := formBool(r.FormValue("remember_me"))
		s.setRememberMeCookie(w, r, rememberMe)

		ar := authFrom(r)
		view := ar.flow.Login(r.Context(), rememberMe)
		if ar.navigated() {
			return
		}
		view.ShowForm = true
		s.renderLogin(w, r, ar, view)
	}
}

// ProviderLoginHandler starts a sign in through a social identity provider
// (POST /auth/login/{provider}).
func (s *Server) ProviderLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		view := ar.flow.LoginWithProvider(r.Context(), r.PathValue("provider"))
		if ar.navigated() {
			return
		}
		view.ShowForm = true
		s.renderLogin(w, r, ar, view)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		ar.forget = true
		clearAuthCookies(w, r)

		ar.flow.Logout(r.Context())
		if !ar.navigated() {
			log.Warn().Str("session", ar.store.ID()).Msg("logout did not navigate")
			redirectSuccess(w, r, RouteLogin)
		}
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, ar *authRequest, view auth.LoginView) {
	_, dev := ar.svc.Mode().(config.Offline)
	social := ar.svc.SocialProviders()
	buttons := make([]SocialButton, 0, len(social))
	for _, id := range social.IDs() {
		p := social[id]
		buttons = append(buttons, SocialButton{ID: id, Name: p.Name, Icon: p.Icon, Color: p.Color})
	}

	data := LoginPageData{
		AppName:               s.config.GetAppName(),
		DevMode:               dev,
		ShowForm:              view.ShowForm,
		Error:                 view.Error,
		RememberMe:            rememberMeFrom(r) || ar.store.Get().RememberMe,
		SocialProviders:       buttons,
		ForgotPasswordEnabled: ar.svc.IsForgotPasswordEnabled(),
		ReplaceURL:            ar.replaceURL(),
	}
	s.render(w, http.StatusOK, "login.html", data)
}

func formBool(v string) bool {
	switch v {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}
