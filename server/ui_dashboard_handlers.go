package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/rs/zerolog/log"
)

// DashboardPageData contains data for rendering the protected pages
type DashboardPageData struct {
	AppName    string
	Page       string
	DevMode    bool
	UserName   string
	Profile    *keycloak.UserProfile
	Roles      []string
	CanEdit    bool
	TokenInfo  *keycloak.TokenInfo
	ReplaceURL string
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return s.protectedPage("dashboard.html", "Dashboard")
}

func (s *Server) WidgetsHandler() http.HandlerFunc {
	return s.protectedPage("widgets.html", "Widgets")
}

// protectedPage renders a guarded page. A provider redirect that landed on the
// page is completed first.
func (s *Server) protectedPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		ctx := r.Context()

		if auth.DetectCallback(ar.loc) {
			if !ar.flow.FinishCallback(ctx) {
				if !ar.navigated() {
					redirectSuccess(w, r, RouteLogin)
				}
				return
			}
		} else if err := ar.flow.EnsureSession(ctx); err != nil {
			log.Err(err).Str("session", ar.store.ID()).Msg("failed to record session")
		}

		state := ar.store.Get()
		_, dev := ar.svc.Mode().(config.Offline)
		s.render(w, http.StatusOK, name, DashboardPageData{
			AppName:    s.config.GetAppName(),
			Page:       title,
			DevMode:    dev,
			UserName:   displayName(state.Profile),
			Profile:    state.Profile,
			Roles:      state.Roles,
			CanEdit:    ar.svc.HasRole("task-editor"),
			TokenInfo:  ar.svc.TokenInfo(),
			ReplaceURL: ar.replaceURL(),
		})
	}
}

func displayName(p *keycloak.UserProfile) string {
	if p == nil {
		return "User"
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}
