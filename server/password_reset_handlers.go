package server

import (
	"net/http"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
)

type PasswordPageData struct {
	AppName string
	Token   string
	Email   string
	Result  *auth.ResetResult
}

func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		if !ar.svc.IsForgotPasswordEnabled() {
			http.NotFound(w, r)
			return
		}
		s.render(w, http.StatusOK, "forgot_password.html", PasswordPageData{AppName: s.config.GetAppName()})
	}
}

// ForgotPasswordPostHandler asks the realm to email a reset link.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ar := authFrom(r)
		if !ar.svc.IsForgotPasswordEnabled() {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		result := ar.svc.RequestPasswordReset(r.Context(), email)
		s.render(w, http.StatusOK, "forgot_password.html", PasswordPageData{
			AppName: s.config.GetAppName(),
			Email:   email,
			Result:  &result,
		})
	}
}

func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "reset_password.html", PasswordPageData{
			AppName: s.config.GetAppName(),
			Token:   r.URL.Query().Get("token"),
		})
	}
}

// ResetPasswordPostHandler sets a new password for a reset token.
func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		ar := authFrom(r)
		token := r.FormValue("token")
		result := ar.svc.CompletePasswordReset(r.Context(), token, r.FormValue("password"), r.FormValue("confirm_password"))
		s.render(w, http.StatusOK, "reset_password.html", PasswordPageData{
			AppName: s.config.GetAppName(),
			Token:   token,
			Result:  &result,
		})
	}
}
