package auth

import (
	"context"
	"regexp"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	MsgResetEmailSent      = "Password reset email sent successfully"
	MsgResetEmailFailed    = "Failed to send password reset email. Please try again."
	MsgPasswordReset       = "Password reset successfully"
	MsgPasswordResetFailed = "Failed to reset password. Please try again."
	MsgPasswordsMismatch   = "Passwords do not match"
	MsgInvalidEmail        = "Please enter a valid email address"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ResetResult is the outcome of a password reset step. Failures are reported
// here, never as errors.
type ResetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// ValidateEmail applies the address check of the forgot password form.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// RequestPasswordReset asks the realm to email a reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) ResetResult {
	if !ValidateEmail(email) {
		return ResetResult{Message: MsgInvalidEmail}
	}

	resp, err := s.transport.PostJSON(ctx, s.provider().ResetCredentialsURL(), map[string]string{
		"username": email,
	})
	if err != nil {
		log.Err(err).Msg("password reset request failed")
		return ResetResult{Message: MsgResetEmailFailed}
	}
	if !resp.OK {
		log.Warn().Int("status", resp.Status).Msg("password reset request rejected")
		return ResetResult{Message: MsgResetEmailFailed}
	}
	return ResetResult{Success: true, Message: MsgResetEmailSent, Email: email}
}

// CompletePasswordReset sets the new password for a reset token.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) ResetResult {
	if newPassword != confirmPassword {
		return ResetResult{Message: MsgPasswordsMismatch}
	}

	resp, err := s.transport.PostJSON(ctx, s.provider().ResetCredentialsURL(), map[string]string{
		"token":       token,
		"newPassword": newPassword,
	})
	if err != nil {
		log.Err(err).Msg("password reset failed")
		return ResetResult{Message: MsgPasswordResetFailed}
	}
	if !resp.OK {
		log.Warn().Int("status", resp.Status).Msg("password reset rejected")
		return ResetResult{Message: MsgPasswordResetFailed}
	}
	return ResetResult{Success: true, Message: MsgPasswordReset}
}

// provider returns the realm settings. The reset endpoints are addressed even
// in development mode.
func (s *Service) provider() config.ProviderConfig {
	if cfg, ok := s.Mode().(config.Live); ok {
		return cfg.Provider
	}
	return s.kc.GetProviderConfig()
}
