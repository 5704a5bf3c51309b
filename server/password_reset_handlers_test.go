package server_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForgotPassword(t *testing.T) {
	t.Run("sends the reset email", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})

		res := f.get(t, liveBaseURL+"/forgot-password")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body(t, res), `name="email"`)

		res = f.post(t, liveBaseURL+"/forgot-password", url.Values{"email": {"jane.doe@example.com"}})
		require.Equal(t, http.StatusOK, res.StatusCode)
		page := body(t, res)
		require.Contains(t, page, "Password reset email sent successfully")
		require.NotContains(t, page, `name="email"`)

		require.Len(t, f.transport.Requests, 1)
		require.Equal(t, f.realm.Issuer()+"/login-actions/reset-credentials", f.transport.Requests[0].URL)
		require.Equal(t, map[string]string{"username": "jane.doe@example.com"}, f.transport.Requests[0].Body)
	})

	t.Run("rejects an invalid address without calling the realm", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})

		res := f.post(t, liveBaseURL+"/forgot-password", url.Values{"email": {"not-an-email"}})
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body(t, res), "Please enter a valid email address")
		require.Zero(t, f.transport.RequestCount())
	})

	t.Run("reports a rejected request", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})
		f.transport.Response.OK = false
		f.transport.Response.Status = http.StatusBadRequest

		res := f.post(t, liveBaseURL+"/forgot-password", url.Values{"email": {"jane.doe@example.com"}})
		require.Contains(t, body(t, res), "Failed to send password reset email. Please try again.")
	})
}

func TestResetPassword(t *testing.T) {
	t.Run("keeps the token in the form", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})

		res := f.get(t, liveBaseURL+"/reset-password?token=reset-123")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body(t, res), `value="reset-123"`)
	})

	t.Run("mismatched passwords", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})

		res := f.post(t, liveBaseURL+"/reset-password", url.Values{
			"token":            {"reset-123"},
			"password":         {"secret-1"},
			"confirm_password": {"secret-2"},
		})
		require.Contains(t, body(t, res), "Passwords do not match")
		require.Zero(t, f.transport.RequestCount())
	})

	t.Run("sets the new password", func(t *testing.T) {
		f := setupTestFixture(t, fixtureOptions{})

		res := f.post(t, liveBaseURL+"/reset-password", url.Values{
			"token":            {"reset-123"},
			"password":         {"secret-1"},
			"confirm_password": {"secret-1"},
		})
		page := body(t, res)
		require.Contains(t, page, "Password reset successfully")
		require.Contains(t, page, "Go to login")
		require.Equal(t, map[string]string{"token": "reset-123", "newPassword": "secret-1"}, f.transport.Requests[0].Body)
	})
}
