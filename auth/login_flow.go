package auth

import (
	"context"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/rs/zerolog/log"
)

const (
	MsgServiceUnavailable = "Authentication service unavailable. Please try again."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgLogoutFailed       = "Logout failed. Please try again."
)

// LoginView is what the login page shows after an action that did not navigate away.
type LoginView struct {
	ShowForm bool
	Error    string
}

// LoginFlow drives the login page and records the outcome in the session.
type LoginFlow struct {
	svc        *Service
	reconciler *Reconciler
	store      *session.Handle
	remember   bool
}

type LoginFlowOption func(*LoginFlow)

// RememberMe carries the remember me choice made before the provider redirect.
func RememberMe(remember bool) LoginFlowOption {
	return func(f *LoginFlow) {
		f.remember = remember
	}
}

func NewLoginFlow(svc *Service, store *session.Handle, options ...LoginFlowOption) *LoginFlow {
	f := &LoginFlow{
		svc:        svc,
		reconciler: NewReconciler(svc),
		store:      store,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Activate runs when the login page is opened. A signed in user is sent on to
// the dashboard.
func (f *LoginFlow) Activate(ctx context.Context) LoginView {
	if _, ok := f.svc.Mode().(config.Offline); ok {
		return LoginView{ShowForm: true}
	}

	if f.reconciler.Complete(ctx) == CallbackSucceeded {
		f.enterDashboard(ctx, f.rememberMe())
		return LoginView{}
	}

	authenticated, err := f.svc.InitializeDetailed(ctx)
	if err != nil {
		return LoginView{ShowForm: true, Error: MsgServiceUnavailable}
	}
	if authenticated {
		f.enterDashboard(ctx, f.rememberMe())
		return LoginView{}
	}
	return LoginView{ShowForm: true}
}

// Login starts a sign in. Offline the mock user is signed in on the spot.
func (f *LoginFlow) Login(ctx context.Context, rememberMe bool) LoginView {
	return f.login(ctx, rememberMe, MsgLoginFailed, f.svc.Login)
}

// LoginWithProvider starts a sign in through a social identity provider.
func (f *LoginFlow) LoginWithProvider(ctx context.Context, providerID string) LoginView {
	message := MsgLoginFailed
	if p, ok := f.svc.SocialProviders()[providerID]; ok {
		message = p.Name + " login failed. Please try again."
	}
	return f.login(ctx, false, message, func(ctx context.Context) error {
		return f.svc.LoginWithProvider(ctx, providerID)
	})
}

func (f *LoginFlow) login(ctx context.Context, rememberMe bool, failure string, start func(context.Context) error) LoginView {
	f.record(f.store.BeginLoading(ctx))

	if err := start(ctx); err != nil {
		log.Err(err).Msg("login failed")
		f.record(f.store.Failed(ctx, failure))
		return LoginView{ShowForm: true, Error: failure}
	}

	if _, ok := f.svc.Mode().(config.Offline); ok {
		f.enterDashboard(ctx, rememberMe)
		return LoginView{}
	}
	f.record(f.store.StopLoading(ctx))
	return LoginView{}
}

// Logout signs the session out at the provider and forgets it locally.
func (f *LoginFlow) Logout(ctx context.Context) {
	// The provider logout reads the id token from the session, so it goes first.
	f.svc.Logout(ctx)
	f.record(f.store.Reset(ctx))
}

// FinishCallback completes a provider redirect that landed on a protected page.
// It reports whether the session is signed in; if not, the browser is sent to
// the login page.
func (f *LoginFlow) FinishCallback(ctx context.Context) bool {
	if !f.svc.Initialize(ctx) {
		f.svc.Location().Navigate(LoginPath)
		return false
	}
	return f.establish(ctx, f.rememberMe()) == nil
}

// EnsureSession records an authenticated provider session in the store when
// the store does not know about it yet.
func (f *LoginFlow) EnsureSession(ctx context.Context) error {
	if f.store.Get().IsAuthenticated || !f.svc.IsAuthenticated() {
		return nil
	}
	return f.establish(ctx, f.rememberMe())
}

// RefreshSession refreshes the access token and records it.
func (f *LoginFlow) RefreshSession(ctx context.Context) error {
	if err := f.svc.RefreshToken(ctx); err != nil {
		return err
	}
	if _, ok := f.svc.Mode().(config.Offline); ok {
		return nil
	}
	return f.store.TokenRefreshed(ctx, f.svc.Token())
}

func (f *LoginFlow) enterDashboard(ctx context.Context, rememberMe bool) {
	if err := f.establish(ctx, rememberMe); err != nil {
		f.record(f.store.Failed(ctx, MsgLoginFailed))
		return
	}
	f.svc.Location().Navigate(DashboardPath)
}

// establish loads the profile and roles into the store. A profile that cannot
// be loaded leaves the session signed in without one.
func (f *LoginFlow) establish(ctx context.Context, rememberMe bool) error {
	var profile *keycloak.UserProfile
	if p, err := f.svc.UserProfile(ctx); err != nil {
		log.Err(err).Msg("failed to load user information")
	} else {
		profile = &p
	}

	_, offline := f.svc.Mode().(config.Offline)
	err := f.store.LoginSucceeded(ctx, session.Login{
		Token:      f.svc.Token(),
		Profile:    profile,
		Roles:      f.svc.UserRoles(),
		Offline:    offline,
		RememberMe: rememberMe,
	})
	if err != nil {
		log.Err(err).Msg("failed to record login")
	}
	return err
}

func (f *LoginFlow) rememberMe() bool {
	return f.remember || f.store.Get().RememberMe
}

func (f *LoginFlow) record(err error) {
	if err != nil {
		log.Err(err).Str("session", f.store.ID()).Msg("failed to save session")
	}
}
