package config

import (
	"sort"
	"time"
)

const (
	OnLoadCheckSSO       = "check-sso"
	PKCEMethodS256       = "S256"
	ResponseModeFragment = "fragment"
	FlowStandard         = "standard"

	devProviderURL  = "http://localhost:8080"
	prodProviderURL = "https://your-keycloak-server.com"
)

// InitOptions are the options the identity provider session is started with.
type InitOptions struct {
	OnLoad                    string `yaml:"on_load"`
	SilentCheckSSORedirectURI string `yaml:"silent_check_sso_redirect_uri"`
	PKCEMethod                string `yaml:"pkce_method"`
	CheckLoginIframe          bool   `yaml:"check_login_iframe"`
	EnableLogging             bool   `yaml:"enable_logging"`
	ResponseMode              string `yaml:"response_mode"`
	Flow                      string `yaml:"flow"`
	RedirectURI               string `yaml:"redirect_uri"`
	PostLogoutRedirectURI     string `yaml:"post_logout_redirect_uri"`
}

// ProviderConfig holds the connection parameters of the Keycloak realm.
type ProviderConfig struct {
	URL          string      `yaml:"url"`
	Realm        string      `yaml:"realm"`
	ClientID     string      `yaml:"client_id"`
	ClientSecret string      `yaml:"-"`
	InitOptions  InitOptions `yaml:"init_options"`
}

// IssuerURL is the realm URL, which Keycloak also uses as the OIDC issuer.
func (p ProviderConfig) IssuerURL() string {
	return p.URL + "/realms/" + p.Realm
}

func (p ProviderConfig) ResetCredentialsURL() string {
	return p.IssuerURL() + "/login-actions/reset-credentials"
}

type MockUser struct {
	ID        string   `yaml:"id"`
	Username  string   `yaml:"username"`
	Email     string   `yaml:"email"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Roles     []string `yaml:"roles"`
}

type SocialProvider struct {
	Name    string `yaml:"name"`
	Icon    string `yaml:"icon"`
	Color   string `yaml:"color"`
	Enabled bool   `yaml:"enabled"`
}

// SocialProviders is keyed by the identity provider alias configured in the realm.
type SocialProviders map[string]SocialProvider

// Enabled returns the enabled providers.
func (s SocialProviders) Enabled() SocialProviders {
	enabled := SocialProviders{}
	for id, p := range s {
		if p.Enabled {
			enabled[id] = p
		}
	}
	return enabled
}

// IDs returns the provider aliases in a stable order.
func (s SocialProviders) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type ForgotPasswordConfig struct {
	Enabled         bool
	EmailTemplate   string
	ResetLinkExpiry time.Duration
	RedirectURL     string
}

type KeycloakConfig interface {
	GetOfflineMode() bool
	GetProviderConfig() ProviderConfig
	GetOfflineUser() MockUser
	GetSocialProviders() SocialProviders
	GetForgotPasswordConfig() ForgotPasswordConfig
}

type Keycloak struct {
	Offline        bool
	Provider       ProviderConfig
	MockUser       MockUser
	Social         SocialProviders
	ForgotPassword ForgotPasswordConfig
}

var _ KeycloakConfig = Keycloak{}

// DefaultKeycloak returns the built-in realm settings for a dashboard served from baseURL.
func DefaultKeycloak(baseURL string) Keycloak {
	return Keycloak{
		Offline: false,
		Provider: ProviderConfig{
			URL:      devProviderURL,
			Realm:    "ensa-realm",
			ClientID: "task-client",
			InitOptions: InitOptions{
				OnLoad:                    OnLoadCheckSSO,
				SilentCheckSSORedirectURI: baseURL + "/assets/silent-check-sso.html",
				PKCEMethod:                PKCEMethodS256,
				CheckLoginIframe:          false,
				EnableLogging:             true,
				ResponseMode:              ResponseModeFragment,
				Flow:                      FlowStandard,
				RedirectURI:               baseURL + "/dashboard",
				PostLogoutRedirectURI:     baseURL + "/login",
			},
		},
		MockUser: MockUser{
			ID:        "mock-user-id",
			Username:  "demo@example.com",
			Email:     "demo@example.com",
			FirstName: "Demo",
			LastName:  "User",
			Roles:     []string{"user"},
		},
		Social: SocialProviders{
			"google":   {Name: "Google", Icon: "fab fa-google", Color: "#4285F4", Enabled: true},
			"github":   {Name: "GitHub", Icon: "fab fa-github", Color: "#333333", Enabled: true},
			"facebook": {Name: "Facebook", Icon: "fab fa-facebook", Color: "#1877F2", Enabled: false},
			"twitter":  {Name: "Twitter", Icon: "fab fa-twitter", Color: "#1DA1F2", Enabled: false},
		},
		ForgotPassword: ForgotPasswordConfig{
			Enabled:         true,
			EmailTemplate:   "forgot-password",
			ResetLinkExpiry: time.Hour,
			RedirectURL:     "/login",
		},
	}
}

// NewKeycloak applies the environment on top of DefaultKeycloak.
func NewKeycloak(env EnvVars) Keycloak {
	kc := DefaultKeycloak(env.GetBaseURL())

	providerURL := devProviderURL
	if env.GetEnv() == EnvProd {
		providerURL = prodProviderURL
	}
	kc.Offline = GetEnvBool("AUTH_OFFLINE_MODE", false)
	kc.Provider.URL = GetEnv("KEYCLOAK_URL", providerURL)
	kc.Provider.Realm = GetEnv("KEYCLOAK_REALM", kc.Provider.Realm)
	kc.Provider.ClientID = GetEnv("KEYCLOAK_CLIENT_ID", kc.Provider.ClientID)
	kc.Provider.ClientSecret = GetEnv("KEYCLOAK_CLIENT_SECRET", "")
	kc.ForgotPassword.Enabled = GetEnvBool("FORGOT_PASSWORD_ENABLED", true)
	return kc
}

func (k Keycloak) GetOfflineMode() bool {
	return k.Offline
}

func (k Keycloak) GetProviderConfig() ProviderConfig {
	return k.Provider
}

func (k Keycloak) GetOfflineUser() MockUser {
	u := k.MockUser
	u.Roles = append([]string(nil), k.MockUser.Roles...)
	return u
}

func (k Keycloak) GetSocialProviders() SocialProviders {
	providers := make(SocialProviders, len(k.Social))
	for id, p := range k.Social {
		providers[id] = p
	}
	return providers
}

func (k Keycloak) GetForgotPasswordConfig() ForgotPasswordConfig {
	return k.ForgotPassword
}
