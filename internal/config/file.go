package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileOverlay is the optional YAML document named by AUTH_CONFIG_FILE. Every
// field is optional; present fields replace the environment values.
type fileOverlay struct {
	Offline         *bool                     `yaml:"offline"`
	Keycloak        *providerOverlay          `yaml:"keycloak"`
	MockUser        *MockUser                 `yaml:"mock_user"`
	SocialProviders map[string]SocialProvider `yaml:"social_providers"`
}

type providerOverlay struct {
	URL      string `yaml:"url"`
	Realm    string `yaml:"realm"`
	ClientID string `yaml:"client_id"`
}

// ApplyFile merges the YAML file at path into kc.
func ApplyFile(path string, kc *Keycloak) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.Offline != nil {
		kc.Offline = *overlay.Offline
	}
	if p := overlay.Keycloak; p != nil {
		if p.URL != "" {
			kc.Provider.URL = p.URL
		}
		if p.Realm != "" {
			kc.Provider.Realm = p.Realm
		}
		if p.ClientID != "" {
			kc.Provider.ClientID = p.ClientID
		}
	}
	if overlay.MockUser != nil {
		kc.MockUser = *overlay.MockUser
	}
	for id, provider := range overlay.SocialProviders {
		if kc.Social == nil {
			kc.Social = SocialProviders{}
		}
		kc.Social[id] = provider
	}
	return nil
}
