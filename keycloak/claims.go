package keycloak

import (
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dashboard-gateway/internal/utils"
)

// TokenInfo is the decoded payload of an access token.
type TokenInfo struct {
	Subject   string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// ParseClaims decodes the payload of a JWT without verifying it. Tokens reach
// this point only after the provider issued them to the server.
func ParseClaims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// RealmRoles returns realm_access.roles.
func RealmRoles(claims jwt.MapClaims) []string {
	access, _ := claims["realm_access"].(map[string]any)
	return utils.ClaimStrings(access["roles"])
}

// ResourceRoles returns resource_access.<clientID>.roles.
func ResourceRoles(claims jwt.MapClaims, clientID string) []string {
	resources, _ := claims["resource_access"].(map[string]any)
	access, _ := resources[clientID].(map[string]any)
	return utils.ClaimStrings(access["roles"])
}

// Roles returns the realm roles followed by the roles of every client, without duplicates.
func Roles(claims jwt.MapClaims) []string {
	seen := map[string]bool{}
	roles := make([]string, 0)
	add := func(rs []string) {
		for _, r := range rs {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	}

	add(RealmRoles(claims))
	resources, _ := claims["resource_access"].(map[string]any)
	clients := make([]string, 0, len(resources))
	for id := range resources {
		clients = append(clients, id)
	}
	sort.Strings(clients)
	for _, id := range clients {
		add(ResourceRoles(claims, id))
	}
	return roles
}

// DecodeTokenInfo extracts subject, timestamps and the optional name and email.
func DecodeTokenInfo(raw string) (*TokenInfo, error) {
	claims, err := ParseClaims(raw)
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		info.ExpiresAt = exp.Time
	}
	info.Name, _ = claims["name"].(string)
	info.Email, _ = claims["email"].(string)
	return info, nil
}
