// Package auth carries the caller's credential and profile explicitly into
// every operation that needs them. Token verification belongs to the external
// identity provider; this package only transports the bearer string and reads
// the profile claims out of it.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"quizdeck/internal/domain"
)

// groupsClaim is the Cognito-style group-membership claim.
const groupsClaim = "cognito:groups"

// Profile is the subset of the OIDC profile the quiz flows consume.
type Profile struct {
	Name              string
	Email             string
	PreferredUsername string
	Nickname          string
	Groups            []string
}

// Identity couples a bearer credential with its profile. The zero value
// means "not authenticated".
type Identity struct {
	Token   string
	Profile Profile
}

// FromIDToken builds an Identity from a raw OIDC id token. The signature is
// not checked here; an unparseable token still yields a usable credential
// with an empty profile, since authorization decisions stay server-side.
func FromIDToken(raw string) Identity {
	id := Identity{Token: raw}
	if raw == "" {
		return id
	}

	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return id
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return id
	}

	id.Profile = Profile{
		Name:              claimString(claims, "name"),
		Email:             claimString(claims, "email"),
		PreferredUsername: claimString(claims, "preferred_username"),
		Nickname:          claimString(claims, "nickname"),
		Groups:            claimStrings(claims, groupsClaim),
	}
	return id
}

// HasCredential reports whether a bearer credential is present. This is the
// only authentication state the core observes.
func (id Identity) HasCredential() bool {
	return id.Token != ""
}

// Require returns ErrNoCredential when the identity cannot authorize a call.
func (id Identity) Require() error {
	if !id.HasCredential() {
		return domain.ErrNoCredential
	}
	return nil
}

// IsAdmin reports whether the group-membership claim contains the designated
// admin marker. Role gating itself happens at the presentation layer.
func (id Identity) IsAdmin(adminGroup string) bool {
	for _, g := range id.Profile.Groups {
		if g == adminGroup {
			return true
		}
	}
	return false
}

// DisplayName prefers the profile name, then the email.
func (id Identity) DisplayName() string {
	if id.Profile.Name != "" {
		return id.Profile.Name
	}
	return id.Profile.Email
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func claimStrings(claims jwt.MapClaims, key string) []string {
	switch v := claims[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
