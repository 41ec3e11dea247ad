package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Schemes accepted by the rows API Authorization header.
const (
	SchemeToken = "Token"
	SchemeJWT   = "JWT"
)

// Credential is a remote API credential with its detected scheme.
type Credential struct {
	Scheme string
	Value  string
	// Expires is set for JWT credentials carrying an exp claim.
	Expires time.Time
}

// ParseCredential classifies a configured credential. Database tokens are
// opaque strings; anything that parses as a JWT is sent with the JWT
// scheme. An explicit "Token " or "JWT " prefix is honoured as given.
// The signature is not verified: the remote API does that.
func ParseCredential(raw string) (Credential, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Credential{}, fmt.Errorf("empty api credential")
	}

	parts := strings.SplitN(raw, " ", 2)
	if len(parts) == 2 {
		switch {
		case strings.EqualFold(parts[0], SchemeToken), strings.EqualFold(parts[0], "Bearer"):
			return Credential{Scheme: SchemeToken, Value: strings.TrimSpace(parts[1])}, nil
		case strings.EqualFold(parts[0], SchemeJWT):
			return parseJWT(strings.TrimSpace(parts[1]))
		}
	}

	if strings.Count(raw, ".") == 2 {
		if c, err := parseJWT(raw); err == nil {
			return c, nil
		}
	}
	return Credential{Scheme: SchemeToken, Value: raw}, nil
}

func parseJWT(raw string) (Credential, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Credential{}, fmt.Errorf("parse jwt credential: %w", err)
	}
	c := Credential{Scheme: SchemeJWT, Value: raw}
	if claims.ExpiresAt != nil {
		c.Expires = claims.ExpiresAt.Time
	}
	return c, nil
}

// Header returns the Authorization header value.
func (c Credential) Header() string {
	return c.Scheme + " " + c.Value
}

// Expired reports whether a JWT credential is past its exp claim.
func (c Credential) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}
