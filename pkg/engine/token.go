package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueAccessToken signs an HS256 JWT access token for the grant.
func (e *Engine) issueAccessToken(subject, clientID string, scope []string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   e.issuer,
		"sub":   subject,
		"aud":   clientID,
		"iat":   now.Unix(),
		"exp":   now.Add(e.accessTTL).Unix(),
		"scope": strings.Join(scope, " "),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(e.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// accessClaims is the verified content of an access token.
type accessClaims struct {
	subject   string
	clientID  string
	scope     []string
	expiresAt time.Time
}

// verifyAccessToken parses and validates an HS256 access token issued
// by this engine.
func (e *Engine) verifyAccessToken(raw string) (*accessClaims, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return e.signingKey, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(e.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}

	subject, _ := claims["sub"].(string)
	clientID, _ := claims["aud"].(string)
	if subject == "" || clientID == "" {
		return nil, fmt.Errorf("access token missing sub or aud")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("access token missing exp")
	}

	var scope []string
	if s, _ := claims["scope"].(string); s != "" {
		scope = strings.Fields(s)
	}

	return &accessClaims{
		subject:   subject,
		clientID:  clientID,
		scope:     scope,
		expiresAt: exp.Time,
	}, nil
}
