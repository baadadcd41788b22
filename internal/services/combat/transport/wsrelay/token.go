package wsrelay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL bounds how long a participant token stays valid.
const DefaultTokenTTL = 12 * time.Hour

var (
	// ErrTokenRequired indicates a connection without a token.
	ErrTokenRequired = errors.New("participant token is required")
	// ErrTokenInvalid indicates a malformed or badly signed token.
	ErrTokenInvalid = errors.New("participant token is invalid")
	// ErrTokenExpired indicates an expired token.
	ErrTokenExpired = errors.New("participant token is expired")
	// ErrSecretRequired indicates a token config without a signing secret.
	ErrSecretRequired = errors.New("token secret is required")
)

// TokenConfig signs and verifies participant tokens.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Roles a token can grant.
const (
	RoleParticipant = "participant"
	RoleGM          = "gm"
)

// Claims identify a participant and the combat session it may act on.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

// GM reports whether the token belongs to the game master.
func (c Claims) GM() bool { return c.Role == RoleGM }

// Participant returns the participant id carried in the subject.
func (c Claims) Participant() string { return c.Subject }

func (cfg TokenConfig) now() time.Time {
	if cfg.Now == nil {
		return time.Now().UTC()
	}
	return cfg.Now().UTC()
}

// IssueToken signs a participant token, optionally scoped to sessionID.
func IssueToken(cfg TokenConfig, participant, sessionID string) (string, error) {
	return IssueRoleToken(cfg, participant, sessionID, RoleParticipant)
}

// IssueRoleToken signs a token carrying role.
func IssueRoleToken(cfg TokenConfig, participant, sessionID, role string) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", ErrSecretRequired
	}
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return "", errors.New("participant is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   participant,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID: strings.TrimSpace(sessionID),
		Role:      role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign participant token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies token and returns its claims.
func ParseToken(cfg TokenConfig, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenRequired
	}
	if len(cfg.Secret) == 0 {
		return Claims{}, ErrSecretRequired
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, mapTokenError(err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: subject is required", ErrTokenInvalid)
	}
	switch claims.Role {
	case "":
		claims.Role = RoleParticipant
	case RoleParticipant, RoleGM:
	default:
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}

func mapTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
