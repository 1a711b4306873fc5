// Package auth issues and verifies role tokens. Every mutating governance
// call carries a token asserting the caller's signer role; the engine trusts
// the role claim, not the transport.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
	"github.com/quorumsec/aegis/internal/platform/id"
)

const (
	// DefaultIssuer identifies tokens minted by this engine.
	DefaultIssuer = "aegis-governor"
	// DefaultAudience scopes tokens to the governance API.
	DefaultAudience = "aegis-governance"
	// DefaultTokenTTL bounds how long a minted role assertion stays valid.
	DefaultTokenTTL = 12 * time.Hour
)

// RoleTokenConfig defines how role tokens are minted and verified.
type RoleTokenConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
	TTL      time.Duration
	Now      func() time.Time
}

// RoleClaims captures a validated role assertion.
type RoleClaims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
	Role      string
}

// roleClaims is the internal claims type used for JWT parsing.
type roleClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (cfg RoleTokenConfig) withDefaults() RoleTokenConfig {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// MintRoleToken signs a role assertion for the given signer role.
func MintRoleToken(role string, cfg RoleTokenConfig) (string, error) {
	cfg = cfg.withDefaults()
	role = strings.TrimSpace(role)
	if role == "" {
		return "", apperrors.New(apperrors.CodeSignerInvalid, "role is required")
	}
	if len(cfg.Secret) == 0 {
		return "", errors.New("role token secret is not configured")
	}

	tokenID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	now := cfg.Now().UTC()
	claims := roleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign role token: %w", err)
	}
	return signed, nil
}

// VerifyRoleToken verifies a role token and returns its validated claims.
func VerifyRoleToken(token string, cfg RoleTokenConfig) (RoleClaims, error) {
	cfg = cfg.withDefaults()
	token = strings.TrimSpace(token)
	if token == "" {
		return RoleClaims{}, apperrors.New(apperrors.CodeRoleTokenInvalid, "role token is required")
	}
	if len(cfg.Secret) == 0 {
		return RoleClaims{}, errors.New("role token verifier is not configured")
	}

	var parsed roleClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return RoleClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return RoleClaims{}, apperrors.WithMetadata(
			apperrors.CodeRoleTokenInvalid,
			"role token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return RoleClaims{}, apperrors.WithMetadata(
			apperrors.CodeRoleTokenInvalid,
			"role token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ExpiresAt == nil {
		return RoleClaims{}, apperrors.New(apperrors.CodeRoleTokenInvalid, "role token exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return RoleClaims{}, apperrors.New(apperrors.CodeRoleTokenExpired, "role token is expired")
	}

	role := strings.TrimSpace(parsed.Role)
	if role == "" {
		return RoleClaims{}, apperrors.New(apperrors.CodeRoleTokenInvalid, "role token role claim is required")
	}

	claims := RoleClaims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		Role:      role,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeRoleTokenInvalid, "role token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeRoleTokenInvalid, "role token alg is invalid")
	}
	return apperrors.New(apperrors.CodeRoleTokenInvalid, "role token is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
