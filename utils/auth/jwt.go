package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Claims carried by catalog tokens
type Claims struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	TokenType    string `json:"token_type"`
	TokenVersion int    `json:"token_version"` // must match users.token_version
	jwt.RegisteredClaims
}

// Subject identifies who a token is issued for
type Subject struct {
	UserID       uint
	Email        string
	Role         string
	TokenVersion int
}

// IssuedToken is a signed token plus the fields needed to revoke it later
type IssuedToken struct {
	Token     string    `json:"token"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	Access  IssuedToken `json:"access"`
	Refresh IssuedToken `json:"refresh"`
}

// JWTManager signs and verifies HS256 tokens
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.Expiry == 0 {
		config.Expiry = 15 * time.Minute
	}
	if config.RefreshExpiry == 0 {
		config.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &JWTManager{config: config, now: time.Now}
}

// IssuePair signs a fresh access and refresh token for sub
func (j *JWTManager) IssuePair(sub Subject) (*TokenPair, error) {
	access, err := j.issue(sub, TokenTypeAccess, j.config.Expiry)
	if err != nil {
		return nil, err
	}
	refresh, err := j.issue(sub, TokenTypeRefresh, j.config.RefreshExpiry)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (j *JWTManager) issue(sub Subject, tokenType string, ttl time.Duration) (IssuedToken, error) {
	now := j.now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserID:       sub.UserID,
		Role:         sub.Role,
		TokenType:    tokenType,
		TokenVersion: sub.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   sub.Email,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.config.Secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Parse verifies signature, issuer and expiry and returns the claims
func (j *JWTManager) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(j.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// ParseOfType is Parse plus a check on the token_type claim
func (j *JWTManager) ParseOfType(tokenString, tokenType string) (*Claims, error) {
	claims, err := j.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
