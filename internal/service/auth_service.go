package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tablo-labs/tablo-bridge/internal/config"
)

// AuthService handles bridge admin authentication and JWT issuance. This is
// the bridge's own API auth, unrelated to the Tablo cloud handshake.
type AuthService struct {
	enabled  bool
	username string
	password string
	secret   []byte
	tokenTTL time.Duration
}

// Claims represents the JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// NewAuthService builds AuthService from config.
func NewAuthService(cfg *config.Config) *AuthService {
	authCfg := cfg.Auth
	username := strings.TrimSpace(authCfg.Username)
	if username == "" {
		username = "admin"
	}
	password := strings.TrimSpace(authCfg.Password)
	if password == "" {
		password = "admin123"
	}
	secret := strings.TrimSpace(authCfg.JWTSecret)
	if secret == "" {
		secret = "tablo-bridge-default-secret"
	}
	ttl := authCfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		enabled:  authCfg.Enabled,
		username: username,
		password: password,
		secret:   []byte(secret),
		tokenTTL: ttl,
	}
}

// Enabled reports whether authentication is enforced.
func (a *AuthService) Enabled() bool {
	return a != nil && a.enabled
}

// Username returns the configured admin username.
func (a *AuthService) Username() string {
	if a == nil {
		return ""
	}
	return a.username
}

// Authenticate validates admin credentials and returns a JWT token.
func (a *AuthService) Authenticate(username, password string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if !a.matchUsername(username) || !a.matchPassword(password) {
		return "", errors.New("invalid username or password")
	}
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tablo-bridge",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses a token and returns its claims if valid.
func (a *AuthService) Validate(token string) (*Claims, error) {
	if !a.Enabled() {
		return &Claims{Username: "anonymous"}, nil
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func (a *AuthService) matchUsername(input string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(input)), []byte(a.username)) == 1
}

func (a *AuthService) matchPassword(input string) bool {
	if strings.HasPrefix(a.password, "$2a$") || strings.HasPrefix(a.password, "$2b$") || strings.HasPrefix(a.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}
