// Package auth authenticates the catalog administrator and issues signed session tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "product-catalog"

var (
	// ErrInvalidCredentials is returned when the username or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for tokens that are malformed, expired or signed with another key.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the JWT claims carried by an admin session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session describes an issued token.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Authenticator verifies admin credentials and tokens.
type Authenticator struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthenticator creates an Authenticator from the admin configuration.
func NewAuthenticator(conf config.Admin) *Authenticator {
	return &Authenticator{
		username:     conf.Username,
		passwordHash: []byte(conf.PasswordHash),
		secret:       []byte(conf.TokenSecret),
		ttl:          conf.TokenTTL,
		now:          time.Now,
	}
}

// Login checks the credentials and returns a signed token valid for the configured TTL.
func (a *Authenticator) Login(username, password string) (Session, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !usernameOK || passwordErr != nil {
		return Session{}, ErrInvalidCredentials
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: signed, Username: a.username, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Verify parses and validates a token issued by Login.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Issuer != issuer || claims.Username != a.username {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
