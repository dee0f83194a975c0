package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	EmailTokenTTL = 15 * time.Minute
	SessionTTL    = 7 * 24 * time.Hour

	issuer = "clinic"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// EmailClaims are carried by the single-use login link.
type EmailClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	Tenant string `json:"tenant"`
}

// SessionClaims are carried by the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	UserID string `json:"userId"`
	Tenant string `json:"tenant"`
	Role   string `json:"role"`
}

// Issuer signs and verifies both token kinds. Email and session tokens use
// different secrets so one can never be replayed as the other.
type Issuer struct {
	emailSecret   []byte
	sessionSecret []byte
	now           func() time.Time
}

func NewIssuer(emailSecret, sessionSecret string) (*Issuer, error) {
	if emailSecret == "" || sessionSecret == "" {
		return nil, errors.New("email and session secrets are required")
	}
	return &Issuer{
		emailSecret:   []byte(emailSecret),
		sessionSecret: []byte(sessionSecret),
		now:           time.Now,
	}, nil
}

// IssueEmailToken returns a signed login token with a fresh jti.
func (i *Issuer) IssueEmailToken(email, tenant string) (string, *EmailClaims, error) {
	now := i.now()
	claims := &EmailClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(EmailTokenTTL)),
		},
		Email:  email,
		Tenant: tenant,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.emailSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign email token: %w", err)
	}
	return signed, claims, nil
}

func (i *Issuer) ParseEmailToken(token string) (*EmailClaims, error) {
	claims := &EmailClaims{}
	if err := i.parse(token, claims, i.emailSecret); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Email == "" || claims.Tenant == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueSession returns a signed session token for a verified user.
func (i *Issuer) IssueSession(email, userID, tenant, role string) (string, *SessionClaims, error) {
	now := i.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
		Email:  email,
		UserID: userID,
		Tenant: tenant,
		Role:   role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.sessionSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

func (i *Issuer) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(token, claims, i.sessionSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.Tenant == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
