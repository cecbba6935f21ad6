package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "workorder-service"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims is the payload of a login token. userData carries the user id.
type SessionClaims struct {
	UserData string `json:"userData"`
	jwt.RegisteredClaims
}

// ConfirmationClaims is the payload of an account confirmation token.
type ConfirmationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
	now    func() time.Time
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source used to check expiry.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Parse validates a session token and returns the user id it was issued for.
func (p *Parser) Parse(token string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	if err := p.parse(token, claims); err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.UserData)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (p *Parser) ParseConfirmation(token string) (string, error) {
	claims := &ConfirmationClaims{}
	if err := p.parse(token, claims); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

func (p *Parser) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

type Issuer struct {
	secret          []byte
	sessionTTL      time.Duration
	confirmationTTL time.Duration
	now             func() time.Time
}

func NewIssuer(secret string, sessionTTL, confirmationTTL time.Duration) *Issuer {
	return &Issuer{
		secret:          []byte(secret),
		sessionTTL:      sessionTTL,
		confirmationTTL: confirmationTTL,
		now:             time.Now,
	}
}

// WithClock replaces the time source used for issued-at and expiry.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) IssueSession(userID uuid.UUID) (string, time.Time, error) {
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.sessionTTL)

	claims := SessionClaims{
		UserData: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (i *Issuer) IssueConfirmation(email string) (string, time.Time, error) {
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.confirmationTTL)

	claims := ConfirmationClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
