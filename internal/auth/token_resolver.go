package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenResolver accepts HS256 signed JWTs whose subject is the user id.
type TokenResolver struct {
	secret []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenResolver checks the issuer only when one is given. now may be nil.
func NewTokenResolver(secret, issuer string, now func() time.Time) *TokenResolver {
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &TokenResolver{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(opts...),
		now:    now,
	}
}

func (r *TokenResolver) UserIDForToken(_ context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := r.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Sign issues a token for userID valid for ttl.
func (r *TokenResolver) Sign(userID string, ttl time.Duration) (string, error) {
	if err := RequireUserID(userID); err != nil {
		return "", err
	}

	issuedAt := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    r.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
