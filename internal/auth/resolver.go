package auth

import (
	"context"
	"errors"

	"go.uber.org/multierr"
)

var ErrInvalidToken = errors.New("invalid token")

var (
	_ Resolver = (*SessionStore)(nil)
	_ Resolver = (*TokenResolver)(nil)
	_ Resolver = ChainResolver(nil)
)

// Resolver maps a bearer token to the id of the user it was issued to.
type Resolver interface {
	UserIDForToken(ctx context.Context, token string) (string, error)
}

// ChainResolver asks each resolver in turn and returns the first user id
// found. All errors are reported when none succeeds.
type ChainResolver []Resolver

func (c ChainResolver) UserIDForToken(ctx context.Context, token string) (string, error) {
	var errs error
	for _, r := range c {
		userID, err := r.UserIDForToken(ctx, token)
		if err == nil {
			return userID, nil
		}
		errs = multierr.Append(errs, err)
	}
	if errs == nil {
		return "", ErrInvalidToken
	}
	return "", errs
}
