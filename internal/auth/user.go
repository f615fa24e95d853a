package auth

import (
	"context"
	"errors"
)

// ErrNotAuthenticated is returned by every entry point that needs a user id
// and did not get one.
var ErrNotAuthenticated = errors.New("not authenticated")

type userIDKey struct{}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(userIDKey{}).(string)
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

// RequireUserID rejects an empty user id.
func RequireUserID(userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	return nil
}
