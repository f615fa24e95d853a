package workouts

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Store is read-only access to one user's training hierarchy.
// Every call is a separate round trip; callers fan out level by level.
type Store interface {
	ListPrograms(ctx context.Context, userID string) ([]Program, error)
	ListWeeks(ctx context.Context, userID string, path Path) ([]Week, error)
	ListWorkouts(ctx context.Context, userID string, path Path) ([]Workout, error)
	ListExercises(ctx context.Context, userID string, path Path) ([]Exercise, error)
	ListSets(ctx context.Context, userID string, path Path) ([]Set, error)
}
