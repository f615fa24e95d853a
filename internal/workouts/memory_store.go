package workouts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the hierarchy in process memory. Used in tests and in
// development runs without a database.
type MemoryStore struct {
	mutex     sync.RWMutex
	programs  map[string]Program
	weeks     map[string]Week
	workouts  map[string]Workout
	exercises map[string]Exercise
	sets      map[string]Set

	// failures maps a Path.String() to the error returned when listing its children
	failures map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		programs:  make(map[string]Program),
		weeks:     make(map[string]Week),
		workouts:  make(map[string]Workout),
		exercises: make(map[string]Exercise),
		sets:      make(map[string]Set),
		failures:  make(map[string]error),
	}
}

func (s *MemoryStore) AddProgram(p Program) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.programs[p.ID] = p
}

func (s *MemoryStore) AddWeek(w Week) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.weeks[w.ID] = w
}

func (s *MemoryStore) AddWorkout(w Workout) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.workouts[w.ID] = w
}

func (s *MemoryStore) AddExercise(e Exercise) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.exercises[e.ID] = e
}

func (s *MemoryStore) AddSet(set Set) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sets[set.ID] = set
}

// FailOn makes listing the children of path return err.
// An empty Path fails ListPrograms.
func (s *MemoryStore) FailOn(path Path, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[path.String()] = err
}

func (s *MemoryStore) failure(path Path) error {
	if err, ok := s.failures[path.String()]; ok {
		return fmt.Errorf("list children of %s: %w", path, err)
	}
	return nil
}

func (s *MemoryStore) ListPrograms(_ context.Context, userID string) ([]Program, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.failure(Path{}); err != nil {
		return nil, err
	}

	var programs []Program
	for _, p := range s.programs {
		if p.UserID == userID {
			programs = append(programs, p)
		}
	}
	sort.Slice(programs, func(i, j int) bool {
		return programs[i].CreatedAt.Before(programs[j].CreatedAt)
	})
	return programs, nil
}

func (s *MemoryStore) ListWeeks(_ context.Context, userID string, path Path) ([]Week, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.failure(Path{ProgramID: path.ProgramID}); err != nil {
		return nil, err
	}

	var weeks []Week
	for _, w := range s.weeks {
		if w.UserID == userID && w.ProgramID == path.ProgramID {
			weeks = append(weeks, w)
		}
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].Order < weeks[j].Order
	})
	return weeks, nil
}

func (s *MemoryStore) ListWorkouts(_ context.Context, userID string, path Path) ([]Workout, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.failure(Path{ProgramID: path.ProgramID, WeekID: path.WeekID}); err != nil {
		return nil, err
	}

	var workouts []Workout
	for _, w := range s.workouts {
		if w.UserID == userID && w.ProgramID == path.ProgramID && w.WeekID == path.WeekID {
			workouts = append(workouts, w)
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].CreatedAt.Before(workouts[j].CreatedAt)
	})
	return workouts, nil
}

func (s *MemoryStore) ListExercises(_ context.Context, userID string, path Path) ([]Exercise, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.failure(Path{ProgramID: path.ProgramID, WeekID: path.WeekID, WorkoutID: path.WorkoutID}); err != nil {
		return nil, err
	}

	var exercises []Exercise
	for _, e := range s.exercises {
		if e.UserID == userID && e.WorkoutID == path.WorkoutID {
			exercises = append(exercises, e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].OrderIndex < exercises[j].OrderIndex
	})
	return exercises, nil
}

func (s *MemoryStore) ListSets(_ context.Context, userID string, path Path) ([]Set, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.failure(path); err != nil {
		return nil, err
	}

	var sets []Set
	for _, set := range s.sets {
		if set.UserID == userID && set.ExerciseID == path.ExerciseID {
			sets = append(sets, set)
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].SetNumber < sets[j].SetNumber
		}
		return sets[i].CreatedAt.Before(sets[j].CreatedAt)
	})
	return sets, nil
}
