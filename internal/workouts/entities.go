package workouts

import (
	"fmt"
	"strings"
	"time"
)

// ExerciseType decides which metric counts as the "natural" progress
// measure of an exercise.
type ExerciseType string

const (
	ExerciseTypeStrength   ExerciseType = "strength"
	ExerciseTypeCardio     ExerciseType = "cardio"
	ExerciseTypeBodyweight ExerciseType = "bodyweight"
	ExerciseTypeTimeBased  ExerciseType = "time-based"
	ExerciseTypeCustom     ExerciseType = "custom"
)

var AllExerciseTypes = []ExerciseType{
	ExerciseTypeStrength,
	ExerciseTypeCardio,
	ExerciseTypeBodyweight,
	ExerciseTypeTimeBased,
	ExerciseTypeCustom,
}

func (et ExerciseType) String() string {
	return string(et)
}

func (et ExerciseType) IsValid() bool {
	switch et {
	case ExerciseTypeStrength,
		ExerciseTypeCardio,
		ExerciseTypeBodyweight,
		ExerciseTypeTimeBased,
		ExerciseTypeCustom:
		return true
	default:
		return false
	}
}

// ParseExerciseType accepts the wire value as well as the camel-case
// spelling used by the mobile clients ("timeBased").
func ParseExerciseType(s string) (ExerciseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strength":
		return ExerciseTypeStrength, nil
	case "cardio":
		return ExerciseTypeCardio, nil
	case "bodyweight":
		return ExerciseTypeBodyweight, nil
	case "time-based", "timebased", "time_based":
		return ExerciseTypeTimeBased, nil
	case "custom":
		return ExerciseTypeCustom, nil
	default:
		return "", fmt.Errorf("unknown exercise type: %q", s)
	}
}

type Program struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Week struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProgramID string    `json:"programId"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

type Workout struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProgramID string    `json:"programId"`
	WeekID    string    `json:"weekId"`
	Name      string    `json:"name"`
	DayOfWeek int       `json:"dayOfWeek"`
	CreatedAt time.Time `json:"createdAt"`
}

type Exercise struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	ProgramID    string       `json:"programId"`
	WeekID       string       `json:"weekId"`
	WorkoutID    string       `json:"workoutId"`
	Name         string       `json:"name"`
	ExerciseType ExerciseType `json:"exerciseType"`
	OrderIndex   int          `json:"orderIndex"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Set is a single logged set. All numeric fields are optional; a nil field
// means the set does not carry that measurement.
type Set struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ExerciseID string    `json:"exerciseId"`
	SetNumber  int       `json:"setNumber"`
	Reps       *int      `json:"reps,omitempty"`
	Weight     *float64  `json:"weight,omitempty"`   // kilos
	Duration   *int      `json:"duration,omitempty"` // seconds
	Distance   *float64  `json:"distance,omitempty"` // meters
	RestTime   *int      `json:"restTime,omitempty"` // seconds
	Checked    bool      `json:"checked"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Volume is weight*reps, present only when both are.
func (s Set) Volume() (float64, bool) {
	if s.Weight == nil || s.Reps == nil {
		return 0, false
	}
	return *s.Weight * float64(*s.Reps), true
}

// Path addresses a node in the Program > Week > Workout > Exercise hierarchy.
// Only the ids needed for the requested level have to be set.
type Path struct {
	ProgramID  string
	WeekID     string
	WorkoutID  string
	ExerciseID string
}

func (p Path) String() string {
	parts := []string{"programs", p.ProgramID}
	if p.WeekID != "" {
		parts = append(parts, "weeks", p.WeekID)
	}
	if p.WorkoutID != "" {
		parts = append(parts, "workouts", p.WorkoutID)
	}
	if p.ExerciseID != "" {
		parts = append(parts, "exercises", p.ExerciseID)
	}
	return strings.Join(parts, "/")
}

// Helpers for building optional set fields.

func IntPtr(v int) *int {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}
