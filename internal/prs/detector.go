// Package prs detects personal records in logged sets.
package prs

import (
	"sort"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/google/uuid"
)

type PersonalRecord struct {
	ID            string                `json:"id"`
	UserID        string                `json:"userId"`
	ExerciseID    string                `json:"exerciseId"`
	ExerciseName  string                `json:"exerciseName"`
	ExerciseType  workouts.ExerciseType `json:"exerciseType"`
	Type          PRType                `json:"prType"`
	Value         float64               `json:"value"`
	PreviousValue *float64              `json:"previousValue,omitempty"`
	AchievedAt    time.Time             `json:"achievedAt"`
	WorkoutID     string                `json:"workoutId"`
	SetID         string                `json:"setId"`
}

// Improvement over the previous best, or the value itself for a first record.
func (pr PersonalRecord) Improvement() float64 {
	if pr.PreviousValue == nil {
		return pr.Value
	}
	return pr.Value - *pr.PreviousValue
}

func (pr PersonalRecord) FormattedValue() string {
	return pr.Type.Format(pr.Value)
}

// Entry is a set together with the exercise document it was logged under.
type Entry struct {
	Exercise workouts.Exercise
	Set      workouts.Set
}

// Detect scans the sets of one exercise in time order and returns every
// record they established.
func Detect(exercise workouts.Exercise, sets []workouts.Set) []PersonalRecord {
	entries := make([]Entry, len(sets))
	for i, set := range sets {
		entries[i] = Entry{Exercise: exercise, Set: set}
	}
	return DetectEntries(entries)
}

// DetectEntries is Detect over sets that may come from several exercise
// documents of the same movement (e.g. "Bench Press" in every week of a
// program). Entries are ordered by set creation time, ties keep input order.
//
// A record fires only when a value strictly exceeds the running maximum of
// its metric, so a set matching the current best does not re-fire.
func DetectEntries(entries []Entry) []PersonalRecord {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Set.CreatedAt.Before(ordered[j].Set.CreatedAt)
	})

	best := make(map[PRType]float64)
	var records []PersonalRecord
	for _, e := range ordered {
		for _, prType := range AllPRTypes {
			value, ok := MetricValue(e.Set, prType)
			if !ok {
				continue
			}

			prev, hasPrev := best[prType]
			if hasPrev && value <= prev {
				continue
			}

			var previous *float64
			if hasPrev {
				previous = &prev
			}
			records = append(records, newRecord(e, prType, value, previous))
			best[prType] = value
		}
	}

	return records
}

// CheckForNewPR checks a freshly logged set against the prior sets of the
// same exercise, on the single metric that fits the exercise type.
// Returns nil when the set is not a record.
func CheckForNewPR(newSet workouts.Set, exercise workouts.Exercise, priorSets []workouts.Set) *PersonalRecord {
	prType, ok := NaturalMetric(exercise.ExerciseType, newSet)
	if !ok {
		return nil
	}

	value, ok := MetricValue(newSet, prType)
	if !ok {
		return nil
	}

	var (
		prevMax float64
		hasPrev bool
	)
	for _, s := range priorSets {
		if s.ID == newSet.ID {
			continue
		}
		v, ok := MetricValue(s, prType)
		if !ok {
			continue
		}
		if !hasPrev || v > prevMax {
			prevMax = v
			hasPrev = true
		}
	}

	if hasPrev && value <= prevMax {
		return nil
	}

	var previous *float64
	if hasPrev {
		previous = &prevMax
	}
	pr := newRecord(Entry{Exercise: exercise, Set: newSet}, prType, value, previous)
	return &pr
}

// NaturalMetric picks the metric a new set is judged on.
// Custom exercises use volume when weight and reps are both logged, otherwise
// the first present of weight, reps, duration, distance.
func NaturalMetric(exType workouts.ExerciseType, set workouts.Set) (PRType, bool) {
	switch exType {
	case workouts.ExerciseTypeStrength:
		return PRTypeMaxWeight, true
	case workouts.ExerciseTypeBodyweight:
		return PRTypeMaxReps, true
	case workouts.ExerciseTypeCardio, workouts.ExerciseTypeTimeBased:
		return PRTypeMaxDuration, true
	case workouts.ExerciseTypeCustom:
		if _, ok := MetricValue(set, PRTypeMaxVolume); ok {
			return PRTypeMaxVolume, true
		}
		for _, t := range []PRType{PRTypeMaxWeight, PRTypeMaxReps, PRTypeMaxDuration, PRTypeMaxDistance} {
			if _, ok := MetricValue(set, t); ok {
				return t, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// MetricValue extracts the value a set carries for a metric.
// Zero and negative measurements do not count as carrying the metric.
func MetricValue(set workouts.Set, prType PRType) (float64, bool) {
	switch prType {
	case PRTypeMaxWeight:
		if set.Weight != nil && *set.Weight > 0 {
			return *set.Weight, true
		}
	case PRTypeMaxReps:
		if set.Reps != nil && *set.Reps > 0 {
			return float64(*set.Reps), true
		}
	case PRTypeMaxVolume:
		if v, ok := set.Volume(); ok && v > 0 {
			return v, true
		}
	case PRTypeOneRepMax:
		if set.Weight != nil && set.Reps != nil && *set.Weight > 0 && *set.Reps > 0 {
			return EstimateOneRepMax(*set.Weight, *set.Reps), true
		}
	case PRTypeMaxDuration:
		if set.Duration != nil && *set.Duration > 0 {
			return float64(*set.Duration), true
		}
	case PRTypeMaxDistance:
		if set.Distance != nil && *set.Distance > 0 {
			return *set.Distance, true
		}
	}
	return 0, false
}

// EstimateOneRepMax uses the Epley formula: weight * (1 + reps/30).
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}

func newRecord(e Entry, prType PRType, value float64, previous *float64) PersonalRecord {
	return PersonalRecord{
		ID:            recordID(e.Set.ID, prType),
		UserID:        e.Set.UserID,
		ExerciseID:    e.Exercise.ID,
		ExerciseName:  e.Exercise.Name,
		ExerciseType:  e.Exercise.ExerciseType,
		Type:          prType,
		Value:         value,
		PreviousValue: previous,
		AchievedAt:    e.Set.CreatedAt,
		WorkoutID:     e.Exercise.WorkoutID,
		SetID:         e.Set.ID,
	}
}

// recordID is stable across scans, one id per (set, metric).
func recordID(setID string, prType PRType) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(setID+"/"+string(prType))).String()
}
