// Package events consumes workout logging events and keeps the analytics
// views in step with them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/segmentio/kafka-go"
)

const (
	EventTypeHeader = "event_type"
	SetLoggedType   = "set.logged"
	RecordSetType   = "personal_record.detected"
)

var ErrMalformedEvent = errors.New("malformed event")

// SetLogged is published by the logging app whenever a set is saved.
type SetLogged struct {
	UserID     string    `json:"userId"`
	ProgramID  string    `json:"programId"`
	WeekID     string    `json:"weekId"`
	WorkoutID  string    `json:"workoutId"`
	ExerciseID string    `json:"exerciseId"`
	SetID      string    `json:"setId"`
	LoggedAt   time.Time `json:"loggedAt"`
}

func (e SetLogged) ExercisePath() workouts.Path {
	return workouts.Path{
		ProgramID:  e.ProgramID,
		WeekID:     e.WeekID,
		WorkoutID:  e.WorkoutID,
		ExerciseID: e.ExerciseID,
	}
}

func (e SetLogged) validate() error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: no user id", ErrMalformedEvent)
	case e.ProgramID == "", e.WeekID == "", e.WorkoutID == "", e.ExerciseID == "":
		return fmt.Errorf("%w: incomplete path %s", ErrMalformedEvent, e.ExercisePath())
	case e.SetID == "":
		return fmt.Errorf("%w: no set id", ErrMalformedEvent)
	}
	return nil
}

// NewSetLoggedMessage builds the message the logging app publishes, keyed by
// user so that one user's events stay ordered within a partition.
func NewSetLoggedMessage(e SetLogged) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(SetLoggedType)},
		},
	}, nil
}

func eventType(msg kafka.Message) string {
	for _, header := range msg.Headers {
		if header.Key == EventTypeHeader {
			return string(header.Value)
		}
	}
	return ""
}

func decodeSetLogged(msg kafka.Message) (SetLogged, error) {
	var e SetLogged
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return SetLogged{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if err := e.validate(); err != nil {
		return SetLogged{}, err
	}
	return e, nil
}
