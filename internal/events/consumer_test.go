package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/events"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/prs"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEvent() events.SetLogged {
	return events.SetLogged{
		UserID:     "user-1",
		ProgramID:  "p1",
		WeekID:     "w1",
		WorkoutID:  "wo1",
		ExerciseID: "ex1",
		SetID:      "s1",
		LoggedAt:   time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func setLoggedMessage(t *testing.T, e events.SetLogged, offset int64) kafka.Message {
	t.Helper()
	msg, err := events.NewSetLoggedMessage(e)
	require.NoError(t, err)
	msg.Topic = "workout-events"
	msg.Offset = offset
	return msg
}

// expectMessages makes the reader hand out msgs in order and then report
// a cancelled context.
func expectMessages(reader *MockReader, msgs ...kafka.Message) {
	calls := make([]*gomock.Call, 0, len(msgs)+1)
	for _, msg := range msgs {
		calls = append(calls, reader.EXPECT().FetchMessage(gomock.Any()).Return(msg, nil))
	}
	calls = append(calls, reader.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, context.Canceled))
	gomock.InOrder(calls...)
}

func consumed(m *metrics.Manager, outcome string) float64 {
	return testutil.ToFloat64(m.CounterConsumedEvents.WithLabelValues(outcome))
}

func TestConsumer_NoRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	metricsManager := metrics.NewTestManager()

	e := testEvent()
	msg := setLoggedMessage(t, e, 10)
	expectMessages(reader, msg)
	gomock.InOrder(
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil),
		checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", e.ExercisePath(), "s1").Return(nil, nil),
	)
	reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil)

	consumer := events.NewConsumer(reader, checker, metricsManager, nil)
	err := consumer.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, float64(1), consumed(metricsManager, "processed"))
}

func TestConsumer_RecordIsPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	writer := NewMockWriter(ctrl)
	metricsManager := metrics.NewTestManager()

	e := testEvent()
	msg := setLoggedMessage(t, e, 11)
	expectMessages(reader, msg)

	previous := 100.0
	record := &prs.PersonalRecord{
		ID:            "pr-1",
		UserID:        "user-1",
		ExerciseID:    "ex1",
		ExerciseName:  "Bench Press",
		ExerciseType:  workouts.ExerciseTypeStrength,
		Type:          prs.PRTypeMaxWeight,
		Value:         110,
		PreviousValue: &previous,
		AchievedAt:    e.LoggedAt,
		WorkoutID:     "wo1",
		SetID:         "s1",
	}
	checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil)
	checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", e.ExercisePath(), "s1").Return(record, nil)

	var published []kafka.Message
	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
			published = append(published, msgs...)
			return nil
		})
	reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil)

	consumer := events.NewConsumer(reader, checker, metricsManager, writer)
	require.ErrorIs(t, consumer.Run(context.Background()), context.Canceled)

	require.Len(t, published, 1)
	assert.Equal(t, []byte("user-1"), published[0].Key)
	require.Len(t, published[0].Headers, 1)
	assert.Equal(t, events.RecordSetType, string(published[0].Headers[0].Value))

	var got prs.PersonalRecord
	require.NoError(t, json.Unmarshal(published[0].Value, &got))
	assert.Equal(t, "pr-1", got.ID)
	assert.Equal(t, prs.PRTypeMaxWeight, got.Type)
	assert.Equal(t, 110.0, got.Value)
	require.NotNil(t, got.PreviousValue)
	assert.Equal(t, 100.0, *got.PreviousValue)

	assert.Equal(t, float64(1), consumed(metricsManager, "record"))
}

func TestConsumer_MalformedAndForeignMessagesAreCommitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	metricsManager := metrics.NewTestManager()

	garbage := kafka.Message{
		Offset:  1,
		Value:   []byte("{not json"),
		Headers: []kafka.Header{{Key: events.EventTypeHeader, Value: []byte(events.SetLoggedType)}},
	}
	incomplete := testEvent()
	incomplete.WeekID = ""
	noSet := testEvent()
	noSet.SetID = ""
	foreign := kafka.Message{
		Offset:  4,
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: events.EventTypeHeader, Value: []byte("workout.deleted")}},
	}
	noHeader := kafka.Message{Offset: 5, Value: []byte(`{}`)}

	msgs := []kafka.Message{
		garbage,
		setLoggedMessage(t, incomplete, 2),
		setLoggedMessage(t, noSet, 3),
		foreign,
		noHeader,
	}
	expectMessages(reader, msgs...)
	for _, msg := range msgs {
		reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil)
	}

	consumer := events.NewConsumer(reader, checker, metricsManager, nil)
	require.ErrorIs(t, consumer.Run(context.Background()), context.Canceled)

	assert.Equal(t, float64(3), consumed(metricsManager, "malformed"))
	assert.Equal(t, float64(2), consumed(metricsManager, "skipped"))
}

func noWait() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func TestConsumer_FailedMessageIsRetriedBeforeMovingOn(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	writer := NewMockWriter(ctrl)
	metricsManager := metrics.NewTestManager()

	first := testEvent()
	second := testEvent()
	second.SetID = "s2"
	firstMsg := setLoggedMessage(t, first, 5)
	secondMsg := setLoggedMessage(t, second, 6)
	expectMessages(reader, firstMsg, secondMsg)

	gomock.InOrder(
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(errors.New("redis down")),
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil),
		checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", first.ExercisePath(), "s1").Return(nil, errors.New("db down")),
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil),
		checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", first.ExercisePath(), "s1").
			Return(&prs.PersonalRecord{Type: prs.PRTypeMaxReps, Value: 12}, nil),
		writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil),
		checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", first.ExercisePath(), "s1").Return(nil, nil),
		// offset 5 goes through before offset 6 is even handled
		reader.EXPECT().CommitMessages(gomock.Any(), firstMsg).Return(nil),
		checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil),
		checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", second.ExercisePath(), "s2").Return(nil, nil),
		reader.EXPECT().CommitMessages(gomock.Any(), secondMsg).Return(nil),
	)

	consumer := events.NewConsumer(reader, checker, metricsManager, writer).WithBackOff(noWait)
	require.ErrorIs(t, consumer.Run(context.Background()), context.Canceled)

	assert.Equal(t, float64(3), consumed(metricsManager, "failed"))
	assert.Equal(t, float64(2), consumed(metricsManager, "processed"))
}

func TestConsumer_FailedMessageStaysUncommittedOnShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	metricsManager := metrics.NewTestManager()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader.EXPECT().FetchMessage(gomock.Any()).Return(setLoggedMessage(t, testEvent(), 5), nil)
	checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").
		DoAndReturn(func(context.Context, string) error {
			cancel()
			return errors.New("redis down")
		})
	// no CommitMessages expectations: gomock fails the test on any commit

	consumer := events.NewConsumer(reader, checker, metricsManager, nil).WithBackOff(noWait)
	require.ErrorIs(t, consumer.Run(ctx), context.Canceled)

	assert.Equal(t, float64(1), consumed(metricsManager, "failed"))
}

func TestConsumer_DeletedSetIsSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)
	metricsManager := metrics.NewTestManager()

	e := testEvent()
	msg := setLoggedMessage(t, e, 7)
	expectMessages(reader, msg)
	checker.EXPECT().InvalidateUser(gomock.Any(), "user-1").Return(nil)
	checker.EXPECT().CheckSetForPR(gomock.Any(), "user-1", e.ExercisePath(), "s1").
		Return(nil, workouts.ErrNotFound)
	reader.EXPECT().CommitMessages(gomock.Any(), msg).Return(nil)

	consumer := events.NewConsumer(reader, checker, metricsManager, nil)
	require.ErrorIs(t, consumer.Run(context.Background()), context.Canceled)

	assert.Equal(t, float64(1), consumed(metricsManager, "skipped"))
}

func TestConsumer_FetchErrorsAreRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)

	gomock.InOrder(
		reader.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, errors.New("leader not available")),
		reader.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, context.DeadlineExceeded),
	)

	consumer := events.NewConsumer(reader, checker, metrics.NewTestManager(), nil)
	assert.ErrorIs(t, consumer.Run(context.Background()), context.DeadlineExceeded)
}

func TestConsumer_StopsOnCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockReader(ctrl)
	checker := NewMockrecordChecker(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	consumer := events.NewConsumer(reader, checker, metrics.NewTestManager(), nil)
	assert.ErrorIs(t, consumer.Run(ctx), context.Canceled)
}
