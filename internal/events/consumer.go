package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/prs"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=events_test

// Reader is the part of kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Writer is the part of kafka.Writer the consumer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type recordChecker interface {
	InvalidateUser(ctx context.Context, userID string) error
	CheckSetForPR(ctx context.Context, userID string, path workouts.Path, setID string) (*prs.PersonalRecord, error)
}

const (
	outcomeProcessed = "processed"
	outcomeRecord    = "record"
	outcomeMalformed = "malformed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

type Consumer struct {
	reader         Reader
	checker        recordChecker
	metricsManager *metrics.Manager
	// records receives detected personal records; nil disables publishing
	records    Writer
	newBackOff func() backoff.BackOff
}

func NewConsumer(
	reader Reader,
	checker recordChecker,
	metricsManager *metrics.Manager,
	records Writer,
) *Consumer {
	return &Consumer{
		reader:         reader,
		checker:        checker,
		metricsManager: metricsManager,
		records:        records,
		newBackOff:     defaultBackOff,
	}
}

// WithBackOff replaces the schedule failed messages are retried on.
func (c *Consumer) WithBackOff(newBackOff func() backoff.BackOff) *Consumer {
	c.newBackOff = newBackOff
	return c
}

// defaultBackOff retries for as long as the consumer runs.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run processes messages until ctx is cancelled. Messages that cannot be
// decoded are committed and dropped. A message whose handling failed is
// retried in place until it goes through: commits are cumulative per
// partition, so committing a later message would skip it for good.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Errorf("events: fetch message: %s", err)
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			// the message stays uncommitted and is redelivered after a restart
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Errorf("events: commit message [offset=%d]: %s", msg.Offset, err)
		}
	}
}

// process handles msg until it either succeeds or is known to be
// unprocessable. It returns an error when ctx ends or the back-off gives up
// first.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	attempt := func() error {
		outcome, err := c.handle(ctx, msg)
		c.metricsManager.CounterConsumedEvents.WithLabelValues(outcome).Inc()
		if err == nil {
			return nil
		}
		if outcome != outcomeFailed {
			log.Errorf("events: dropping message [topic=%s partition=%d offset=%d]: %s",
				msg.Topic, msg.Partition, msg.Offset, err)
			return nil
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Errorf("events: handle message [topic=%s partition=%d offset=%d], retrying in %s: %s",
			msg.Topic, msg.Partition, msg.Offset, wait, err)
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(c.newBackOff(), ctx), notify)
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "events.handle")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	evType := eventType(msg)
	span.SetAttributes(attribute.String("event_type", evType))
	if evType != SetLoggedType {
		log.Tracef("events: skipping event type [%s]", evType)
		return outcomeSkipped, nil
	}

	event, err := decodeSetLogged(msg)
	if err != nil {
		return outcomeMalformed, err
	}
	span.SetAttributes(
		attribute.String("path", event.ExercisePath().String()),
		attribute.String("set", event.SetID),
	)

	// every cached view of this user may now be stale
	if err := c.checker.InvalidateUser(ctx, event.UserID); err != nil {
		return outcomeFailed, err
	}

	pr, err := c.checker.CheckSetForPR(ctx, event.UserID, event.ExercisePath(), event.SetID)
	if errors.Is(err, workouts.ErrNotFound) {
		// deleted again before we got to it
		log.Debugf("events: set %s for user %s no longer exists", event.SetID, event.UserID)
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeFailed, err
	}
	if pr == nil {
		return outcomeProcessed, nil
	}

	log.Infof("events: new %s record for user %s on %s: %s",
		pr.Type, event.UserID, pr.ExerciseName, pr.Type.Format(pr.Value))
	if err := c.publishRecord(ctx, event.UserID, *pr); err != nil {
		return outcomeFailed, err
	}
	return outcomeRecord, nil
}

func (c *Consumer) publishRecord(ctx context.Context, userID string, pr prs.PersonalRecord) error {
	if c.records == nil {
		return nil
	}
	value, err := json.Marshal(pr)
	if err != nil {
		return err
	}
	return c.records.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(RecordSetType)},
		},
	})
}
