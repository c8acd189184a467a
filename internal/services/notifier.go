package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
)

const NotificationQueue = "queue:notifications"

// Notifier receives lifecycle events. Callers log failures and carry on;
// a notification never undoes the transition that triggered it.
type Notifier interface {
	SessionStarted(ctx context.Context, s *models.StudySession) error
	SessionEnded(ctx context.Context, s *models.StudySession) error
	PhoneRestrictionOn(ctx context.Context, s *models.StudySession) error
	PhoneRestrictionOff(ctx context.Context, s *models.StudySession) error
	ExceptionRequested(ctx context.Context, userID uuid.UUID, s *models.StudySession) error
	ExceptionProcessed(ctx context.Context, userID uuid.UUID, s *models.StudySession, decision models.ExceptionStatus, note string) error
}

type NopNotifier struct{}

func (NopNotifier) SessionStarted(context.Context, *models.StudySession) error      { return nil }
func (NopNotifier) SessionEnded(context.Context, *models.StudySession) error        { return nil }
func (NopNotifier) PhoneRestrictionOn(context.Context, *models.StudySession) error  { return nil }
func (NopNotifier) PhoneRestrictionOff(context.Context, *models.StudySession) error { return nil }
func (NopNotifier) ExceptionRequested(context.Context, uuid.UUID, *models.StudySession) error {
	return nil
}
func (NopNotifier) ExceptionProcessed(context.Context, uuid.UUID, *models.StudySession, models.ExceptionStatus, string) error {
	return nil
}

// Queue is the push side of a job queue.
type Queue interface {
	Push(ctx context.Context, queue string, payload []byte) error
}

type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Push(ctx context.Context, queue string, payload []byte) error {
	return q.client.LPush(ctx, queue, payload).Err()
}

// QueueNotifier turns events into NotificationJobs for the worker pool.
type QueueNotifier struct {
	queue Queue
	clock clock.Clock
}

func NewQueueNotifier(queue Queue, clk clock.Clock) *QueueNotifier {
	return &QueueNotifier{queue: queue, clock: clk}
}

func (n *QueueNotifier) SessionStarted(ctx context.Context, s *models.StudySession) error {
	return n.enqueue(ctx, n.job(models.EventSessionStarted, s))
}

func (n *QueueNotifier) SessionEnded(ctx context.Context, s *models.StudySession) error {
	return n.enqueue(ctx, n.job(models.EventSessionEnded, s))
}

func (n *QueueNotifier) PhoneRestrictionOn(ctx context.Context, s *models.StudySession) error {
	return n.enqueue(ctx, n.job(models.EventPhoneRestrictionOn, s))
}

func (n *QueueNotifier) PhoneRestrictionOff(ctx context.Context, s *models.StudySession) error {
	return n.enqueue(ctx, n.job(models.EventPhoneRestrictionOff, s))
}

func (n *QueueNotifier) ExceptionRequested(ctx context.Context, userID uuid.UUID, s *models.StudySession) error {
	job := n.job(models.EventExceptionRequested, s)
	job.UserID = &userID
	return n.enqueue(ctx, job)
}

func (n *QueueNotifier) ExceptionProcessed(ctx context.Context, userID uuid.UUID, s *models.StudySession, decision models.ExceptionStatus, note string) error {
	job := n.job(models.EventExceptionProcessed, s)
	job.UserID = &userID
	job.Decision = decision
	job.Note = note
	return n.enqueue(ctx, job)
}

func (n *QueueNotifier) job(event models.NotificationEvent, s *models.StudySession) *models.NotificationJob {
	return &models.NotificationJob{
		ID:          uuid.New(),
		Event:       event,
		SessionID:   s.ID,
		GroupID:     s.GroupID,
		SessionName: s.Name,
		CreatedAt:   n.clock.Now(),
	}
}

func (n *QueueNotifier) enqueue(ctx context.Context, job *models.NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}
	if err := n.queue.Push(ctx, NotificationQueue, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Event, err)
	}
	return nil
}

func logNotifyErr(component string, event models.NotificationEvent, sessionID uuid.UUID, err error) {
	if err != nil {
		log.Printf("%s: notify %s for session %s: %v", component, event, sessionID, err)
	}
}
