package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
	"github.com/urbanfIare/dmt-app/internal/services"
)

const (
	maxAttempts = 3
	lockTTL     = 10 * time.Minute
	popTimeout  = 30 * time.Second
)

// UserChannel is the pub/sub channel the websocket hub subscribes to.
func UserChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, UserChannel(userID), data).Err()
}

// Pool drains the notification queue and delivers each job to its recipients.
type Pool struct {
	redis       *redis.Client
	members     repository.MemberDirectory
	publisher   Publisher
	clock       clock.Clock
	workerCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	members repository.MemberDirectory,
	publisher Publisher,
	clk clock.Clock,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		members:     members,
		publisher:   publisher,
		clock:       clk,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.worker(id)
		}(i)
	}

	log.Printf("Started %d notification workers", p.workerCount)
}

func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	for {
		if p.ctx.Err() != nil {
			log.Printf("Worker %d shutting down", id)
			return
		}

		result, err := p.redis.BLPop(p.ctx, popTimeout, services.NotificationQueue).Result()
		if err != nil {
			continue // timeout, shutdown or transient error
		}
		if len(result) < 2 {
			continue
		}

		var job models.NotificationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse notification job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s:%d", job.ID, job.RetryCount)
		locked, err := p.redis.SetNX(p.ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue // another worker has this job
		}

		if err := p.Deliver(p.ctx, &job); err != nil {
			p.handleFailure(&job, err)
		}

		p.redis.Del(context.Background(), lockKey)
	}
}

// Deliver resolves the recipients of job and publishes one message to each.
// Every recipient is attempted; the joined error reports those that failed.
func (p *Pool) Deliver(ctx context.Context, job *models.NotificationJob) error {
	recipients, err := p.recipients(ctx, job)
	if err != nil {
		return fmt.Errorf("resolve recipients for %s: %w", job.Event, err)
	}

	var errs []error
	for _, n := range buildNotifications(job, recipients, p.clock.Now()) {
		msg := models.WSMessage{Type: "notification", Payload: n}
		if err := p.publisher.Publish(ctx, n.RecipientID, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", n.RecipientID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) recipients(ctx context.Context, job *models.NotificationJob) ([]uuid.UUID, error) {
	switch job.Event {
	case models.EventExceptionProcessed:
		if job.UserID == nil {
			return nil, nil
		}
		return []uuid.UUID{*job.UserID}, nil
	case models.EventExceptionRequested:
		leader, ok, err := p.members.LeaderOf(ctx, job.GroupID)
		if err != nil || !ok {
			return nil, err
		}
		return []uuid.UUID{leader}, nil
	default:
		members, err := p.members.ActiveMembers(ctx, job.GroupID)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		return ids, nil
	}
}

// buildNotifications renders the user-facing text for job once per recipient.
func buildNotifications(job *models.NotificationJob, recipients []uuid.UUID, now time.Time) []models.Notification {
	title, message := render(job)
	if title == "" {
		return nil
	}

	out := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, models.Notification{
			RecipientID: id,
			Event:       job.Event,
			SessionID:   job.SessionID,
			GroupID:     job.GroupID,
			Title:       title,
			Message:     message,
			SentAt:      now,
		})
	}
	return out
}

func render(job *models.NotificationJob) (string, string) {
	switch job.Event {
	case models.EventSessionStarted:
		return "Study session started", fmt.Sprintf("%s has started. Phone use is now restricted.", job.SessionName)
	case models.EventSessionEnded:
		return "Study session ended", fmt.Sprintf("%s has ended. Phone restriction is lifted.", job.SessionName)
	case models.EventPhoneRestrictionOn:
		return "Phone restriction on", fmt.Sprintf("Phone use is restricted during %s.", job.SessionName)
	case models.EventPhoneRestrictionOff:
		return "Phone restriction off", fmt.Sprintf("%s is over and your phone restriction has been lifted.", job.SessionName)
	case models.EventExceptionRequested:
		return "Phone exception requested", fmt.Sprintf("A member requested a phone exception for %s.", job.SessionName)
	case models.EventExceptionProcessed:
		message := "Your phone exception request was rejected."
		if job.Decision == models.ExceptionApproved {
			message = "Your phone exception request was approved."
		}
		if job.Note != "" {
			message += " Reason: " + job.Note
		}
		return "Phone exception processed", message
	default:
		return "", ""
	}
}

// backoff is the delay before attempt n+1.
func backoff(retry int) time.Duration {
	return time.Duration(1<<uint(retry)) * time.Second
}

func (p *Pool) handleFailure(job *models.NotificationJob, err error) {
	job.RetryCount++

	if job.RetryCount >= maxAttempts {
		log.Printf("Notification %s (%s) failed permanently: %v", job.ID, job.Event, err)
		return
	}

	log.Printf("Notification %s (%s) failed (attempt %d): %v; retrying", job.ID, job.Event, job.RetryCount, err)
	payload, _ := json.Marshal(job)
	time.AfterFunc(backoff(job.RetryCount), func() {
		if err := p.redis.LPush(context.Background(), services.NotificationQueue, payload).Err(); err != nil {
			log.Printf("Notification %s: failed to requeue: %v", job.ID, err)
		}
	})
}
