package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskLeadNotify is the asynq task type carrying a Submission.
const TaskLeadNotify = "lead.notify"

// NewLeadNotifyTask wraps s in a task that is never retried.
func NewLeadNotifyTask(s Submission) (*asynq.Task, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadNotify, data, asynq.MaxRetry(0)), nil
}

// ParseLeadNotifyPayload decodes the Submission carried by task.
func ParseLeadNotifyPayload(task *asynq.Task) (Submission, error) {
	var s Submission
	if err := json.Unmarshal(task.Payload(), &s); err != nil {
		return Submission{}, err
	}
	return s, nil
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// AsynqQueue is a Handler that forwards submissions to Redis for an
// AsynqWorker to deliver. Put it behind a Dispatcher so the Redis round
// trip stays off the request path.
type AsynqQueue struct {
	client *asynq.Client
	queue  string
	log    zerolog.Logger
}

// NewAsynqQueue connects an asynq client to redisURL.
func NewAsynqQueue(redisURL, queue string, log zerolog.Logger) (*AsynqQueue, error) {
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	return &AsynqQueue{client: asynq.NewClient(opt), queue: queue, log: log}, nil
}

// Handle implements Handler.
func (q *AsynqQueue) Handle(ctx context.Context, s Submission) error {
	task, err := NewLeadNotifyTask(s)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(q.queue)); err != nil {
		notifications.WithLabelValues(kindSubmission, outcomeFailed).Inc()
		q.log.Error().Err(err).Uint("lead_id", s.LeadID).Msg("notification enqueue failed")
		return err
	}
	notifications.WithLabelValues(kindSubmission, outcomeQueued).Inc()
	return nil
}

// Close releases the Redis connection.
func (q *AsynqQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

// AsynqWorker consumes lead.notify tasks and delivers them with a Handler,
// normally a *Deliverer.
type AsynqWorker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler Handler
	log     zerolog.Logger
}

// NewAsynqWorker builds a worker bound to queue on redisURL.
func NewAsynqWorker(redisURL, queue string, concurrency int, h Handler, log zerolog.Logger) (*AsynqWorker, error) {
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
	})
	w := &AsynqWorker{
		server:  server,
		mux:     asynq.NewServeMux(),
		handler: h,
		log:     log,
	}
	w.mux.HandleFunc(TaskLeadNotify, w.handleLeadNotify)
	return w, nil
}

func (w *AsynqWorker) handleLeadNotify(ctx context.Context, task *asynq.Task) error {
	s, err := ParseLeadNotifyPayload(task)
	if err != nil {
		// Malformed payloads can never succeed.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := w.handler.Handle(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}

// Run processes tasks until ctx is cancelled.
func (w *AsynqWorker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	if err := w.server.Run(w.mux); err != nil {
		w.log.Error().Err(err).Msg("notification worker stopped")
	}
}
