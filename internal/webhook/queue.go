package webhook

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Enqueue when the target shard has no room.
var ErrQueueFull = errors.New("update queue is full")

// ErrQueueClosed is returned by Enqueue once Run has returned.
var ErrQueueClosed = errors.New("update queue is closed")

// Queue runs updates on a fixed set of workers. Updates of one chat always
// land on the same worker, so a chat's turns never overlap.
type Queue struct {
	shards      []chan *models.Update
	handler     HandlerFunc
	turnTimeout time.Duration
	log         *slog.Logger
	done        chan struct{}
}

// NewQueue creates a queue with workers shards of size slots each.
func NewQueue(workers, size int, turnTimeout time.Duration, handler HandlerFunc, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	shards := make([]chan *models.Update, workers)
	for i := range shards {
		shards[i] = make(chan *models.Update, size)
	}
	return &Queue{
		shards:      shards,
		handler:     handler,
		turnTimeout: turnTimeout,
		log:         logger.With("component", "update_queue"),
		done:        make(chan struct{}),
	}
}

// Enqueue schedules update without blocking.
func (q *Queue) Enqueue(update *models.Update) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	shard := q.shards[q.shardFor(ChatID(update))]
	select {
	case shard <- update:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) shardFor(chatID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(chatID, 10)))
	return int(h.Sum32() % uint32(len(q.shards))) //nolint:gosec // shard count is small and positive
}

// Run starts the workers and blocks until ctx is cancelled and every
// in-flight turn has finished.
func (q *Queue) Run(ctx context.Context) error {
	q.log.Info("Starting update workers", "workers", len(q.shards))

	g, gCtx := errgroup.WithContext(ctx)
	for i, shard := range q.shards {
		g.Go(func() error {
			q.work(gCtx, i, shard)
			return nil
		})
	}
	err := g.Wait()
	close(q.done)

	pending := 0
	for _, shard := range q.shards {
		pending += len(shard)
	}
	if pending > 0 {
		q.log.Warn("Update workers stopped with pending updates", "pending", pending)
	}
	q.log.Info("Update workers stopped")
	return err
}

func (q *Queue) work(ctx context.Context, worker int, updates <-chan *models.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			// A turn outlives shutdown of the intake so replies already
			// underway are delivered.
			turnCtx := context.WithoutCancel(ctx)
			if q.turnTimeout > 0 {
				var cancel context.CancelFunc
				turnCtx, cancel = context.WithTimeout(turnCtx, q.turnTimeout)
				q.process(turnCtx, worker, update)
				cancel()
				continue
			}
			q.process(turnCtx, worker, update)
		}
	}
}

// process runs one turn behind its own error boundary.
func (q *Queue) process(ctx context.Context, worker int, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			q.log.ErrorContext(ctx, "Recovered from panic while processing update",
				"worker", worker, "update_id", update.ID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	if err := q.handler(ctx, update); err != nil {
		q.log.DebugContext(ctx, "Update handler returned error", "worker", worker, "update_id", update.ID, "error", err)
	}
}

// ChatID returns the chat an update belongs to, or 0 when it has none.
func ChatID(update *models.Update) int64 {
	switch {
	case update == nil:
		return 0
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.MyChatMember != nil:
		return update.MyChatMember.Chat.ID
	default:
		return 0
	}
}
