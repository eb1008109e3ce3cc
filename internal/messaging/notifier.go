package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeDeliverNotification = "notification:deliver"
)

// Enqueuer is the part of *asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier hands notification payloads to the task queue. Delivery is
// the worker's concern.
type AsynqNotifier struct {
	client Enqueuer
	queue  string
}

func NewAsynqNotifier(client Enqueuer, queue string) *AsynqNotifier {
	if queue == "" {
		queue = "default"
	}
	return &AsynqNotifier{client: client, queue: queue}
}

func (n *AsynqNotifier) Notify(ctx context.Context, note *domain.Notification) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	taskID := fmt.Sprintf("notify:%s:%d:%s", note.Template, note.RecipientID, uuid.NewString())
	task := asynq.NewTask(TypeDeliverNotification, payload)

	logger.ExternalServiceCall("asynq", "Enqueue", "taskID", taskID, "template", note.Template)
	info, err := n.client.EnqueueContext(ctx, task, asynq.TaskID(taskID), asynq.Queue(n.queue), asynq.MaxRetry(5))
	logger.ExternalServiceResult("asynq", "Enqueue", err, "taskID", taskID)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	logger.Debug("Notification enqueued", "taskID", info.ID, "queue", info.Queue)
	return nil
}

// OutboxNotifier writes payloads to the notifications table for an external
// dispatcher to pick up.
type OutboxNotifier struct {
	repo repository.NotificationRepository
}

func NewOutboxNotifier(repo repository.NotificationRepository) *OutboxNotifier {
	return &OutboxNotifier{repo: repo}
}

func (n *OutboxNotifier) Notify(ctx context.Context, note *domain.Notification) error {
	if err := n.repo.Create(ctx, note); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// DeliveryHandler consumes notification tasks on the worker side and records
// them in the outbox, which is the hand-off point to the messaging provider.
type DeliveryHandler struct {
	repo repository.NotificationRepository
}

func NewDeliveryHandler(repo repository.NotificationRepository) *DeliveryHandler {
	return &DeliveryHandler{repo: repo}
}

func (h *DeliveryHandler) HandleDeliverNotification(ctx context.Context, t *asynq.Task) error {
	var note domain.Notification
	if err := json.Unmarshal(t.Payload(), &note); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if note.RecipientID == 0 || note.Template == "" {
		return fmt.Errorf("incomplete notification payload: %w", asynq.SkipRetry)
	}
	note.ID = 0
	return h.repo.Create(ctx, &note)
}

// Register wires the task handlers into an asynq mux.
func (h *DeliveryHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDeliverNotification, h.HandleDeliverNotification)
}
