package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository stores notifications in an outbox table that a
// delivery worker drains.
func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "recipientID", n.RecipientID, "template", n.Template)

	attrs, err := json.Marshal(n.Attributes)
	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to marshal attributes")
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO notifications (recipient_id, template, message, attributes, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "recipientID", n.RecipientID)
	err = r.db.QueryRowContext(ctx, query, n.RecipientID, n.Template, n.Message, attrs, n.CreatedAt).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "recipientID", n.RecipientID)
	} else {
		logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	}
	return err
}
