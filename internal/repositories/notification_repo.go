package repositories

import (
	"context"

	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/google/uuid"
)

type NotificationRepo struct {
	db db.Querier
}

func NewNotificationRepo(q db.Querier) *NotificationRepo {
	return &NotificationRepo{db: q}
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_address, type, title, message, related_escrow_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, n.UserAddress, n.Type, n.Title, n.Message, n.RelatedEscrowID).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepo) ListByUser(ctx context.Context, address string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, user_address, type, title, message, related_escrow_id, read, created_at
		FROM notifications WHERE user_address = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserAddress, &n.Type, &n.Title, &n.Message,
			&n.RelatedEscrowID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID, address string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_address = $2
	`, id, address)
	return err
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, address string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_address = $1 AND read = FALSE
	`, address)
	return err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, address string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_address = $1 AND read = FALSE
	`, address).Scan(&n)
	return n, err
}
