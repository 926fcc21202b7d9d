package notification

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	notificationDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/notification"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Store delivers notifications by writing them to the notifications table,
// which the account dashboard reads.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Send(ctx context.Context, msg Message) error {
	row := &notificationDatamodel.Notification{
		Kind:              msg.Kind,
		RecipientEntityID: msg.RecipientEntityID,
		Title:             msg.Title,
		Body:              msg.Body,
		Context:           datatypes.JSONMap(msg.Context),
		ActionLink:        msg.ActionLink,
		Priority:          msg.Priority,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *Store) ListForEntity(ctx context.Context, entityID int64) ([]Notification, error) {
	var rows []notificationDatamodel.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_entity_id = ?", entityID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, Notification{
			ID:                r.ID,
			Kind:              r.Kind,
			RecipientEntityID: r.RecipientEntityID,
			Title:             r.Title,
			Body:              r.Body,
			Context:           r.Context,
			ActionLink:        r.ActionLink,
			Priority:          r.Priority,
			Read:              r.Read,
			CreatedAt:         r.CreatedAt,
		})
	}
	return out, nil
}
