// Package audit keeps a durable trail of billing state changes made by the
// confirmation flow, compensations included.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	auditDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/audit"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
)

const (
	ResourcePayment = "payment"
	ResourceEntity  = "contracting_entity"
)

type Entry struct {
	EventID      string                 `json:"event_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	ActorID      string                 `json:"actor_id,omitempty"`
	ActorIP      string                 `json:"actor_ip,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// Recorder writes audit entries. Entries are keyed by event id, so recording
// the same event twice keeps a single row.
type Recorder struct {
	db      *gorm.DB
	actorID string
	actorIP string
	logger  *slog.Logger
}

func NewRecorder(db *gorm.DB, actorID, actorIP string, logger *slog.Logger) *Recorder {
	return &Recorder{
		db:      db,
		actorID: actorID,
		actorIP: actorIP,
		logger:  logger,
	}
}

// Subscribe registers the recorder for every billing event it audits.
func (r *Recorder) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentConfirmed, r.Handle)
	bus.Subscribe(events.EventTypeEntityActivated, r.Handle)
	bus.Subscribe(events.EventTypePaymentCompensated, r.Handle)
}

func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	entry, err := r.entryFor(event)
	if err != nil {
		return err
	}
	return r.Record(ctx, entry)
}

func (r *Recorder) entryFor(event events.Event) (Entry, error) {
	entry := Entry{
		EventID:    event.EventID(),
		Action:     event.EventType(),
		ActorID:    r.actorID,
		ActorIP:    r.actorIP,
		OccurredAt: event.OccurredAt(),
	}
	if data, ok := event.Payload().(map[string]interface{}); ok {
		entry.Metadata = data
	}

	switch e := event.(type) {
	case *events.PaymentConfirmedEvent:
		entry.ResourceType = ResourcePayment
		entry.ResourceID = strconv.FormatInt(e.PaymentID, 10)
	case *events.PaymentCompensatedEvent:
		entry.ResourceType = ResourcePayment
		entry.ResourceID = strconv.FormatInt(e.PaymentID, 10)
	case *events.EntityActivatedEvent:
		entry.ResourceType = ResourceEntity
		entry.ResourceID = strconv.FormatInt(e.EntityID, 10)
	default:
		return Entry{}, fmt.Errorf("audit: unsupported event type %s", event.EventType())
	}
	return entry, nil
}

func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	row := &auditDatamodel.Log{
		EventID:      entry.EventID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Metadata:     datatypes.JSONMap(entry.Metadata),
		OccurredAt:   entry.OccurredAt,
	}
	if entry.ActorID != "" {
		row.ActorID = &entry.ActorID
	}
	if entry.ActorIP != "" {
		row.ActorIP = &entry.ActorIP
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("record audit entry %s: %w", entry.Action, err)
	}

	r.logger.Debug("audit entry recorded",
		"action", entry.Action,
		"resource_type", entry.ResourceType,
		"resource_id", entry.ResourceID)
	return nil
}

func (r *Recorder) List(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	var rows []auditDatamodel.Log
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("occurred_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{
			EventID:      row.EventID,
			Action:       row.Action,
			ResourceType: row.ResourceType,
			ResourceID:   row.ResourceID,
			Metadata:     row.Metadata,
			OccurredAt:   row.OccurredAt,
		}
		if row.ActorID != nil {
			entry.ActorID = *row.ActorID
		}
		if row.ActorIP != nil {
			entry.ActorIP = *row.ActorIP
		}
		out = append(out, entry)
	}
	return out, nil
}
