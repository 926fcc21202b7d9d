package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/subscription-billing/internal/audit"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish billing events and inspect the audit trail they produce`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a billing event",
	Long:  `Publish a billing event so its audit entry is recorded, e.g. after a manual reconciliation`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishBillingEvent(cmd.Context(), args[0])
	},
}

var auditTrailCmd = &cobra.Command{
	Use:   "trail [resource-type] [resource-id]",
	Short: "Print the audit trail of a payment or entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printAuditTrail(cmd.Context(), args[0], args[1])
	},
}

var (
	eventPaymentID int64
	eventEntityID  int64
	eventData      string
)

func buildBillingEvent(eventType string, at time.Time) (events.Event, error) {
	switch eventType {
	case events.EventTypePaymentConfirmed:
		return events.NewPaymentConfirmedEvent(eventPaymentID, eventEntityID, "", 0, false, at), nil
	case events.EventTypeEntityActivated:
		return events.NewEntityActivatedEvent(eventEntityID, eventPaymentID, false, at), nil
	case events.EventTypePaymentCompensated:
		return events.NewPaymentCompensatedEvent(eventPaymentID, eventEntityID, eventData, "", at), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func publishBillingEvent(ctx context.Context, eventType string) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Close(closeCtx)
	}()

	event, err := buildBillingEvent(eventType, time.Now().UTC())
	if err != nil {
		return err
	}

	lg.Info("publishing event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := app.Bus.PublishSync(ctx, event); err != nil {
		lg.Error("failed to publish event", "error", err)
		return err
	}

	lg.Info("event published successfully", "event_id", event.EventID())
	return nil
}

func printAuditTrail(ctx context.Context, resourceType, resourceID string) error {
	if resourceType != audit.ResourcePayment && resourceType != audit.ResourceEntity {
		return fmt.Errorf("resource type must be %q or %q", audit.ResourcePayment, audit.ResourceEntity)
	}

	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, lg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	entries, err := app.Recorder.List(ctx, resourceType, resourceID)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventPaymentID, "payment-id", 0, "Payment id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventEntityID, "entity-id", 0, "Contracting entity id carried by the event")
	publishEventCmd.Flags().StringVar(&eventData, "cause", "manual reconciliation", "Cause recorded on compensation events")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(auditTrailCmd)

	rootCmd.AddCommand(eventCmd)
}
