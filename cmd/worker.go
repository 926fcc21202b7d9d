package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/notification"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background jobs",
	Long:  `Run the worker pools used for out-of-band billing jobs such as reminder delivery.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Re-send installment reminders for a paid payment",
	Long:  `Queue the installment reminders of a paid payment on the notification worker pool and wait for delivery`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReminderWorker(cmd.Context())
	},
}

var (
	maxWorkers       int
	jobQueueSize     int
	reminderPayment  int64
	reminderDeadline time.Duration
)

func runReminderWorker(ctx context.Context) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), reminderDeadline)
		defer cancel()
		app.Close(closeCtx)
	}()

	snap, err := app.Ledger.Get(ctx, reminderPayment)
	if err != nil {
		return fmt.Errorf("payment %d: %w", reminderPayment, err)
	}
	if !snap.IsPaid() {
		return fmt.Errorf("payment %d is %s, reminders are only sent for paid payments", snap.ID, snap.Status)
	}

	// Use command line flags if provided, otherwise use config values
	dispatcherCfg := notification.DispatcherConfig{
		MaxWorkers: getIntFlag(maxWorkers, cfg.Notification.MaxWorkers),
		QueueSize:  getIntFlag(jobQueueSize, cfg.Notification.QueueSize),
	}
	lg.Info("starting reminder worker",
		"payment_id", snap.ID,
		"installments", len(snap.Installments),
		"max_workers", dispatcherCfg.MaxWorkers,
		"job_queue_size", dispatcherCfg.QueueSize)

	dispatcher := notification.NewDispatcher(app.Notifier, dispatcherCfg, lg)
	emitter := notification.NewEmitter(app.Notifier, dispatcher, notification.EmissionPolicy{
		Environment: internal.EnvironmentProduction,
	}, lg)

	queued, emitErr := emitter.EmitInstallmentReminders(ctx, notification.Reminder{
		PaymentID: snap.ID,
		EntityID:  snap.EntityID,
		Schedule:  snap.Installments,
	})

	shutdownDone := make(chan struct{})
	go func() {
		dispatcher.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("reminder worker pool shutdown complete", "queued", queued)
	case <-time.After(reminderDeadline):
		lg.Warn("shutdown timeout reached, forcing exit", "queued", queued)
	}

	return emitErr
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	reminderWorkerCmd.Flags().Int64Var(&reminderPayment, "payment-id", 0, "Paid payment whose reminders are re-sent")
	reminderWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	reminderWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	reminderWorkerCmd.Flags().DurationVar(&reminderDeadline, "timeout", 30*time.Second, "How long to wait for queued reminders")
	_ = reminderWorkerCmd.MarkFlagRequired("payment-id")

	workerCmd.AddCommand(reminderWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
