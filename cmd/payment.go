package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/subscription-billing/internal/confirmation"
	paymentPostgres "github.com/frahmantamala/subscription-billing/internal/payment/postgres"
	"github.com/frahmantamala/subscription-billing/pkg/logger"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Payment commands",
	Long:  `Confirm payments and inspect their status from the command line`,
}

var confirmPaymentCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a pending payment",
	Long:  `Confirm a payment as an operator would after a manual bank reconciliation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfirmPayment(cmd.Context())
	},
}

var paymentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a payment and its entity status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPaymentStatus(cmd.Context())
	},
}

var (
	confirmPaymentID      int64
	confirmMethod         string
	confirmInstallments   int
	confirmIdempotencyKey string
	confirmExternalID     string
)

func runConfirmPayment(ctx context.Context) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		app.Close(closeCtx)
	}()

	req := confirmation.Request{
		PaymentID:        confirmPaymentID,
		Method:           confirmMethod,
		InstallmentCount: confirmInstallments,
	}
	if confirmIdempotencyKey != "" {
		req.IdempotencyKey = &confirmIdempotencyKey
	}
	if confirmExternalID != "" {
		req.ExternalTransactionID = &confirmExternalID
	}

	ctx = logger.With(ctx, "traceID", uuid.NewString(), "source", "cli")
	result, err := app.Orchestrator.ConfirmPayment(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runPaymentStatus(ctx context.Context) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := paymentPostgres.NewStatusReader(db).Get(ctx, confirmPaymentID)
	if err != nil {
		lg.Warn("payment status lookup failed", "payment_id", confirmPaymentID, "error", err)
		return fmt.Errorf("payment %d: %w", confirmPaymentID, err)
	}
	return printJSON(status)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	confirmPaymentCmd.Flags().Int64Var(&confirmPaymentID, "id", 0, "Payment id")
	confirmPaymentCmd.Flags().StringVar(&confirmMethod, "method", "", "Payment method (upfront, pix, boleto, credit_card)")
	confirmPaymentCmd.Flags().IntVar(&confirmInstallments, "installments", 1, "Number of installments")
	confirmPaymentCmd.Flags().StringVar(&confirmIdempotencyKey, "idempotency-key", "", "Idempotency key of the payment platform")
	confirmPaymentCmd.Flags().StringVar(&confirmExternalID, "external-id", "", "External transaction id")
	_ = confirmPaymentCmd.MarkFlagRequired("id")

	paymentStatusCmd.Flags().Int64Var(&confirmPaymentID, "id", 0, "Payment id")
	_ = paymentStatusCmd.MarkFlagRequired("id")

	paymentCmd.AddCommand(confirmPaymentCmd)
	paymentCmd.AddCommand(paymentStatusCmd)

	rootCmd.AddCommand(paymentCmd)
}
