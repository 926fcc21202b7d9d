package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/payment"
	"github.com/frahmantamala/subscription-billing/internal/transport"
	"github.com/frahmantamala/subscription-billing/pkg/logger"
)

type ServiceAPI interface {
	ConfirmPayment(ctx context.Context, req Request) (*Result, error)
}

type StatusReader interface {
	Get(ctx context.Context, id int64) (*payment.Status, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Status  StatusReader
}

func NewHandler(service ServiceAPI, status StatusReader, exposeErrorDetails bool) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	base := transport.NewBaseHandler(lg)
	base.ExposeErrorDetails = exposeErrorDetails
	return &Handler{
		BaseHandler: base,
		Service:     service,
		Status:      status,
	}
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var dto ConfirmPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Warn("ConfirmPayment: invalid request body", "error", err)
		h.HandleServiceError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	result, err := h.Service.ConfirmPayment(r.Context(), dto.ToRequest())
	if err != nil {
		h.Logger.Warn("ConfirmPayment: confirmation failed", "error", err, "payment_id", dto.PaymentID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.HandleServiceError(w, internal.NewValidationFieldError("id", "payment id must be a positive integer", internal.ErrCodeInvalidPaymentID))
		return
	}

	status, err := h.Status.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			h.HandleServiceError(w, internal.ErrPaymentNotFound)
			return
		}
		h.Logger.Error("GetPaymentStatus: read failed", "error", err, "payment_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}
