package confirmation

// ConfirmPaymentDTO is the body of POST /payments/confirm.
type ConfirmPaymentDTO struct {
	PaymentID             int64   `json:"payment_id"`
	PaymentMethod         string  `json:"payment_method"`
	InstallmentCount      *int    `json:"installment_count"`
	IdempotencyKey        *string `json:"idempotency_key"`
	ExternalTransactionID *string `json:"external_transaction_id"`
	PlatformID            *string `json:"platform_id"`
	PlatformName          *string `json:"platform_name"`
}

// ToRequest fills in one installment when the count is omitted.
func (d ConfirmPaymentDTO) ToRequest() Request {
	count := 1
	if d.InstallmentCount != nil {
		count = *d.InstallmentCount
	}
	return Request{
		PaymentID:             d.PaymentID,
		Method:                d.PaymentMethod,
		InstallmentCount:      count,
		IdempotencyKey:        d.IdempotencyKey,
		ExternalTransactionID: d.ExternalTransactionID,
		PlatformID:            d.PlatformID,
		PlatformName:          d.PlatformName,
	}
}
