package installment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dueDateLayout = "2006-01-02"

// Installment is one slice of a payment total. Its JSON shape is read by the
// receipt and dashboard readers, so field names are fixed.
type Installment struct {
	Number  int
	Amount  decimal.Decimal
	DueDate time.Time
	Paid    bool
	PaidAt  *time.Time
}

type wireInstallment struct {
	Number  int         `json:"numero"`
	Amount  json.Number `json:"valor"`
	DueDate string      `json:"data_vencimento"`
	Paid    bool        `json:"pago"`
	PaidAt  *time.Time  `json:"data_pagamento"`
}

func (i Installment) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireInstallment{
		Number:  i.Number,
		Amount:  json.Number(i.Amount.StringFixed(2)),
		DueDate: i.DueDate.Format(dueDateLayout),
		Paid:    i.Paid,
		PaidAt:  i.PaidAt,
	})
}

func (i *Installment) UnmarshalJSON(data []byte) error {
	var w wireInstallment
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(w.Amount.String())
	if err != nil {
		return fmt.Errorf("installment %d: invalid valor %q: %w", w.Number, w.Amount, err)
	}

	due, err := time.Parse(dueDateLayout, w.DueDate)
	if err != nil {
		return fmt.Errorf("installment %d: invalid data_vencimento %q: %w", w.Number, w.DueDate, err)
	}

	*i = Installment{
		Number:  w.Number,
		Amount:  amount,
		DueDate: due,
		Paid:    w.Paid,
		PaidAt:  w.PaidAt,
	}
	return nil
}

type Schedule []Installment

func (s Schedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s {
		total = total.Add(inst.Amount)
	}
	return total
}

// Upcoming returns the installments that are still unpaid.
func (s Schedule) Upcoming() Schedule {
	var out Schedule
	for _, inst := range s {
		if !inst.Paid {
			out = append(out, inst)
		}
	}
	return out
}
