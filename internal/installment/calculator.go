package installment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid installment input")

// Compute splits total into count installments due monthly from start.
// Every installment but the last gets total/count rounded to cents; the last
// absorbs the remainder so the sum is exact. Installment 1 is paid at start.
func Compute(total decimal.Decimal, count int, start time.Time) (Schedule, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: installment count must be at least 1, got %d", ErrInvalidInput, count)
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: total amount must not be negative, got %s", ErrInvalidInput, total)
	}

	n := decimal.NewFromInt(int64(count))
	others := decimal.NewFromInt(int64(count - 1))

	base := total.Div(n).Round(2)
	if base.Mul(others).GreaterThan(total) {
		// rounding up would leave a negative last installment
		base = total.Div(n).RoundFloor(2)
	}
	last := total.Sub(base.Mul(others))

	paidAt := start
	schedule := make(Schedule, 0, count)
	for i := 1; i <= count; i++ {
		inst := Installment{
			Number:  i,
			Amount:  base,
			DueDate: AddMonths(start, i-1),
		}
		if i == count {
			inst.Amount = last
		}
		if i == 1 {
			inst.Paid = true
			inst.PaidAt = &paidAt
		}
		schedule = append(schedule, inst)
	}

	return schedule, nil
}

// AddMonths moves t forward by months keeping the day of month, clamped to
// the last day of shorter months (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
