package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineMultiplier is applied on top of the daily fee for every late day.
var FineMultiplier = decimal.NewFromInt(2)

// ComputeFine is the only place a fine amount is calculated.
func ComputeFine(overdueDays int64, dailyFee decimal.Decimal) decimal.Decimal {
	if overdueDays <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(overdueDays).Mul(dailyFee).Mul(FineMultiplier).Round(2)
}

// OverdueDays counts whole calendar days between expected and actual return.
func OverdueDays(expected, actual time.Time) int64 {
	d := DateOf(actual).Sub(DateOf(expected))
	if d <= 0 {
		return 0
	}
	return int64(d.Hours()) / 24
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
