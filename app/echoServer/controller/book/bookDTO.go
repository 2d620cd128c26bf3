package book

import "github.com/shopspring/decimal"

type BookReq struct {
	Title     string          `json:"title" validate:"required,max=255"`
	Author    string          `json:"author" validate:"required,max=255"`
	Cover     string          `json:"cover" validate:"required,oneof=HARD SOFT hard soft"`
	Inventory int64           `json:"inventory" validate:"gte=0"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
}
