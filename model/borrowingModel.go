// model/borrowingModel.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Borrowing struct {
	ID                 int64      `json:"id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	BookID             int64      `json:"book"`
	UserID             int64      `json:"user"`
}

// Active reports whether the book is still out.
func (b *Borrowing) Active() bool { return b.ActualReturnDate == nil }

// ListRow is the list projection: book and borrower are flattened to readable labels.
type ListRow struct {
	ID                 int64      `json:"id"`
	Book               string     `json:"book"`
	Author             string     `json:"author"`
	User               string     `json:"user"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
}

type Detail struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"-"`
	Book               string          `json:"book"`
	Author             string          `json:"author"`
	Cover              Cover           `json:"cover"`
	DailyFee           decimal.Decimal `json:"daily_fee"`
	BorrowDate         time.Time       `json:"borrow_date"`
	ExpectedReturnDate time.Time       `json:"expected_return_date"`
	ActualReturnDate   *time.Time      `json:"actual_return_date,omitempty"`
}

// Overdue is one unreturned borrowing found by the overdue scan.
type Overdue struct {
	BorrowingID        int64
	BookTitle          string
	BookAuthor         string
	UserEmail          string
	ExpectedReturnDate time.Time
	NotifiedOn         *time.Time
}

type BorrowingFilter struct {
	// IsActive nil means no filter.
	IsActive *bool
	UserID   *int64
}
