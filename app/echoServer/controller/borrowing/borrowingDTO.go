package borrowing

type CreateBorrowingReq struct {
	Book               int64  `json:"book" validate:"required,gt=0"`
	ExpectedReturnDate string `json:"expected_return_date" validate:"required,datetime=2006-01-02"`
}

type ReturnResp struct {
	Message   string `json:"message"`
	PaymentID *int64 `json:"payment_id,omitempty"`
	Fine      string `json:"fine,omitempty"`
}
