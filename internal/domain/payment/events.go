package payment

// Change is the payload of PAYMENT_INITIATED, PAYMENT_SUCCEEDED and PAYMENT_FAILED.
type Change struct {
	TransactionID string  `json:"transactionId,omitempty"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	State         State   `json:"state"`
	Code          Code    `json:"code,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}
