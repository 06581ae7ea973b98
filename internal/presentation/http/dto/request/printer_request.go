package request

// PrintReceiptRequest is the request body for printing a transaction receipt.
type PrintReceiptRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,uuid"`
}
