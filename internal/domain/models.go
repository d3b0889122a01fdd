package domain

import "time"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled" // reserved, no transition leads here yet
)

// ReputationEntry is one address and its accumulated score.
type ReputationEntry struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

// Receipt is the immutable proof that a payment occurred.
// TransactionID is unique across all receipts.
type Receipt struct {
	ID              int64     `json:"-"`
	TransactionID   string    `json:"transaction_id"`
	PayerAddress    string    `json:"payer_address"`
	MerchantAddress string    `json:"merchant_address"`
	Amount          int64     `json:"amount"`
	AssetID         *string   `json:"asset_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Invoice represents an amount owed by a customer to a merchant.
type Invoice struct {
	ID              int64         `json:"-"`
	InvoiceID       string        `json:"invoice_id"`
	MerchantAddress string        `json:"merchant_address"`
	CustomerAddress *string       `json:"customer_address"`
	Amount          int64         `json:"amount"`
	Description     *string       `json:"description"`
	Status          InvoiceStatus `json:"status"`
	AssetID         *string       `json:"asset_id"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Agent is an autonomous caller authenticated by APIKey.
type Agent struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	APIKey            string    `json:"api_key"`
	OwnerAddress      *string   `json:"owner_address"`
	ReputationAddress *string   `json:"reputation_address"`
	CreatedAt         time.Time `json:"created_at"`
}

// AgentPayment is the append-only log of agent-initiated transfers.
type AgentPayment struct {
	ID              int64     `json:"id"`
	AgentID         int64     `json:"agent_id"`
	MerchantAddress string    `json:"merchant_address"`
	Amount          int64     `json:"amount"`
	TransactionID   *string   `json:"transaction_id"`
	AssetID         *string   `json:"asset_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// PaymentResult is returned by the receipt ledger.
type PaymentResult struct {
	Receipt         Receipt `json:"receipt"`
	ReputationScore float64 `json:"reputation_score"`
	Replayed        bool    `json:"replayed"`
}

// AgentPaymentResult is returned by the agent payment processor.
type AgentPaymentResult struct {
	AgentID         int64   `json:"agent_id"`
	MerchantAddress string  `json:"merchant_address"`
	Amount          int64   `json:"amount"`
	TransactionID   string  `json:"transaction_id"`
	AssetID         string  `json:"asset_id"`
	ReputationScore float64 `json:"reputation_score"`
}

// OptionalString returns nil for the empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional string, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
