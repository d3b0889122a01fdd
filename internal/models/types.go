package models

import "github.com/punchamoorthee/vibeledger/internal/domain"

// MintReceiptRequest is the payload sent after an on-chain payment.
type MintReceiptRequest struct {
	TransactionID   string `json:"transaction_id"`
	PayerAddress    string `json:"payer_address"`
	MerchantAddress string `json:"merchant_address"`
	Amount          int64  `json:"amount"`
}

// MintReceiptResponse mirrors the recorded receipt and the payer's score.
type MintReceiptResponse struct {
	TransactionID   string  `json:"transaction_id"`
	AssetID         *string `json:"asset_id"`
	ReputationScore float64 `json:"reputation_score"`
}

// ReputationResponse is the score for a single address.
type ReputationResponse struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

// CreateInvoiceRequest is the payload for a new invoice.
type CreateInvoiceRequest struct {
	InvoiceID       string  `json:"invoice_id"`
	MerchantAddress string  `json:"merchant_address"`
	CustomerAddress *string `json:"customer_address,omitempty"`
	Amount          int64   `json:"amount"`
	Description     *string `json:"description,omitempty"`
}

// CreateAgentRequest registers an agent.
type CreateAgentRequest struct {
	Name              string  `json:"name"`
	OwnerAddress      *string `json:"owner_address,omitempty"`
	ReputationAddress *string `json:"reputation_address,omitempty"`
}

// AgentPayRequest is the body of an agent-initiated transfer. The API key
// travels in the X-API-Key header.
type AgentPayRequest struct {
	MerchantAddress string  `json:"merchant_address"`
	Amount          int64   `json:"amount"`
	TransactionID   *string `json:"transaction_id,omitempty"`
}

// AgentPaymentView hides nothing today but keeps the listing shape stable.
type AgentPaymentView struct {
	ID              int64   `json:"id"`
	MerchantAddress string  `json:"merchant_address"`
	Amount          int64   `json:"amount"`
	TransactionID   *string `json:"transaction_id"`
	AssetID         *string `json:"asset_id"`
}

// NewAgentPaymentViews converts storage rows into listing entries.
func NewAgentPaymentViews(rows []domain.AgentPayment) []AgentPaymentView {
	out := make([]AgentPaymentView, 0, len(rows))
	for _, p := range rows {
		out = append(out, AgentPaymentView{
			ID:              p.ID,
			MerchantAddress: p.MerchantAddress,
			Amount:          p.Amount,
			TransactionID:   p.TransactionID,
			AssetID:         p.AssetID,
		})
	}
	return out
}
