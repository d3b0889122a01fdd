// Package store defines the storage handle the ledger components are built
// on and its PostgreSQL implementation.
package store

import (
	"context"
	"errors"

	"github.com/punchamoorthee/vibeledger/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Receipts persists payment receipts. InsertReceipt fills ID and CreatedAt
// and returns ErrDuplicate when the transaction id is already recorded.
type Receipts interface {
	GetReceipt(ctx context.Context, txID string) (domain.Receipt, error)
	InsertReceipt(ctx context.Context, r *domain.Receipt) error
	ListReceiptsByPayer(ctx context.Context, address string) ([]domain.Receipt, error)
	ListReceiptsByMerchant(ctx context.Context, address string) ([]domain.Receipt, error)
}

// Invoices persists invoices.
type Invoices interface {
	GetInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error)
	InsertInvoice(ctx context.Context, inv *domain.Invoice) error
	// MarkInvoicePaid moves a pending invoice to paid in a single
	// conditional write. It reports false when the invoice was not pending,
	// in which case the current row is returned untouched.
	MarkInvoicePaid(ctx context.Context, invoiceID string) (domain.Invoice, bool, error)
	ListInvoicesByMerchant(ctx context.Context, address string) ([]domain.Invoice, error)
}

// Agents persists registered agents.
type Agents interface {
	InsertAgent(ctx context.Context, a *domain.Agent) error
	GetAgent(ctx context.Context, id int64) (domain.Agent, error)
}

// AgentPayments is the append-only agent payment log.
type AgentPayments interface {
	InsertAgentPayment(ctx context.Context, p *domain.AgentPayment) error
	ListAgentPayments(ctx context.Context, agentID int64) ([]domain.AgentPayment, error)
}

// Store is the storage handle injected into the ledger components.
type Store interface {
	Receipts
	Invoices
	Agents
	AgentPayments

	// WithinTx runs fn as one unit of work: either every write made
	// through the handed-in Store commits, or none does.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// Reputation is the per-address score accumulator. Credit must be an
// atomic add-and-return so concurrent credits never lose updates.
type Reputation interface {
	Credit(ctx context.Context, address string, delta float64) (float64, error)
	Score(ctx context.Context, address string) (float64, error)
	Top(ctx context.Context, limit int) ([]domain.ReputationEntry, error)
}
