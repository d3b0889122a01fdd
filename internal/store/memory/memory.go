// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is intended for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/store"
)

type reputationRecord struct {
	address string
	score   float64
}

// Store keeps every table in maps plus insertion-ordered slices so that
// listings can be returned most-recent-first.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	nextID int64

	receipts     map[string]domain.Receipt
	receiptOrder []string
	invoices     map[string]domain.Invoice
	invoiceOrder []string
	agents       map[int64]domain.Agent
	apiKeys      map[string]int64
	payments     []domain.AgentPayment
	reputation   map[string]*reputationRecord
	repOrder     []*reputationRecord
}

var _ store.Store = (*Store)(nil)
var _ store.Reputation = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		receipts:   make(map[string]domain.Receipt),
		invoices:   make(map[string]domain.Invoice),
		agents:     make(map[int64]domain.Agent),
		apiKeys:    make(map[string]int64),
		reputation: make(map[string]*reputationRecord),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// WithinTx serializes units of work and undoes their writes when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txStore{Store: s}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// Receipts ---------------------------------------------------------------------

func (s *Store) GetReceipt(_ context.Context, txID string) (domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receipts[txID]
	if !ok {
		return domain.Receipt{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) InsertReceipt(_ context.Context, r *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[r.TransactionID]; exists {
		return fmt.Errorf("%w: receipt %s", store.ErrDuplicate, r.TransactionID)
	}
	r.ID = s.nextIDLocked()
	r.CreatedAt = time.Now().UTC()
	s.receipts[r.TransactionID] = *r
	s.receiptOrder = append(s.receiptOrder, r.TransactionID)
	return nil
}

func (s *Store) deleteReceipt(txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.receipts, txID)
	s.receiptOrder = removeString(s.receiptOrder, txID)
}

func (s *Store) ListReceiptsByPayer(_ context.Context, address string) ([]domain.Receipt, error) {
	return s.listReceipts(func(r domain.Receipt) bool { return r.PayerAddress == address }), nil
}

func (s *Store) ListReceiptsByMerchant(_ context.Context, address string) ([]domain.Receipt, error) {
	return s.listReceipts(func(r domain.Receipt) bool { return r.MerchantAddress == address }), nil
}

func (s *Store) listReceipts(match func(domain.Receipt) bool) []domain.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Receipt{}
	for i := len(s.receiptOrder) - 1; i >= 0; i-- {
		if r := s.receipts[s.receiptOrder[i]]; match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Invoices ---------------------------------------------------------------------

func (s *Store) GetInvoice(_ context.Context, invoiceID string) (domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[invoiceID]
	if !ok {
		return domain.Invoice{}, store.ErrNotFound
	}
	return inv, nil
}

func (s *Store) InsertInvoice(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.InvoiceID]; exists {
		return fmt.Errorf("%w: invoice %s", store.ErrDuplicate, inv.InvoiceID)
	}
	inv.ID = s.nextIDLocked()
	inv.CreatedAt = time.Now().UTC()
	s.invoices[inv.InvoiceID] = *inv
	s.invoiceOrder = append(s.invoiceOrder, inv.InvoiceID)
	return nil
}

func (s *Store) MarkInvoicePaid(_ context.Context, invoiceID string) (domain.Invoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invoiceID]
	if !ok {
		return domain.Invoice{}, false, store.ErrNotFound
	}
	if inv.Status != domain.InvoicePending {
		return inv, false, nil
	}
	inv.Status = domain.InvoicePaid
	s.invoices[invoiceID] = inv
	return inv, true, nil
}

func (s *Store) ListInvoicesByMerchant(_ context.Context, address string) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Invoice{}
	for i := len(s.invoiceOrder) - 1; i >= 0; i-- {
		if inv := s.invoices[s.invoiceOrder[i]]; inv.MerchantAddress == address {
			out = append(out, inv)
		}
	}
	return out, nil
}

// Agents -----------------------------------------------------------------------

func (s *Store) InsertAgent(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apiKeys[a.APIKey]; exists {
		return fmt.Errorf("%w: agent api key", store.ErrDuplicate)
	}
	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	s.agents[a.ID] = *a
	s.apiKeys[a.APIKey] = a.ID
	return nil
}

func (s *Store) GetAgent(_ context.Context, id int64) (domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, store.ErrNotFound
	}
	return a, nil
}

// Agent payments ---------------------------------------------------------------

func (s *Store) InsertAgentPayment(_ context.Context, p *domain.AgentPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextIDLocked()
	p.CreatedAt = time.Now().UTC()
	s.payments = append(s.payments, *p)
	return nil
}

func (s *Store) deleteAgentPayment(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return
		}
	}
}

func (s *Store) ListAgentPayments(_ context.Context, agentID int64) ([]domain.AgentPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AgentPayment{}
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].AgentID == agentID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

// Reputation -------------------------------------------------------------------

func (s *Store) Credit(_ context.Context, address string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reputation[address]
	if !ok {
		rec = &reputationRecord{address: address}
		s.reputation[address] = rec
		s.repOrder = append(s.repOrder, rec)
	}
	rec.score += delta
	return rec.score, nil
}

func (s *Store) Score(_ context.Context, address string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.reputation[address]; ok {
		return rec.score, nil
	}
	return 0, nil
}

func (s *Store) Top(_ context.Context, limit int) ([]domain.ReputationEntry, error) {
	s.mu.RLock()
	entries := make([]domain.ReputationEntry, 0, len(s.repOrder))
	for _, rec := range s.repOrder {
		entries = append(entries, domain.ReputationEntry{Address: rec.address, Score: rec.score})
	}
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// txStore records how to undo each write made during WithinTx.
type txStore struct {
	*Store
	undo []func()
}

func (t *txStore) WithinTx(_ context.Context, fn func(store.Store) error) error {
	return fn(t)
}

func (t *txStore) InsertReceipt(ctx context.Context, r *domain.Receipt) error {
	if err := t.Store.InsertReceipt(ctx, r); err != nil {
		return err
	}
	txID := r.TransactionID
	t.undo = append(t.undo, func() { t.Store.deleteReceipt(txID) })
	return nil
}

func (t *txStore) InsertAgentPayment(ctx context.Context, p *domain.AgentPayment) error {
	if err := t.Store.InsertAgentPayment(ctx, p); err != nil {
		return err
	}
	id := p.ID
	t.undo = append(t.undo, func() { t.Store.deleteAgentPayment(id) })
	return nil
}

func (t *txStore) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	if err := t.Store.InsertInvoice(ctx, inv); err != nil {
		return err
	}
	invoiceID := inv.InvoiceID
	t.undo = append(t.undo, func() {
		t.Store.mu.Lock()
		defer t.Store.mu.Unlock()
		delete(t.Store.invoices, invoiceID)
		t.Store.invoiceOrder = removeString(t.Store.invoiceOrder, invoiceID)
	})
	return nil
}

func (t *txStore) InsertAgent(ctx context.Context, a *domain.Agent) error {
	if err := t.Store.InsertAgent(ctx, a); err != nil {
		return err
	}
	id, key := a.ID, a.APIKey
	t.undo = append(t.undo, func() {
		t.Store.mu.Lock()
		defer t.Store.mu.Unlock()
		delete(t.Store.agents, id)
		delete(t.Store.apiKeys, key)
	})
	return nil
}

func (t *txStore) MarkInvoicePaid(ctx context.Context, invoiceID string) (domain.Invoice, bool, error) {
	inv, changed, err := t.Store.MarkInvoicePaid(ctx, invoiceID)
	if err != nil || !changed {
		return inv, changed, err
	}
	t.undo = append(t.undo, func() {
		t.Store.mu.Lock()
		defer t.Store.mu.Unlock()
		prev := t.Store.invoices[invoiceID]
		prev.Status = domain.InvoicePending
		t.Store.invoices[invoiceID] = prev
	})
	return inv, changed, nil
}

func removeString(list []string, v string) []string {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
