package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	MerchantInvoiceCredit = 2.0
	CustomerInvoiceCredit = 1.0
)

// InvoiceRequest describes a new invoice.
type InvoiceRequest struct {
	InvoiceID       string
	MerchantAddress string
	CustomerAddress *string
	Amount          int64
	Description     *string
}

// InvoiceLedger owns invoices and their pending -> paid lifecycle.
type InvoiceLedger struct {
	store      store.Invoices
	reputation *Reputation
	minter     mint.Minter
	log        logrus.FieldLogger
}

func NewInvoiceLedger(st store.Invoices, rep *Reputation, m mint.Minter, log logrus.FieldLogger) *InvoiceLedger {
	return &InvoiceLedger{
		store:      st,
		reputation: rep,
		minter:     m,
		log:        log.WithField("component", "invoices"),
	}
}

// Create stores a pending invoice. A reused invoice id is rejected and the
// existing invoice is left untouched.
func (l *InvoiceLedger) Create(ctx context.Context, req InvoiceRequest) (domain.Invoice, error) {
	switch {
	case req.InvoiceID == "":
		return domain.Invoice{}, validationError("invoice id is required")
	case req.MerchantAddress == "":
		return domain.Invoice{}, validationError("merchant address is required")
	case req.Amount < 0:
		return domain.Invoice{}, validationError("amount must not be negative")
	}
	log := l.log.WithField("invoice_id", req.InvoiceID)

	if _, err := l.store.GetInvoice(ctx, req.InvoiceID); err == nil {
		return domain.Invoice{}, fmt.Errorf("%w: invoice %s", ErrConflict, req.InvoiceID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Invoice{}, fmt.Errorf("invoice lookup: %w", err)
	}

	inv := domain.Invoice{
		InvoiceID:       req.InvoiceID,
		MerchantAddress: req.MerchantAddress,
		CustomerAddress: nonEmpty(req.CustomerAddress),
		Amount:          req.Amount,
		Description:     req.Description,
		Status:          domain.InvoicePending,
		AssetID:         mintAsset(ctx, l.minter, req.InvoiceID, log),
	}
	if err := l.store.InsertInvoice(ctx, &inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Invoice{}, fmt.Errorf("%w: invoice %s", ErrConflict, req.InvoiceID)
		}
		return domain.Invoice{}, err
	}

	invoicesTotal.WithLabelValues("created").Inc()
	log.Info("invoice created")
	return inv, nil
}

// MarkPaid moves a pending invoice to paid and credits the merchant and,
// when present, the customer. Paying an already paid invoice is a no-op.
//
// The status write and the credits are separate commits: a crash between
// them leaves a paid invoice without its reputation effect.
func (l *InvoiceLedger) MarkPaid(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	log := l.log.WithField("invoice_id", invoiceID)

	inv, changed, err := l.store.MarkInvoicePaid(ctx, invoiceID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Invoice{}, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if err != nil {
		return domain.Invoice{}, err
	}
	if !changed {
		if inv.Status == domain.InvoiceCancelled {
			return domain.Invoice{}, validationError("invoice %s is cancelled", invoiceID)
		}
		return inv, nil
	}

	if _, err := l.reputation.Credit(ctx, inv.MerchantAddress, MerchantInvoiceCredit); err != nil {
		log.WithError(err).Error("invoice paid but merchant credit failed")
		return domain.Invoice{}, err
	}
	if inv.CustomerAddress != nil {
		if _, err := l.reputation.Credit(ctx, *inv.CustomerAddress, CustomerInvoiceCredit); err != nil {
			log.WithError(err).Error("invoice paid but customer credit failed")
			return domain.Invoice{}, err
		}
	}

	invoicesTotal.WithLabelValues("paid").Inc()
	log.Info("invoice paid")
	return inv, nil
}

// ListForMerchant returns the merchant's invoices, most recent first.
func (l *InvoiceLedger) ListForMerchant(ctx context.Context, merchantAddress string) ([]domain.Invoice, error) {
	return l.store.ListInvoicesByMerchant(ctx, merchantAddress)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
