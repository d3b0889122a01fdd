package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/vibeledger/internal/chain"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/sirupsen/logrus"
)

// PaymentCredit is what a payer earns for a verified payment.
const PaymentCredit = 1.0

// PaymentRequest describes an on-chain payment to record.
type PaymentRequest struct {
	TransactionID   string
	PayerAddress    string
	MerchantAddress string
	Amount          int64
}

func (r PaymentRequest) validate() error {
	switch {
	case r.TransactionID == "":
		return validationError("transaction id is required")
	case r.PayerAddress == "":
		return validationError("payer address is required")
	case r.MerchantAddress == "":
		return validationError("merchant address is required")
	case r.Amount < 0:
		return validationError("amount must not be negative")
	}
	return nil
}

// ReceiptLedger records one receipt per transaction id and credits the
// payer the first time a transaction is seen.
type ReceiptLedger struct {
	store      store.Receipts
	reputation *Reputation
	verifier   chain.Verifier
	minter     mint.Minter
	log        logrus.FieldLogger
}

func NewReceiptLedger(st store.Receipts, rep *Reputation, v chain.Verifier, m mint.Minter, log logrus.FieldLogger) *ReceiptLedger {
	return &ReceiptLedger{
		store:      st,
		reputation: rep,
		verifier:   v,
		minter:     m,
		log:        log.WithField("component", "receipts"),
	}
}

// RecordPayment is idempotent on TransactionID: a replay returns the stored
// receipt and the payer's current score without verifying or crediting.
func (l *ReceiptLedger) RecordPayment(ctx context.Context, req PaymentRequest) (domain.PaymentResult, error) {
	if err := req.validate(); err != nil {
		receiptsTotal.WithLabelValues("rejected").Inc()
		return domain.PaymentResult{}, err
	}
	log := l.log.WithField("transaction_id", req.TransactionID)

	existing, err := l.store.GetReceipt(ctx, req.TransactionID)
	switch {
	case err == nil:
		return l.replay(ctx, existing)
	case !errors.Is(err, store.ErrNotFound):
		return domain.PaymentResult{}, fmt.Errorf("receipt lookup: %w", err)
	}

	if !l.verifier.TransactionExists(ctx, req.TransactionID) {
		receiptsTotal.WithLabelValues("rejected").Inc()
		log.Info("transaction not verified")
		return domain.PaymentResult{}, validationError("transaction not found")
	}

	receipt := domain.Receipt{
		TransactionID:   req.TransactionID,
		PayerAddress:    req.PayerAddress,
		MerchantAddress: req.MerchantAddress,
		Amount:          req.Amount,
		AssetID:         mintAsset(ctx, l.minter, req.TransactionID, log),
	}
	if err := l.store.InsertReceipt(ctx, &receipt); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent request for the same transaction.
			winner, getErr := l.store.GetReceipt(ctx, req.TransactionID)
			if getErr != nil {
				return domain.PaymentResult{}, fmt.Errorf("receipt lookup: %w", getErr)
			}
			return l.replay(ctx, winner)
		}
		return domain.PaymentResult{}, err
	}

	score, err := l.reputation.Credit(ctx, receipt.PayerAddress, PaymentCredit)
	if err != nil {
		log.WithError(err).Error("receipt stored but reputation credit failed")
		return domain.PaymentResult{}, err
	}

	receiptsTotal.WithLabelValues("created").Inc()
	log.WithField("payer", receipt.PayerAddress).Info("receipt recorded")
	return domain.PaymentResult{Receipt: receipt, ReputationScore: score}, nil
}

func (l *ReceiptLedger) replay(ctx context.Context, r domain.Receipt) (domain.PaymentResult, error) {
	score, err := l.reputation.Score(ctx, r.PayerAddress)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	receiptsTotal.WithLabelValues("replayed").Inc()
	return domain.PaymentResult{Receipt: r, ReputationScore: score, Replayed: true}, nil
}

// ListByPayer returns the payer's receipts, most recent first.
func (l *ReceiptLedger) ListByPayer(ctx context.Context, address string) ([]domain.Receipt, error) {
	return l.store.ListReceiptsByPayer(ctx, address)
}

// ListByMerchant returns the merchant's receipts, most recent first.
func (l *ReceiptLedger) ListByMerchant(ctx context.Context, address string) ([]domain.Receipt, error) {
	return l.store.ListReceiptsByMerchant(ctx, address)
}

// mintAsset never fails the caller: a minter error leaves the asset id empty.
func mintAsset(ctx context.Context, m mint.Minter, seed string, log logrus.FieldLogger) *string {
	id, err := m.Mint(ctx, seed)
	if err != nil {
		log.WithError(err).Warn("asset minting failed")
		return nil
	}
	return &id
}
