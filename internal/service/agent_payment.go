package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/sirupsen/logrus"
)

// AgentPayRequest is an agent-initiated transfer. TransactionID is optional.
type AgentPayRequest struct {
	AgentID         int64
	APIKey          string
	MerchantAddress string
	Amount          int64
	TransactionID   string
}

// AgentPayments runs the agent payment rail. Possession of the API key
// stands in for on-chain proof, so no transaction verification happens here.
type AgentPayments struct {
	store      store.Store
	registry   *AgentRegistry
	reputation *Reputation
	minter     mint.Minter
	log        logrus.FieldLogger
}

func NewAgentPayments(st store.Store, reg *AgentRegistry, rep *Reputation, m mint.Minter, log logrus.FieldLogger) *AgentPayments {
	return &AgentPayments{
		store:      st,
		registry:   reg,
		reputation: rep,
		minter:     m,
		log:        log.WithField("component", "agent_payments"),
	}
}

// Pay records a receipt and an agent payment row in one unit of work, then
// credits the agent's reputation target.
func (p *AgentPayments) Pay(ctx context.Context, req AgentPayRequest) (domain.AgentPaymentResult, error) {
	agent, err := p.registry.Authenticate(ctx, req.AgentID, req.APIKey)
	if err != nil {
		agentPaymentsTotal.WithLabelValues("denied").Inc()
		return domain.AgentPaymentResult{}, err
	}

	switch {
	case req.MerchantAddress == "":
		return domain.AgentPaymentResult{}, validationError("merchant address is required")
	case req.Amount < 0:
		return domain.AgentPaymentResult{}, validationError("amount must not be negative")
	}

	target := ReputationTarget(agent)
	txID := req.TransactionID
	if txID == "" {
		txID = syntheticTransactionID(agent.ID)
	}
	log := p.log.WithFields(logrus.Fields{"agent_id": agent.ID, "transaction_id": txID})

	assetID := mintAsset(ctx, p.minter, txID, log)

	err = p.store.WithinTx(ctx, func(tx store.Store) error {
		receipt := domain.Receipt{
			TransactionID:   txID,
			PayerAddress:    target,
			MerchantAddress: req.MerchantAddress,
			Amount:          req.Amount,
			AssetID:         assetID,
		}
		if err := tx.InsertReceipt(ctx, &receipt); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: transaction %s already recorded", ErrConflict, txID)
			}
			return err
		}

		payment := domain.AgentPayment{
			AgentID:         agent.ID,
			MerchantAddress: req.MerchantAddress,
			Amount:          req.Amount,
			TransactionID:   &txID,
			AssetID:         assetID,
		}
		return tx.InsertAgentPayment(ctx, &payment)
	})
	if err != nil {
		agentPaymentsTotal.WithLabelValues("failed").Inc()
		return domain.AgentPaymentResult{}, err
	}

	score, err := p.reputation.Credit(ctx, target, PaymentCredit)
	if err != nil {
		log.WithError(err).Error("agent payment stored but reputation credit failed")
		return domain.AgentPaymentResult{}, err
	}

	agentPaymentsTotal.WithLabelValues("completed").Inc()
	log.WithField("merchant", req.MerchantAddress).Info("agent payment recorded")
	return domain.AgentPaymentResult{
		AgentID:         agent.ID,
		MerchantAddress: req.MerchantAddress,
		Amount:          req.Amount,
		TransactionID:   txID,
		AssetID:         domain.Value(assetID),
		ReputationScore: score,
	}, nil
}

// ListPayments returns the agent's payments, most recent first.
func (p *AgentPayments) ListPayments(ctx context.Context, agentID int64) ([]domain.AgentPayment, error) {
	return p.store.ListAgentPayments(ctx, agentID)
}

func syntheticTransactionID(agentID int64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("agent-%d-tx-%s", agentID, nonce[:16])
}
