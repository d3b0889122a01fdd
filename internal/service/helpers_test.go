package service

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/punchamoorthee/vibeledger/internal/chain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/store/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testLedger struct {
	store      *memory.Store
	reputation *Reputation
	receipts   *ReceiptLedger
	invoices   *InvoiceLedger
	agents     *AgentRegistry
	payments   *AgentPayments
	verified   *atomic.Int32
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestLedger wires every component on an in-memory store. The verifier
// accepts any transaction id not listed in unknown and counts its calls.
func newTestLedger(t *testing.T, unknown ...string) *testLedger {
	t.Helper()
	log := quietLogger()
	st := memory.New()

	missing := make(map[string]bool, len(unknown))
	for _, id := range unknown {
		missing[id] = true
	}
	calls := &atomic.Int32{}
	verifier := chain.VerifierFunc(func(_ context.Context, txID string) bool {
		calls.Add(1)
		return !missing[txID]
	})

	rep := NewReputation(st, log)
	reg, err := NewAgentRegistry(st, 16, log)
	require.NoError(t, err)

	return &testLedger{
		store:      st,
		reputation: rep,
		receipts:   NewReceiptLedger(st, rep, verifier, mint.NewStub(mint.ReceiptPolicyID), log),
		invoices:   NewInvoiceLedger(st, rep, mint.NewStub(mint.InvoicePolicyID), log),
		agents:     reg,
		payments:   NewAgentPayments(st, reg, rep, mint.NewStub(mint.ReceiptPolicyID), log),
		verified:   calls,
	}
}

func (l *testLedger) score(t *testing.T, address string) float64 {
	t.Helper()
	s, err := l.reputation.Score(context.Background(), address)
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }
