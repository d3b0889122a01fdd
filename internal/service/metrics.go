package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	receiptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_receipts_total",
		Help: "Receipt recording attempts, labeled by outcome",
	}, []string{"outcome"})

	invoicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_invoices_total",
		Help: "Invoice lifecycle events",
	}, []string{"event"})

	agentPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_agent_payments_total",
		Help: "Agent payment attempts, labeled by outcome",
	}, []string{"outcome"})

	reputationCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reputation_credits_total",
		Help: "Reputation credits applied",
	})
)
