package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(h *Handler, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(Instrument(log))

	apiV1.HandleFunc("/receipts", h.MintReceiptHandler).Methods("POST")
	apiV1.HandleFunc("/receipts/by-payer/{address}", h.ReceiptsByPayerHandler).Methods("GET")
	apiV1.HandleFunc("/receipts/by-merchant/{address}", h.ReceiptsByMerchantHandler).Methods("GET")

	// leaderboard must be registered ahead of the {address} pattern
	apiV1.HandleFunc("/reputation/leaderboard", h.LeaderboardHandler).Methods("GET")
	apiV1.HandleFunc("/reputation/{address}", h.GetReputationHandler).Methods("GET")

	apiV1.HandleFunc("/invoices", h.CreateInvoiceHandler).Methods("POST")
	apiV1.HandleFunc("/invoices/merchant/{address}", h.MerchantInvoicesHandler).Methods("GET")
	apiV1.HandleFunc("/invoices/{invoiceId}/mark-paid", h.MarkInvoicePaidHandler).Methods("POST")

	apiV1.HandleFunc("/agents", h.CreateAgentHandler).Methods("POST")
	apiV1.HandleFunc("/agents/{id}/pay", h.AgentPayHandler).Methods("POST")
	apiV1.HandleFunc("/agents/{id}/payments", h.AgentPaymentsHandler).Methods("GET")

	return r
}
