package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/models"
	"github.com/punchamoorthee/vibeledger/internal/service"
)

// APIKeyHeader carries the agent credential on pay requests.
const APIKeyHeader = "X-API-Key"

func (h *Handler) CreateAgentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAgentRequest
	if !decode(w, r, &req) {
		return
	}

	agent, err := h.agents.Register(r.Context(), service.AgentRequest{
		Name:              req.Name,
		OwnerAddress:      req.OwnerAddress,
		ReputationAddress: req.ReputationAddress,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, agent)
}

func (h *Handler) AgentPayHandler(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.AgentPayRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.payments.Pay(r.Context(), service.AgentPayRequest{
		AgentID:         agentID,
		APIKey:          r.Header.Get(APIKeyHeader),
		MerchantAddress: req.MerchantAddress,
		Amount:          req.Amount,
		TransactionID:   domain.Value(req.TransactionID),
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) AgentPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDFromPath(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.ListPayments(r.Context(), agentID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.NewAgentPaymentViews(payments))
}

func agentIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "agent id must be an integer")
		return 0, false
	}
	return id, true
}
