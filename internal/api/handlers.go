package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/vibeledger/internal/models"
	"github.com/punchamoorthee/vibeledger/internal/service"
)

func (h *Handler) MintReceiptHandler(w http.ResponseWriter, r *http.Request) {
	var req models.MintReceiptRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.receipts.RecordPayment(r.Context(), service.PaymentRequest{
		TransactionID:   req.TransactionID,
		PayerAddress:    req.PayerAddress,
		MerchantAddress: req.MerchantAddress,
		Amount:          req.Amount,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	respondWithJSON(w, code, models.MintReceiptResponse{
		TransactionID:   res.Receipt.TransactionID,
		AssetID:         res.Receipt.AssetID,
		ReputationScore: res.ReputationScore,
	})
}

func (h *Handler) ReceiptsByPayerHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.receipts.ListByPayer(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipts)
}

func (h *Handler) ReceiptsByMerchantHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.receipts.ListByMerchant(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipts)
}

func (h *Handler) GetReputationHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	score, err := h.reputation.Score(r.Context(), address)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.ReputationResponse{Address: address, Score: score})
}

func (h *Handler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.reputation.Leaderboard(r.Context(), limit)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
