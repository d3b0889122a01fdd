package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/vibeledger/internal/models"
	"github.com/punchamoorthee/vibeledger/internal/service"
)

func (h *Handler) CreateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if !decode(w, r, &req) {
		return
	}

	inv, err := h.invoices.Create(r.Context(), service.InvoiceRequest{
		InvoiceID:       req.InvoiceID,
		MerchantAddress: req.MerchantAddress,
		CustomerAddress: req.CustomerAddress,
		Amount:          req.Amount,
		Description:     req.Description,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, inv)
}

func (h *Handler) MerchantInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.invoices.ListForMerchant(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) MarkInvoicePaidHandler(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.MarkPaid(r.Context(), mux.Vars(r)["invoiceId"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inv)
}
