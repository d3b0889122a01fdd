package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/punchamoorthee/vibeledger/internal/chain"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/models"
	"github.com/punchamoorthee/vibeledger/internal/service"
	"github.com/punchamoorthee/vibeledger/internal/store/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memory.New()
	verifier := chain.VerifierFunc(func(_ context.Context, txID string) bool {
		return txID != "tx-unknown"
	})
	rep := service.NewReputation(st, log)
	reg, err := service.NewAgentRegistry(st, 8, log)
	require.NoError(t, err)

	h := NewHandler(Services{
		Receipts:   service.NewReceiptLedger(st, rep, verifier, mint.NewStub(mint.ReceiptPolicyID), log),
		Invoices:   service.NewInvoiceLedger(st, rep, mint.NewStub(mint.InvoicePolicyID), log),
		Agents:     reg,
		Payments:   service.NewAgentPayments(st, reg, rep, mint.NewStub(mint.ReceiptPolicyID), log),
		Reputation: rep,
	}, log)
	return NewRouter(h, log)
}

func do(t *testing.T, srv http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(t), "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMintReceiptCreatedThenReplayed(t *testing.T) {
	srv := newTestServer(t)
	body := models.MintReceiptRequest{TransactionID: "tx1", PayerAddress: "A", MerchantAddress: "M", Amount: 1500000}

	rr := do(t, srv, "POST", "/api/v1/receipts", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	var first models.MintReceiptResponse
	decodeBody(t, rr, &first)
	assert.Equal(t, "tx1", first.TransactionID)
	assert.Equal(t, 1.0, first.ReputationScore)
	require.NotNil(t, first.AssetID)

	rr = do(t, srv, "POST", "/api/v1/receipts", body)
	require.Equal(t, http.StatusOK, rr.Code)
	var second models.MintReceiptResponse
	decodeBody(t, rr, &second)
	assert.Equal(t, *first.AssetID, *second.AssetID)
	assert.Equal(t, 1.0, second.ReputationScore)

	rr = do(t, srv, "GET", "/api/v1/receipts/by-payer/A", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var receipts []domain.Receipt
	decodeBody(t, rr, &receipts)
	assert.Len(t, receipts, 1)
}

func TestMintReceiptErrors(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, "POST", "/api/v1/receipts", models.MintReceiptRequest{TransactionID: "tx-unknown", PayerAddress: "A", MerchantAddress: "M"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest("POST", "/api/v1/receipts", bytes.NewBufferString("{not json"))
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "GET", "/api/v1/receipts/by-merchant/M", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestReputationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, tx := range []string{"t1", "t2"} {
		rr := do(t, srv, "POST", "/api/v1/receipts", models.MintReceiptRequest{TransactionID: tx, PayerAddress: "A", MerchantAddress: "M"})
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := do(t, srv, "POST", "/api/v1/receipts", models.MintReceiptRequest{TransactionID: "t3", PayerAddress: "B", MerchantAddress: "M"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, "GET", "/api/v1/reputation/A", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"address":"A","score":2}`, rr.Body.String())

	rr = do(t, srv, "GET", "/api/v1/reputation/nobody", nil)
	assert.JSONEq(t, `{"address":"nobody","score":0}`, rr.Body.String())

	rr = do(t, srv, "GET", "/api/v1/reputation/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"address":"A","score":2}]`, rr.Body.String())

	rr = do(t, srv, "GET", "/api/v1/reputation/leaderboard?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvoiceEndpoints(t *testing.T) {
	srv := newTestServer(t)
	customer := "C"

	rr := do(t, srv, "POST", "/api/v1/invoices", models.CreateInvoiceRequest{InvoiceID: "INV-1", MerchantAddress: "M", CustomerAddress: &customer, Amount: 100})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var inv domain.Invoice
	decodeBody(t, rr, &inv)
	assert.Equal(t, domain.InvoicePending, inv.Status)

	rr = do(t, srv, "POST", "/api/v1/invoices", models.CreateInvoiceRequest{InvoiceID: "INV-1", MerchantAddress: "M"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/invoices/INV-1/mark-paid", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &inv)
	assert.Equal(t, domain.InvoicePaid, inv.Status)

	rr = do(t, srv, "POST", "/api/v1/invoices/INV-404/mark-paid", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, "GET", "/api/v1/invoices/merchant/M", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.Invoice
	decodeBody(t, rr, &list)
	assert.Len(t, list, 1)

	rr = do(t, srv, "GET", "/api/v1/reputation/M", nil)
	assert.JSONEq(t, `{"address":"M","score":2}`, rr.Body.String())
}

func TestAgentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	owner := "O"

	rr := do(t, srv, "POST", "/api/v1/agents", models.CreateAgentRequest{Name: "Bot", OwnerAddress: &owner})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var agent domain.Agent
	decodeBody(t, rr, &agent)
	require.Len(t, agent.APIKey, 64)

	pay := models.AgentPayRequest{MerchantAddress: "M", Amount: 1000}

	rr = do(t, srv, "POST", "/api/v1/agents/1/pay", pay)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/agents/1/pay", pay, APIKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/agents/99/pay", pay, APIKeyHeader, agent.APIKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/agents/x/pay", pay, APIKeyHeader, agent.APIKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/agents/1/pay", pay, APIKeyHeader, agent.APIKey)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res domain.AgentPaymentResult
	decodeBody(t, rr, &res)
	assert.Equal(t, 1.0, res.ReputationScore)
	assert.Contains(t, res.TransactionID, "agent-1-tx-")

	rr = do(t, srv, "GET", "/api/v1/agents/1/payments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var payments []models.AgentPaymentView
	decodeBody(t, rr, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, res.TransactionID, domain.Value(payments[0].TransactionID))

	rr = do(t, srv, "GET", "/api/v1/agents/7/payments", nil)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		service.ErrValidation:             http.StatusBadRequest,
		service.ErrConflict:               http.StatusConflict,
		service.ErrNotFound:               http.StatusNotFound,
		service.ErrAuthenticationRequired: http.StatusUnauthorized,
		service.ErrAuthorization:          http.StatusForbidden,
		io.ErrUnexpectedEOF:               http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
