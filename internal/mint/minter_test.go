package mint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubMint(t *testing.T) {
	ctx := context.Background()
	stub := NewStub(ReceiptPolicyID)

	id, err := stub.Mint(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, ReceiptPolicyID+".747831", id)

	again, _ := stub.Mint(ctx, "tx1")
	assert.Equal(t, id, again, "stub must be deterministic")

	long, _ := stub.Mint(ctx, "INV-000000001")
	assert.Equal(t, ReceiptPolicyID+"."+"494e562d30303030", long)
	assert.Len(t, long, 56+1+16)
}

func TestStubCollidesOnSharedPrefix(t *testing.T) {
	stub := NewStub(InvoicePolicyID)
	a, _ := stub.Mint(context.Background(), "abcdefgh-1")
	b, _ := stub.Mint(context.Background(), "abcdefgh-2")
	assert.Equal(t, a, b)
}

type failingMinter struct{}

func (failingMinter) Mint(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func TestFallbackUsesSecondary(t *testing.T) {
	f := Fallback{Primary: failingMinter{}, Secondary: NewStub(InvoicePolicyID)}
	id, err := f.Mint(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, InvoicePolicyID+".494e562d31", id)
}

func TestRemoteMint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mint", r.URL.Path)
		var req mintRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mintResponse{AssetID: "policy." + req.AssetName})
	}))
	defer srv.Close()

	id, err := NewRemote(srv.URL, time.Second).Mint(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "policy.abc", id)
}

func TestRemoteMintUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, time.Second).Mint(context.Background(), "abc")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
