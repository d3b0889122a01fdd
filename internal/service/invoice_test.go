package service

import (
	"context"
	"testing"

	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoicePaidCreditsOnce(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	inv, err := l.invoices.Create(ctx, InvoiceRequest{
		InvoiceID:       "INV-1",
		MerchantAddress: "M",
		CustomerAddress: strPtr("C"),
		Amount:          1000000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePending, inv.Status)
	require.NotNil(t, inv.AssetID)
	assert.Equal(t, mint.InvoicePolicyID+".494e562d31", *inv.AssetID)

	paid, err := l.invoices.MarkPaid(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, paid.Status)
	assert.Equal(t, 2.0, l.score(t, "M"))
	assert.Equal(t, 1.0, l.score(t, "C"))

	again, err := l.invoices.MarkPaid(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, again.Status)
	assert.Equal(t, 2.0, l.score(t, "M"))
	assert.Equal(t, 1.0, l.score(t, "C"))
}

func TestInvoiceWithoutCustomerCreditsMerchantOnly(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.invoices.Create(ctx, InvoiceRequest{InvoiceID: "INV-2", MerchantAddress: "M", CustomerAddress: strPtr(""), Amount: 5})
	require.NoError(t, err)
	_, err = l.invoices.MarkPaid(ctx, "INV-2")
	require.NoError(t, err)

	assert.Equal(t, 2.0, l.score(t, "M"))
	top, err := l.reputation.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestInvoiceDuplicateIsConflict(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.invoices.Create(ctx, InvoiceRequest{InvoiceID: "INV-1", MerchantAddress: "M", Amount: 100, Description: strPtr("first")})
	require.NoError(t, err)

	_, err = l.invoices.Create(ctx, InvoiceRequest{InvoiceID: "INV-1", MerchantAddress: "X", Amount: 999, Description: strPtr("second")})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := l.invoices.ListForMerchant(ctx, "M")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(100), list[0].Amount)
	assert.Equal(t, "first", domain.Value(list[0].Description))

	other, err := l.invoices.ListForMerchant(ctx, "X")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMarkPaidUnknownInvoice(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.invoices.MarkPaid(context.Background(), "INV-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaidCancelledInvoice(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	inv := domain.Invoice{InvoiceID: "INV-C", MerchantAddress: "M", Status: domain.InvoiceCancelled}
	require.NoError(t, l.store.InsertInvoice(ctx, &inv))

	_, err := l.invoices.MarkPaid(ctx, "INV-C")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, l.score(t, "M"))
}

func TestInvoiceValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.invoices.Create(ctx, InvoiceRequest{MerchantAddress: "M"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.invoices.Create(ctx, InvoiceRequest{InvoiceID: "INV"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.invoices.Create(ctx, InvoiceRequest{InvoiceID: "INV", MerchantAddress: "M", Amount: -5})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListInvoicesMostRecentFirst(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []string{"INV-1", "INV-2", "INV-3"} {
		_, err := l.invoices.Create(ctx, InvoiceRequest{InvoiceID: id, MerchantAddress: "M"})
		require.NoError(t, err)
	}

	list, err := l.invoices.ListForMerchant(ctx, "M")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "INV-3", list[0].InvoiceID)
	assert.Equal(t, "INV-1", list[2].InvoiceID)
}
