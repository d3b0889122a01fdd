package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Postgres {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))

	return NewPostgres(pool)
}

func TestPostgresReceipts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txID := "tx-" + uuid.NewString()
	payer := "payer-" + uuid.NewString()

	r := domain.Receipt{TransactionID: txID, PayerAddress: payer, MerchantAddress: "M", Amount: 500000}
	require.NoError(t, s.InsertReceipt(ctx, &r))
	assert.NotZero(t, r.ID)

	dup := domain.Receipt{TransactionID: txID, PayerAddress: payer, MerchantAddress: "M", Amount: 1}
	err := s.InsertReceipt(ctx, &dup)
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	got, err := s.GetReceipt(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), got.Amount)

	_, err = s.GetReceipt(ctx, "missing-"+uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := s.ListReceiptsByPayer(ctx, payer)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresMarkInvoicePaidOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := "INV-" + uuid.NewString()

	inv := domain.Invoice{InvoiceID: id, MerchantAddress: "M", Amount: 10, Status: domain.InvoicePending}
	require.NoError(t, s.InsertInvoice(ctx, &inv))

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := s.MarkInvoicePaid(ctx, id)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, transitions)

	_, _, err := s.MarkInvoicePaid(ctx, "INV-missing-"+uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresCreditIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addr := "addr-" + uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Credit(ctx, addr, 1.0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := s.Score(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 20.0, score)
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	txID := "tx-" + uuid.NewString()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		r := domain.Receipt{TransactionID: txID, PayerAddress: "P", MerchantAddress: "M", Amount: 1}
		if err := tx.InsertReceipt(ctx, &r); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetReceipt(ctx, txID)
	assert.ErrorIs(t, err, ErrNotFound)
}
