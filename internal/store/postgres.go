package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/vibeledger/internal/domain"
)

const uniqueViolation = "23505"

// dbtx is the subset shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store and Reputation on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	db   dbtx
}

var _ Store = (*Postgres)(nil)
var _ Reputation = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// Connect parses connString, opens a pool and pings it.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func (s *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already inside a transaction
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// --- Receipts ---------------------------------------------------------------

const receiptColumns = "id, tx_hash, payer_address, merchant_address, amount, asset_id, created_at"

func scanReceipt(row pgx.Row) (domain.Receipt, error) {
	var r domain.Receipt
	err := row.Scan(&r.ID, &r.TransactionID, &r.PayerAddress, &r.MerchantAddress, &r.Amount, &r.AssetID, &r.CreatedAt)
	return r, err
}

func (s *Postgres) GetReceipt(ctx context.Context, txID string) (domain.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRow(ctx,
		"SELECT "+receiptColumns+" FROM payment_receipts WHERE tx_hash = $1", txID))
	if err != nil {
		return domain.Receipt{}, translate(err)
	}
	return r, nil
}

func (s *Postgres) InsertReceipt(ctx context.Context, r *domain.Receipt) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO payment_receipts (tx_hash, payer_address, merchant_address, amount, asset_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		r.TransactionID, r.PayerAddress, r.MerchantAddress, r.Amount, r.AssetID,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("receipt insert failed: %w", translate(err))
	}
	return nil
}

func (s *Postgres) ListReceiptsByPayer(ctx context.Context, address string) ([]domain.Receipt, error) {
	return s.listReceipts(ctx, "payer_address", address)
}

func (s *Postgres) ListReceiptsByMerchant(ctx context.Context, address string) ([]domain.Receipt, error) {
	return s.listReceipts(ctx, "merchant_address", address)
}

func (s *Postgres) listReceipts(ctx context.Context, column, address string) ([]domain.Receipt, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+receiptColumns+" FROM payment_receipts WHERE "+column+" = $1 ORDER BY id DESC", address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Invoices ---------------------------------------------------------------

const invoiceColumns = "id, invoice_id, merchant_address, customer_address, amount, description, status, asset_id, created_at"

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceID, &inv.MerchantAddress, &inv.CustomerAddress, &inv.Amount,
		&inv.Description, &inv.Status, &inv.AssetID, &inv.CreatedAt)
	return inv, err
}

func (s *Postgres) GetInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE invoice_id = $1", invoiceID))
	if err != nil {
		return domain.Invoice{}, translate(err)
	}
	return inv, nil
}

func (s *Postgres) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO invoices (invoice_id, merchant_address, customer_address, amount, description, status, asset_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		inv.InvoiceID, inv.MerchantAddress, inv.CustomerAddress, inv.Amount, inv.Description, inv.Status, inv.AssetID,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoice insert failed: %w", translate(err))
	}
	return nil
}

func (s *Postgres) MarkInvoicePaid(ctx context.Context, invoiceID string) (domain.Invoice, bool, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx,
		"UPDATE invoices SET status = $2 WHERE invoice_id = $1 AND status = $3 RETURNING "+invoiceColumns,
		invoiceID, domain.InvoicePaid, domain.InvoicePending))
	if err == nil {
		return inv, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, false, fmt.Errorf("invoice update failed: %w", err)
	}

	// Not pending: either unknown or already past pending.
	inv, err = s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return domain.Invoice{}, false, err
	}
	return inv, false, nil
}

func (s *Postgres) ListInvoicesByMerchant(ctx context.Context, address string) ([]domain.Invoice, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE merchant_address = $1 ORDER BY id DESC", address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// --- Agents -----------------------------------------------------------------

func (s *Postgres) InsertAgent(ctx context.Context, a *domain.Agent) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO agents (name, api_key, owner_address, reputation_address)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		a.Name, a.APIKey, a.OwnerAddress, a.ReputationAddress,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("agent insert failed: %w", translate(err))
	}
	return nil
}

func (s *Postgres) GetAgent(ctx context.Context, id int64) (domain.Agent, error) {
	var a domain.Agent
	err := s.db.QueryRow(ctx,
		"SELECT id, name, api_key, owner_address, reputation_address, created_at FROM agents WHERE id = $1", id,
	).Scan(&a.ID, &a.Name, &a.APIKey, &a.OwnerAddress, &a.ReputationAddress, &a.CreatedAt)
	if err != nil {
		return domain.Agent{}, translate(err)
	}
	return a, nil
}

// --- Agent payments ---------------------------------------------------------

func (s *Postgres) InsertAgentPayment(ctx context.Context, p *domain.AgentPayment) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO agent_payments (agent_id, merchant_address, amount, tx_hash, asset_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.AgentID, p.MerchantAddress, p.Amount, p.TransactionID, p.AssetID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("agent payment insert failed: %w", translate(err))
	}
	return nil
}

func (s *Postgres) ListAgentPayments(ctx context.Context, agentID int64) ([]domain.AgentPayment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, merchant_address, amount, tx_hash, asset_id, created_at
		 FROM agent_payments WHERE agent_id = $1 ORDER BY id DESC`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AgentPayment{}
	for rows.Next() {
		var p domain.AgentPayment
		if err := rows.Scan(&p.ID, &p.AgentID, &p.MerchantAddress, &p.Amount, &p.TransactionID, &p.AssetID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Reputation -------------------------------------------------------------

// Credit adds delta in one statement; the row lock taken by the upsert
// serializes concurrent credits to the same address.
func (s *Postgres) Credit(ctx context.Context, address string, delta float64) (float64, error) {
	var score float64
	err := s.db.QueryRow(ctx,
		`INSERT INTO user_reputation (address, score) VALUES ($1, $2)
		 ON CONFLICT (address) DO UPDATE SET score = user_reputation.score + EXCLUDED.score
		 RETURNING score`,
		address, delta,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("reputation credit failed: %w", err)
	}
	return score, nil
}

func (s *Postgres) Score(ctx context.Context, address string) (float64, error) {
	var score float64
	err := s.db.QueryRow(ctx, "SELECT score FROM user_reputation WHERE address = $1", address).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return score, err
}

func (s *Postgres) Top(ctx context.Context, limit int) ([]domain.ReputationEntry, error) {
	rows, err := s.db.Query(ctx,
		"SELECT address, score FROM user_reputation ORDER BY score DESC, id ASC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ReputationEntry{}
	for rows.Next() {
		var e domain.ReputationEntry
		if err := rows.Scan(&e.Address, &e.Score); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
