package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/punchamoorthee/vibeledger/internal/api"
	"github.com/punchamoorthee/vibeledger/internal/chain"
	"github.com/punchamoorthee/vibeledger/internal/config"
	"github.com/punchamoorthee/vibeledger/internal/mint"
	"github.com/punchamoorthee/vibeledger/internal/service"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/punchamoorthee/vibeledger/internal/store/memory"
	"github.com/punchamoorthee/vibeledger/internal/store/redisstore"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		ledger     store.Store
		reputation store.Reputation
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		mem := memory.New()
		ledger, reputation = mem, mem
		log.Warn("using in-memory storage, data is lost on restart")
	default:
		pool, err := store.Connect(ctx, cfg.DBSource)
		if err != nil {
			log.WithError(err).Fatal("unable to connect to database")
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		if err := store.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		db.Close()

		pg := store.NewPostgres(pool)
		ledger, reputation = pg, pg
	}

	if cfg.ReputationBackend == config.StorageRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("unable to reach redis")
		}
		defer client.Close()
		reputation = redisstore.New(client, redisstore.DefaultKey)
	}

	// Collaborators
	var verifier chain.Verifier
	switch cfg.VerifierMode {
	case config.VerifierTrust:
		verifier = chain.Static(true)
		log.Warn("transaction verification disabled")
	default:
		verifier = chain.NewBlockfrost(chain.BlockfrostConfig{
			ProjectID:         cfg.BlockfrostProjectID,
			URL:               cfg.BlockfrostURL,
			RequestsPerSecond: cfg.BlockfrostRPS,
		}, log)
	}

	receiptMinter := newMinter(cfg, mint.ReceiptPolicyID, log)
	invoiceMinter := newMinter(cfg, mint.InvoicePolicyID, log)

	// Services
	rep := service.NewReputation(reputation, log)
	registry, err := service.NewAgentRegistry(ledger, cfg.AgentCacheSize, log)
	if err != nil {
		log.WithError(err).Fatal("agent registry")
	}
	handler := api.NewHandler(api.Services{
		Receipts:   service.NewReceiptLedger(ledger, rep, verifier, receiptMinter, log),
		Invoices:   service.NewInvoiceLedger(ledger, rep, invoiceMinter, log),
		Agents:     registry,
		Payments:   service.NewAgentPayments(ledger, registry, rep, receiptMinter, log),
		Reputation: rep,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           cors.AllowAll().Handler(api.NewRouter(handler, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":       cfg.Port,
		"env":        cfg.Env,
		"storage":    cfg.StorageBackend,
		"reputation": cfg.ReputationBackend,
		"verifier":   cfg.VerifierMode,
		"mint":       cfg.MintMode,
	}).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}

func newMinter(cfg *config.Config, policyID string, log logrus.FieldLogger) mint.Minter {
	stub := mint.NewStub(policyID)
	if cfg.MintMode != config.MintRemote {
		return stub
	}
	return mint.Fallback{
		Primary:   mint.NewRemote(cfg.MintServiceURL, cfg.MintTimeout),
		Secondary: stub,
		Log:       log.WithField("policy_id", policyID),
	}
}
