// Package chain checks whether payment transactions exist on the network.
package chain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	PreviewURL     = "https://cardano-preview.blockfrost.io/api/v0"
	DefaultTimeout = 20 * time.Second
)

var verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_chain_verifications_total",
	Help: "Transaction existence checks, labeled by result",
}, []string{"result"})

// Verifier reports whether a transaction exists. Implementations never
// return errors: anything that prevents a positive answer is false.
type Verifier interface {
	TransactionExists(ctx context.Context, txID string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, txID string) bool

func (f VerifierFunc) TransactionExists(ctx context.Context, txID string) bool {
	return f(ctx, txID)
}

// Static answers every check with the same value. Only meant for local
// development and tests.
type Static bool

func (s Static) TransactionExists(context.Context, string) bool {
	return bool(s)
}

// Blockfrost verifies transactions with the Blockfrost REST API.
type Blockfrost struct {
	client  *resty.Client
	url     string
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// BlockfrostConfig configures the Blockfrost client.
type BlockfrostConfig struct {
	ProjectID string
	URL       string
	Timeout   time.Duration
	// RequestsPerSecond caps outgoing calls; zero disables limiting.
	RequestsPerSecond float64
}

func NewBlockfrost(cfg BlockfrostConfig, log logrus.FieldLogger) *Blockfrost {
	if cfg.URL == "" {
		cfg.URL = PreviewURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("project_id", cfg.ProjectID).
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	return &Blockfrost{
		client:  client,
		url:     strings.TrimRight(cfg.URL, "/"),
		limiter: limiter,
		log:     log.WithField("component", "blockfrost"),
	}
}

func (b *Blockfrost) TransactionExists(ctx context.Context, txID string) bool {
	ok, err := b.lookup(ctx, txID)
	if err != nil {
		verificationsTotal.WithLabelValues("error").Inc()
		b.log.WithError(err).WithField("transaction_id", txID).Warn("transaction lookup failed")
		return false
	}
	if ok {
		verificationsTotal.WithLabelValues("found").Inc()
	} else {
		verificationsTotal.WithLabelValues("missing").Inc()
	}
	return ok
}

func (b *Blockfrost) lookup(ctx context.Context, txID string) (bool, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("rate limiter: %w", err)
		}
	}

	res, err := b.client.R().
		SetContext(ctx).
		SetPathParam("hash", txID).
		Get(b.url + "/txs/{hash}")
	if err != nil {
		return false, fmt.Errorf("fetch tx: %w", err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d", res.StatusCode())
	}
}
