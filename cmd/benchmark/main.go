package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/punchamoorthee/vibeledger/internal/models"
	"github.com/sirupsen/logrus"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	hotSet      int
	agentID     int64
	apiKey      string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // Idempotent replays
	success201    uint64 // Created
	fail400       uint64 // Rejected (unverified transaction)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | replay | agent")
	flag.IntVar(&hotSet, "hotset", 50, "Distinct transaction ids reused by the replay workload")
	flag.Int64Var(&agentID, "agent", 1, "Agent id for the agent workload")
	flag.StringVar(&apiKey, "api-key", "demo-api-key-coffeebot", "API key for the agent workload")
}

func main() {
	flag.Parse()
	logrus.WithFields(logrus.Fields{
		"workload": workload,
		"workers":  concurrency,
		"duration": duration,
	}).Info("starting benchmark")

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := resty.New().
		SetBaseURL(targetURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	for time.Since(start) < duration {
		var (
			resp *resty.Response
			err  error
		)
		if workload == "agent" {
			resp, err = client.R().
				SetHeader("X-API-Key", apiKey).
				SetBody(models.AgentPayRequest{MerchantAddress: "addr_test1_bench_merchant", Amount: 1000}).
				Post(fmt.Sprintf("/api/v1/agents/%d/pay", agentID))
		} else {
			resp, err = client.R().
				SetBody(nextReceipt()).
				Post("/api/v1/receipts")
		}
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode() {
		case 201:
			atomic.AddUint64(&success201, 1)
		case 200:
			// agent payments always answer 200
			if workload == "agent" {
				atomic.AddUint64(&success201, 1)
			} else {
				atomic.AddUint64(&success200, 1)
			}
		case 400:
			atomic.AddUint64(&fail400, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
	}
}

// nextReceipt builds a receipt request. The replay workload draws from a
// small set of transaction ids so most requests are idempotent replays.
func nextReceipt() models.MintReceiptRequest {
	payer := rand.Intn(1000)
	txID := "bench-" + uuid.NewString()
	if workload == "replay" {
		n := rand.Intn(hotSet)
		txID = fmt.Sprintf("bench-hot-%04d", n)
		payer = n
	}
	return models.MintReceiptRequest{
		TransactionID:   txID,
		PayerAddress:    fmt.Sprintf("addr_test1_bench_payer%04d", payer),
		MerchantAddress: "addr_test1_bench_merchant",
		Amount:          100_000,
	}
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	s200 := atomic.LoadUint64(&success200)
	f400 := atomic.LoadUint64(&fail400)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	replayRate := 0.0
	if total > 0 {
		replayRate = float64(s200) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  tps,
		"success_created": s201,
		"success_replay":  s200,
		"replay_rate_pct": replayRate,
		"rejected":        f400,
		"errors":          fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		logrus.WithError(err).Error("unable to write results file")
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
