// Command duel ranks a list of candidate items by running an interactive
// Bayesian top-K session against a comparison oracle. Items and tunables
// come from YAML files; the oracle is either scripted (for simulation) or
// an LLM judge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-duel/infrastructure/backend"
	"github.com/ahrav/go-duel/infrastructure/observability"
	"github.com/ahrav/go-duel/infrastructure/oracle"
	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/ranking"
)

// itemsFile is the YAML schema for the --items flag. Strengths are only
// consulted by the scripted oracles; LLM judges ignore them.
type itemsFile struct {
	Items []itemEntry `yaml:"items"`
}

type itemEntry struct {
	ID       string  `yaml:"id"`
	Content  string  `yaml:"content"`
	Strength float64 `yaml:"strength"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a YAML session config; defaults apply when omitted")
		itemsPath   = flag.String("items", "items.yaml", "Path to the YAML items file")
		k           = flag.Int("k", 0, "Top-K size; overrides the config file when positive")
		oracleName  = flag.String("oracle", "perfect", "Comparison oracle: perfect, noisy, openai, anthropic, google")
		model       = flag.String("model", "", "Judge model override for LLM oracles")
		seed        = flag.Uint64("seed", 0, "Base seed for deterministic runs; overrides the config file when positive")
		qps         = flag.Float64("qps", 0, "Oracle rate limit in requests per second; 0 disables limiting")
		metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090; empty disables")
		verbose     = flag.Bool("verbose", false, "Log every round, not just the outcome")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *k > 0 {
		cfg.K = *k
	}
	if *seed > 0 {
		cfg.Seed = *seed
	}

	items, strengths, err := loadItems(*itemsPath)
	if err != nil {
		log.Fatalf("Failed to load items: %v", err)
	}

	judge, err := buildOracle(ctx, *oracleName, *model, cfg.Seed, strengths)
	if err != nil {
		log.Fatalf("Failed to build oracle: %v", err)
	}
	if *qps > 0 {
		judge = oracle.RateLimited(judge, rate.Limit(*qps), 1)
	}

	cfg = cfg.Normalize()

	local := backend.NewLocal(backend.LocalConfig{Estimator: cfg.NewEstimator()})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := local.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: backend shutdown: %v", err)
		}
	}()

	middleware := []backend.Middleware{backend.CacheMiddleware()}
	if *metricsAddr != "" {
		metrics := observability.NewPrometheusMetrics()
		middleware = append(
			[]backend.Middleware{backend.TracingMiddleware(), backend.MetricsMiddleware(metrics)},
			middleware...,
		)
		go serveMetrics(*metricsAddr)
	}
	compute := backend.Chain(local, middleware...)

	sess, err := ranking.NewSession(items, cfg, compute)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	for _, warn := range sess.DuplicateWarnings() {
		log.Printf("Warning: items %q and %q look like near-duplicates (similarity %.2f)",
			warn.A.ID, warn.B.ID, warn.Similarity)
	}

	if err := run(ctx, sess, judge, *verbose); err != nil {
		log.Fatalf("Session failed: %v", err)
	}

	report(sess)
}

// run drives the session to a stop: select, judge, record, repeat.
func run(ctx context.Context, sess *ranking.Session, judge oracle.Oracle, verbose bool) error {
	for !sess.Stopped() {
		a, b, err := sess.SelectPair(ctx)
		if err != nil {
			return fmt.Errorf("select pair: %w", err)
		}

		winner, err := judge.Compare(ctx, a, b)
		if err != nil {
			return fmt.Errorf("compare %q vs %q: %w", a.ID, b.ID, err)
		}
		loser := a
		if winner.ID == a.ID {
			loser = b
		}

		outcome, err := sess.RecordComparison(ctx, winner.ID, loser.ID)
		if err != nil {
			return fmt.Errorf("record comparison: %w", err)
		}

		if verbose {
			logRound(sess, winner, loser)
		}
		if outcome.Stopped {
			return nil
		}
	}
	return nil
}

func logRound(sess *ranking.Session, winner, loser domain.Item) {
	line := fmt.Sprintf("round %d: %s > %s", sess.Round(), winner.ID, loser.ID)
	if remaining := sess.EstimateRemaining(); remaining != nil {
		line += fmt.Sprintf(" (~%d-%d rounds left)", remaining.Low, remaining.High)
	}
	log.Print(line)
}

func report(sess *ranking.Session) {
	fmt.Printf("Stopped after %d comparisons (%s)\n", sess.Round(), sess.StopReason())
	fmt.Printf("Top %d:\n", len(sess.TopK()))

	est := sess.Estimate()
	index := make(map[string]int, len(sess.Items()))
	for i, item := range sess.Items() {
		index[item.ID] = i
	}
	for rank, item := range sess.TopK() {
		i := index[item.ID]
		fmt.Printf("%2d. %-20s mu=%+.3f sigma=%.3f\n", rank+1, item.ID, est.Mu[i], est.Sigma[i])
	}
}

// loadConfig reads the session config, or returns defaults when path is
// empty. File values layer over the defaults; unset fields keep them.
func loadConfig(path string) (ranking.Config, error) {
	cfg := ranking.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ranking.Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ranking.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// loadItems reads the items file and splits it into the session's item
// list and the true-strength map the scripted oracles need.
func loadItems(path string) ([]domain.Item, map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var file itemsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Items) == 0 {
		return nil, nil, fmt.Errorf("%s contains no items", path)
	}

	items := make([]domain.Item, 0, len(file.Items))
	strengths := make(map[string]float64, len(file.Items))
	for _, entry := range file.Items {
		items = append(items, domain.Item{ID: entry.ID, Content: entry.Content})
		strengths[entry.ID] = entry.Strength
	}
	return items, strengths, nil
}

// buildOracle constructs the requested comparison oracle. LLM oracles read
// their API key from the provider's conventional environment variable.
func buildOracle(ctx context.Context, name, model string, seed uint64, strengths map[string]float64) (oracle.Oracle, error) {
	switch strings.ToLower(name) {
	case "perfect":
		return oracle.NewPerfectOracle(strengths), nil

	case "noisy":
		return oracle.NewNoisyOracle(strengths, seed), nil

	case "openai":
		judge, err := oracle.NewOpenAIJudge(oracle.JudgeConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  model,
		})
		if err != nil {
			return nil, err
		}
		return oracle.NewLLMOracle(judge, seed), nil

	case "anthropic":
		judge, err := oracle.NewAnthropicJudge(oracle.JudgeConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  model,
		})
		if err != nil {
			return nil, err
		}
		return oracle.NewLLMOracle(judge, seed), nil

	case "google":
		judge, err := oracle.NewGoogleJudge(ctx, oracle.JudgeConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  model,
		})
		if err != nil {
			return nil, err
		}
		return oracle.NewLLMOracle(judge, seed), nil

	default:
		return nil, fmt.Errorf("unknown oracle %q", name)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Warning: metrics server: %v", err)
	}
}
