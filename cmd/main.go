package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketintel/internal/adapters/ai"
	"marketintel/internal/adapters/config"
	"marketintel/internal/adapters/errors/noop"
	"marketintel/internal/adapters/errors/sentry"
	"marketintel/internal/adapters/firecrawl"
	"marketintel/internal/adapters/newsdata"
	"marketintel/internal/adapters/postgres"
	"marketintel/internal/agents"
	"marketintel/internal/domain/workflow"
	"marketintel/internal/metrics"
	"marketintel/internal/report"
	memoryrepo "marketintel/internal/repository/memory"
	postgresrepo "marketintel/internal/repository/postgres"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

func main() {
	query := flag.String("query", "", "Research query, e.g. \"AI adoption\"")
	marketDomain := flag.String("domain", "", "Market domain, e.g. \"Healthcare\"")
	question := flag.String("question", "", "Optional follow-up question")
	metricsAddr := flag.String("metrics-addr", "", "Address for the Prometheus metrics endpoint (empty to disable)")
	flag.Parse()

	if *query == "" || *marketDomain == "" {
		fmt.Println("Error: --query and --domain are required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)
	defer errorTracker.Flush(context.Background())

	metrics.Init()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, log)
	}

	history := initHistory(cfg, log)

	llm, err := ai.NewOpenAIClient(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	search := firecrawl.NewClient(cfg.Search, cfg.Cache)
	defer search.Close()

	// A nil news client is a valid degraded state
	var news agents.NewsClient
	if client := newsdata.NewClient(cfg.News); client != nil {
		news = client
	} else {
		log.Warnf("NewsData.io API key not found, news collection will be limited")
	}

	orchestrator := agents.NewOrchestrator(
		agents.NewReaderAgent(search, news, llm, cfg.Search.MaxResults),
		agents.NewAnalystAgent(llm),
		agents.NewStrategistAgent(llm),
		agents.NewFormatterAgent(report.NewSpecGenerator(), report.NewFileExporter(nil, nil), cfg.Reports.Dir),
		history,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleSignals(cancel, orchestrator, log)
	go pollStatus(ctx, orchestrator, log)

	result, err := orchestrator.RunWorkflow(ctx, *query, *marketDomain, *question)
	if err != nil {
		log.Fatalf("Workflow aborted: %v", err)
	}
	if !result.Success {
		log.Fatalf("Workflow failed at %s: %s", result.FailedStep, result.Error)
	}

	log.Infof("Workflow %s completed in %.2fs", result.RunID[:8], result.Duration.Seconds())
	log.Infof("Report written to %s", result.Data.ReportDir)
	for format, path := range result.Data.ExportFiles {
		log.Infof("  %s: %s", format, path)
	}
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initHistory picks the run history backend: Postgres when configured,
// in-memory otherwise.
func initHistory(cfg *config.Config, log *logger.Logger) workflow.Repository {
	if !cfg.Postgres.Configured() {
		log.Info("Postgres not configured, keeping run history in memory")
		return memoryrepo.NewRunRepository()
	}

	client, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Warnf("Failed to connect to Postgres, falling back to in-memory history: %v", err)
		return memoryrepo.NewRunRepository()
	}

	repo := postgresrepo.NewRunRepository(client.DB())
	if err := repo.Migrate(context.Background()); err != nil {
		log.Warnf("Failed to migrate runs table, falling back to in-memory history: %v", err)
		return memoryrepo.NewRunRepository()
	}

	log.Info("Run history backed by Postgres")
	return repo
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Infof("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("Metrics server stopped: %v", err)
	}
}

// handleSignals cancels the run on the first signal and exits on the second
func handleSignals(cancel context.CancelFunc, orchestrator *agents.Orchestrator, log *logger.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Warn("Shutdown signal received, cancelling workflow")
	orchestrator.Cancel()
	cancel()

	<-sigCh
	log.Warn("Second signal received, exiting immediately")
	os.Exit(1)
}

// pollStatus logs coarse progress while the workflow runs
func pollStatus(ctx context.Context, orchestrator *agents.Orchestrator, log *logger.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := orchestrator.Status()
			if status.Status != workflow.StatusRunning {
				return
			}
			log.Infof("Progress %d%% - %s", status.Progress, status.CurrentStep)
		}
	}
}
