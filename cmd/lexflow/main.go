// lexflow runs a legal research query end to end: route, execute the task
// graph, fuse evidence, generate an answer.
//
// Usage:
//
//	lexflow ask "question"              # run one research query
//	lexflow ask --config config.yaml --session s1 "question"
//	lexflow migrate up                  # apply passage store migrations
//	lexflow version                     # show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/lexflow/cache"
	"github.com/BaSui01/lexflow/cascade"
	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/executor"
	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/llm"
	"github.com/BaSui01/lexflow/planner"
	"github.com/BaSui01/lexflow/rerank"
	"github.com/BaSui01/lexflow/retrieval"
	"github.com/BaSui01/lexflow/search"
	"github.com/BaSui01/lexflow/types"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ask":
		runAsk(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	sessionID := fs.String("session", "", "Session ID for evidence dedup")
	year := fs.Int("year", 0, "Restrict local retrieval to a statute year")
	category := fs.String("category", "", "Restrict local retrieval to a category")
	fs.Parse(args)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	sanitized, err := planner.ValidateQuery(question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting lexflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, cleanup, err := buildExecutor(cfg, logger)
	if err != nil {
		logger.Fatal("failed to assemble pipeline", zap.Error(err))
	}
	defer cleanup()

	query := types.Query{
		Text:      sanitized,
		SessionID: *sessionID,
		Filters: types.QueryFilters{
			Year:     *year,
			Category: *category,
		},
	}

	run, err := exec.Execute(ctx, query)
	if err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}

	switch run.State {
	case executor.StateClarificationNeeded:
		fmt.Printf("Clarification needed: %s\n", run.Clarification)
	case executor.StateNoEvidence:
		fmt.Println("No relevant information found for this query.")
	default:
		if run.Answer != "" {
			fmt.Println(run.Answer)
			fmt.Println()
		}
		fmt.Println("Sources:")
		for i, f := range run.Evidence {
			if f.URL != "" {
				fmt.Printf("  [%d] %s - %s\n", i+1, f.Title, f.URL)
			} else {
				fmt.Printf("  [%d] %s\n", i+1, f.Title)
			}
		}
	}
}

// buildExecutor wires every layer of the pipeline from config. The returned
// cleanup closes whatever was opened.
func buildExecutor(cfg *config.Config, logger *zap.Logger) (*executor.Executor, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	client := llm.NewClient(cfg.LLM, logger)
	embedder := llm.NewEmbedder(cfg.LLM, logger)
	reranker := rerank.New(llm.NewScorer(cfg.LLM, logger), logger).WithCollector(collector)
	plan := planner.New(client, logger)

	store, err := buildStore(cfg.Cache, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() { store.Close() })

	registry := buildRegistry(cfg, embedder, logger)

	runner := executor.NewResearchRunner(executor.ResearchRunnerConfig{
		Registry:        registry,
		Store:           store,
		Reranker:        reranker,
		Enhancer:        plan,
		Mode:            cascade.ModeSequential,
		RerankTopN:      cfg.Rerank.TopN,
		RerankThreshold: cfg.Rerank.Threshold,
		Collector:       collector,
		Logger:          logger,
	})

	synth := executor.NewSynthesizer(reranker,
		cfg.Executor.SynthesisTopN, cfg.Executor.SynthesisTokenBudget, collector, logger)

	exec := executor.New(executor.Config{
		Classifier:         plan,
		Clarifier:          plan,
		Runner:             runner,
		Synthesizer:        synth,
		Generator:          executor.NewPromptGenerator(client, logger),
		TaskTimeout:        cfg.Executor.TaskTimeout,
		ClarificationCheck: cfg.Executor.ClarificationCheck,
		Collector:          collector,
		Logger:             logger,
	})
	return exec, cleanup, nil
}

func buildStore(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	if cfg.Backend == "redis" {
		return cache.NewRedisStore(cfg.Redis, cfg.TTL, logger)
	}
	return cache.NewMemoryStore(cfg.TTL, logger), nil
}

// buildRegistry assembles the provider fallback chains. The local store
// leads where it is available; web search and the case-law scraper back it
// up. A missing database is degraded to web-only retrieval, not an error.
func buildRegistry(cfg *config.Config, embedder retrieval.Embedder, logger *zap.Logger) *cascade.Registry {
	registry := cascade.NewRegistry()

	apiSearcher := search.NewAPISearcher(cfg.Search.APIEndpoint, cfg.Search.APIKey,
		cfg.Search.PreferredDomains, cfg.Search.RequestTimeout, logger)
	scraper := search.NewCaseLawScraper("https://"+cfg.Search.CaseLawSite, nil,
		cfg.Search.ScrapeDelay, cfg.Search.RequestTimeout, logger)
	extractor := search.NewExtractorChain(logger,
		search.NewPageExtractor(cfg.Search.RequestTimeout),
		scraper)

	webProvider := search.NewWebProvider(apiSearcher, extractor, cfg.Search.MaxResults, logger)
	caseProvider := search.NewWebProvider(scraper, scraper, cfg.Search.MaxResults, logger)

	statute := []retrieval.Provider{webProvider}
	general := []retrieval.Provider{webProvider, caseProvider}

	if db, err := openDatabase(cfg.Database, logger); err != nil {
		logger.Warn("local passage store unavailable, using web retrieval only", zap.Error(err))
	} else {
		local := retrieval.NewPostgresProvider(db, embedder,
			cfg.Retrieval.FusionAlpha, cfg.Retrieval.PreSelectionK, cfg.Retrieval.FinalLimit, logger)
		statute = append([]retrieval.Provider{local}, statute...)
		general = append([]retrieval.Provider{local}, general...)
	}

	registry.
		Register(cascade.CapabilityStatuteSearch, statute...).
		Register(cascade.CapabilityCaseSearch, caseProvider, webProvider).
		Register(cascade.CapabilityGeneralSearch, general...)
	return registry
}

func openDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name))
	return db, nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

func printVersion() {
	fmt.Printf("lexflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`lexflow - legal research pipeline

Usage:
  lexflow <command> [options]

Commands:
  ask       Run one research query
  migrate   Passage store migration commands
  version   Show version information
  help      Show this help message

Options for 'ask':
  --config <path>     Path to configuration file (YAML)
  --session <id>      Session ID for evidence dedup across queries
  --year <n>          Restrict local retrieval to a statute year
  --category <name>   Restrict local retrieval to a category

Migration subcommands:
  migrate up        Apply all pending migrations

Examples:
  lexflow ask "What is the punishment under Section 420 IPC?"
  lexflow ask --config /etc/lexflow/config.yaml --session s1 "bail conditions"
  lexflow migrate up`)
}
