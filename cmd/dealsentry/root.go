package main

import (
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dealsentry/dealsentry/internal/analyze"
	"github.com/dealsentry/dealsentry/internal/cache"
	"github.com/dealsentry/dealsentry/internal/config"
	"github.com/dealsentry/dealsentry/internal/features"
	"github.com/dealsentry/dealsentry/internal/paapi"
	"github.com/dealsentry/dealsentry/internal/pipeline"
	"github.com/dealsentry/dealsentry/internal/score"
	"github.com/dealsentry/dealsentry/internal/selection"
	"github.com/dealsentry/dealsentry/internal/telemetry"
)

var cfgPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dealsentry",
		Short: "Product selection and price watching for the India marketplace",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Log)
			return nil
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	cmd.AddCommand(serveCmd(), searchCmd(), watchCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

func setupLogging(lc config.LogConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if lc.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// deps is everything the commands share, wired once per invocation.
type deps struct {
	cfg      config.Config
	metrics  *telemetry.Metrics
	adapter  *paapi.Adapter
	pipeline *pipeline.Pipeline
	db       *sqlx.DB
}

func buildDeps(reg prometheus.Registerer) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	metrics := telemetry.NewMetrics(reg)

	transport := paapi.NewHTTPTransport(cfg.Upstream.Credentials(), 10*time.Second)
	acfg := cfg.Upstream.Adapter
	acfg.PartnerTag = cfg.Upstream.PartnerTag
	acfg.Marketplace = cfg.Upstream.Marketplace
	adapter := paapi.NewAdapter(transport, acfg, metrics, nil)

	var results cache.SearchCacheRepo
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		results = cache.NewRedisSearchCache(client)
	} else {
		results = cache.NewMemorySearchCache()
	}

	var db *sqlx.DB
	if cfg.Postgres.DSN != "" {
		db, err = sqlx.Connect("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
	}

	pipe := pipeline.New(cfg.Pipeline,
		features.NewExtractor(cfg.Features.ExtraDenylist),
		analyze.NewCachedAnalyzer(analyze.NewAnalyzer(), cfg.Scoring.AnalysisTTL),
		score.NewEngine(cfg.Scoring.EnableExcellence),
		selection.NewModelSelector(),
		selection.NewMultiCardSelector(cfg.MultiCard),
		adapter, results, metrics)

	return &deps{cfg: cfg, metrics: metrics, adapter: adapter, pipeline: pipe, db: db}, nil
}
