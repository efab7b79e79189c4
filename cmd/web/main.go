package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/store/frameworkdb"
	"github.com/de-tools/compliance-atlas/pkg/store/memory"
	"github.com/de-tools/compliance-atlas/pkg/store/resultdb"

	handlers "github.com/de-tools/compliance-atlas/pkg/handlers/analysis"
	"github.com/de-tools/compliance-atlas/pkg/observability"
	"github.com/de-tools/compliance-atlas/pkg/server"
	"github.com/de-tools/compliance-atlas/pkg/services/analysis"
	"github.com/de-tools/compliance-atlas/pkg/services/augment"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluate"
	"github.com/de-tools/compliance-atlas/pkg/services/livescan"
	"github.com/de-tools/compliance-atlas/pkg/services/normalize"
	"github.com/de-tools/compliance-atlas/pkg/services/profiles"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/de-tools/compliance-atlas/pkg/services/score"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	cfgPath      string
	profilesPath string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Compliance Atlas",
		RunE:  runServer,
	}

	usr, _ := user.Current()
	defaultProfiles := fmt.Sprintf("%s/.aws/config", usr.HomeDir)

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the settings file")
	rootCmd.Flags().StringVar(&profilesPath, "profiles", defaultProfiles,
		"Path to the account profile registry (default is $HOME/.aws/config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadSettings(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		settings = loaded
		logger.Info().Msgf("Configuration found at `%s` successfully loaded.", cfgPath)
	}
	settings.ApplyEnv()

	frameworks, err := buildFrameworkRegistry(ctx, settings)
	if err != nil {
		return err
	}

	available, err := frameworks.ListFrameworks(ctx, registry.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list frameworks: %w", err)
	}
	logger.Info().Msgf("Found the following frameworks:")
	for _, framework := range available {
		logger.Info().Msgf("Id: `%s`, Name: `%s`, Version: `%s`", framework.ID, framework.Name, framework.Version)
	}

	sink, results, err := buildResultStore(ctx, settings)
	if err != nil {
		return err
	}

	provider, err := augment.NewProvider(ctx, settings.Augmentation.Provider, augment.Options{
		APIKey:       settings.Augmentation.APIKey,
		Model:        settings.Augmentation.Model,
		Endpoint:     settings.Augmentation.Endpoint,
		DeploymentID: settings.Augmentation.Deployment,
	})
	if err != nil {
		return fmt.Errorf("failed to create augmentation provider: %w", err)
	}

	var accountProfiles profiles.Registry
	if reg, err := profiles.NewRegistry(profilesPath); err != nil {
		logger.Warn().Err(err).Msgf("Account profiles not loaded from `%s`; live scans use ambient credentials.", profilesPath)
	} else {
		accountProfiles = reg
	}

	metrics := observability.NewMetrics()

	cfg := analysis.Config{
		Fetcher: analysis.RoutingFetcher{
			Files: analysis.FileFetcher{},
			Live:  livescan.NewFetcher(livescan.FetcherConfig{}),
		},
		Registry: frameworks,
		Evaluator: evaluate.NewEvaluator(evaluate.Config{
			Provider:       provider,
			DegradedPolicy: augment.DegradedPolicy(settings.Augmentation.DegradedPolicy),
		}),
		Aggregator:  score.NewAggregator(settings.Scoring.Weights()),
		Normalizer:  normalize.NewNormalizer(),
		Credentials: livescan.NewVerifier(livescan.VerifierConfig{Profiles: accountProfiles}),
		Sink:        sink,
		Metrics:     metrics,
	}

	host := settings.Server.Host
	port := strconv.Itoa(settings.Server.Port)
	if v := os.Getenv("SERVER_HOST"); v != "" {
		host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port = v
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(host, port),
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Runner:   analysis.NewOrchestrator(cfg),
			Scans:    analysis.NewCoordinator(cfg),
			Results:  results,
			Registry: frameworks,
			Metrics:  metrics,
		},
	})

	return api.Start()
}

func buildFrameworkRegistry(ctx context.Context, settings *config.Settings) (registry.Registry, error) {
	if settings.Frameworks.Database != "" {
		db, err := sql.Open("pgx", settings.Frameworks.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open framework database: %w", err)
		}
		store, err := frameworkdb.NewStore(db)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate framework store: %w", err)
		}
		return store, nil
	}
	return registry.LoadDir(ctx, settings.Frameworks.Dir)
}

func buildResultStore(ctx context.Context, settings *config.Settings) (analysis.ResultSink, handlers.ResultStore, error) {
	if settings.Results.PostgresDSN == "" {
		store := memory.NewStore()
		return store, store, nil
	}

	pool, err := resultdb.NewPool(ctx, settings.Results.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to result database: %w", err)
	}
	store, err := resultdb.NewStore(pool)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate result store: %w", err)
	}
	return store, store, nil
}
