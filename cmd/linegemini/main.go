package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shohag/linegemini/internal/api"
	"github.com/shohag/linegemini/internal/awslambda"
	"github.com/shohag/linegemini/internal/bridge"
	"github.com/shohag/linegemini/internal/config"
	"github.com/shohag/linegemini/internal/gemini"
	"github.com/shohag/linegemini/internal/line"
	"github.com/shohag/linegemini/internal/retention"
	"github.com/shohag/linegemini/internal/signing"
	"github.com/shohag/linegemini/internal/storage"
)

var version = "0.1.0"

// runtimeAPIEnv is set by the Lambda runtime inside a function sandbox.
const runtimeAPIEnv = "AWS_LAMBDA_RUNTIME_API"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	lambda := lambdaCmd(&configPath)
	rootCmd := &cobra.Command{
		Use:   "linegemini",
		Short: "linegemini answers LINE messages with Gemini",
		// A custom runtime starts the bootstrap binary without arguments.
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv(runtimeAPIEnv) != "" {
				return lambda.RunE(lambda, args)
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(lambda)
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(statsCmd(&configPath))
	rootCmd.AddCommand(pruneCmd(&configPath))
	rootCmd.AddCommand(signCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)
			if !checkCredentials(cfg, log) {
				os.Exit(1)
			}

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			handler, err := buildHandler(ctx, cfg, store, log)
			if err != nil {
				return err
			}

			sweeper := retention.NewSweeper(cfg.Retention, store, log)
			sweeper.Start(ctx)

			server := api.NewServer(cfg.Server, handler, store, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Str("callback_path", cfg.Server.CallbackPath).
				Str("storage", cfg.Storage.Driver).
				Str("model", gemini.Model).
				Msg("linegemini is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			sweeper.Stop()

			log.Info().Msg("linegemini stopped")
			return nil
		},
	}
}

func lambdaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve webhooks through the AWS Lambda runtime (API Gateway proxy events)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)
			if !checkCredentials(cfg, log) {
				os.Exit(1)
			}

			store, err := setupStorage(lambdaStorageConfig(cfg.Storage), log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			handler, err := buildHandler(context.Background(), cfg, store, log)
			if err != nil {
				return err
			}

			awslambda.New(handler, log).Start()
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("migrations completed successfully")
			return nil
		},
	}
}

func statsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show invocation outcome counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := store.GetStats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func pruneCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete invocation records older than the retention TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if ttl, _ := cmd.Flags().GetDuration("older-than"); ttl > 0 {
				cfg.Retention.InvocationTTL = ttl
			}
			if cfg.Retention.InvocationTTL <= 0 {
				return fmt.Errorf("retention.invocation_ttl must be positive")
			}

			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			log := setupLogger(cfg.Logging)
			n, err := retention.NewSweeper(cfg.Retention, store, log).Sweep(context.Background())
			if err != nil {
				return fmt.Errorf("failed to prune invocations: %w", err)
			}

			fmt.Printf("purged %d invocation(s)\n", n)
			return nil
		},
	}
	cmd.Flags().Duration("older-than", 0, "override retention.invocation_ttl")
	return cmd
}

func signCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the X-Line-Signature for a request body (file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Line.ChannelSecret == "" {
				return &config.MissingError{Env: config.EnvChannelSecret}
			}

			var body []byte
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), signing.Sign(cfg.Line.ChannelSecret, body))
			return nil
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linegemini v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// checkCredentials logs the first missing credential and reports whether
// all of them are present.
func checkCredentials(cfg *config.Config, log zerolog.Logger) bool {
	if err := cfg.ValidateCredentials(); err != nil {
		log.Error().Msg(err.Error())
		return false
	}
	return true
}

func buildHandler(ctx context.Context, cfg *config.Config, store storage.Storage, log zerolog.Logger) (*bridge.Handler, error) {
	replier, err := line.NewClient(cfg.Line.ChannelAccessToken, cfg.Line.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}

	generator, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return bridge.New(cfg.Line.ChannelSecret, generator, replier, store, log), nil
}

func setupStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	case "none", "":
		log.Info().Msg("invocation recording disabled")
		return storage.Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// lambdaStorageConfig moves a relative sqlite path under the temp directory,
// the only writable location inside the Lambda sandbox.
func lambdaStorageConfig(cfg config.StorageConfig) config.StorageConfig {
	if cfg.Driver == "sqlite" && !filepath.IsAbs(cfg.SQLite.Path) {
		cfg.SQLite.Path = filepath.Join(os.TempDir(), filepath.Base(cfg.SQLite.Path))
	}
	return cfg
}

func storeFromConfig(configPath string) (storage.Storage, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)
	store, err := setupStorage(cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}
