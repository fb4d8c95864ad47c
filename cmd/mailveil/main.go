// mailveil es el binario del broker: API pública, métricas y migraciones.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/mailveil/internal/account"
	"github.com/dropDatabas3/mailveil/internal/authz"
	"github.com/dropDatabas3/mailveil/internal/billing"
	"github.com/dropDatabas3/mailveil/internal/cache"
	"github.com/dropDatabas3/mailveil/internal/clients"
	"github.com/dropDatabas3/mailveil/internal/config"
	"github.com/dropDatabas3/mailveil/internal/consent"
	httpapi "github.com/dropDatabas3/mailveil/internal/http"
	"github.com/dropDatabas3/mailveil/internal/ident"
	"github.com/dropDatabas3/mailveil/internal/metrics"
	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"github.com/dropDatabas3/mailveil/internal/plan"
	"github.com/dropDatabas3/mailveil/internal/rate"
	"github.com/dropDatabas3/mailveil/internal/scope"
	"github.com/dropDatabas3/mailveil/internal/session"
	"github.com/dropDatabas3/mailveil/internal/storage"
	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/dropDatabas3/mailveil/internal/store/memory"
	"github.com/dropDatabas3/mailveil/internal/store/pg"
)

func main() {
	var (
		flagConfig  string
		flagEnvFile string
	)

	root := &cobra.Command{
		Use:   "mailveil",
		Short: "Email-alias identity broker",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagEnvFile != "" {
				// .env opcional: si no existe seguimos con el entorno real.
				_ = godotenv.Load(flagEnvFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "ruta a config.yaml (default: env/defaults)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "ruta a .env (se carga si existe)")

	root.AddCommand(serveCmd(&flagConfig), migrateCmd(&flagConfig))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openRepository(ctx context.Context, cfg *config.Config) (core.Repository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return pg.New(ctx, cfg.Storage.DSN, pg.Tuning{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el broker (API + metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL"), ServiceName: "mailveil"})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, err := openRepository(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer repo.Close()

			if cfg.Flags.Migrate {
				if pgStore, ok := repo.(*pg.Store); ok {
					if err := pgStore.Migrate(ctx); err != nil {
						return fmt.Errorf("migrate: %w", err)
					}
				}
			}

			cc, err := cache.New(cache.Config{
				Driver:   cfg.Cache.Kind,
				Addr:     cfg.Cache.Redis.Addr,
				DB:       cfg.Cache.Redis.DB,
				Prefix:   cfg.Cache.Redis.Prefix,
				Password: os.Getenv("REDIS_PASSWORD"),
			})
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer func() { _ = cc.Close() }()

			var resolverCfg storage.Config
			resolverCfg.Driver = cfg.Files.Driver
			resolverCfg.S3.Bucket = cfg.Files.S3.Bucket
			resolverCfg.S3.Region = cfg.Files.S3.Region
			resolverCfg.S3.Endpoint = cfg.Files.S3.Endpoint
			if d, err := time.ParseDuration(cfg.Files.S3.TTL); err == nil {
				resolverCfg.S3.URLTTL = d
			}
			resolverCfg.Local.BaseURL = cfg.Files.Local.BaseURL
			if resolverCfg.Local.BaseURL == "" {
				resolverCfg.Local.BaseURL = cfg.Broker.BaseURL
			}
			resolver, err := storage.New(resolverCfg)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			var billingProvider billing.Provider
			if cfg.Billing.StripeAPIKey != "" {
				billingProvider = billing.NewStripe(cfg.Billing.StripeAPIKey)
			}

			var limiter rate.Limiter
			if cfg.Cache.Kind == "redis" {
				limiter = rate.NewRedisLimiter(rdb.NewClient(&rdb.Options{
					Addr:     cfg.Cache.Redis.Addr,
					Password: os.Getenv("REDIS_PASSWORD"),
					DB:       cfg.Cache.Redis.DB,
				}), cfg.Cache.Redis.Prefix+"rl:", cfg.Auth.Rate.Max, cfg.RateWindow())
			} else {
				limiter = rate.NewMemoryLimiter(cfg.Auth.Rate.Max, cfg.RateWindow())
			}

			gen := ident.New(ident.StoreAuthority{Repo: repo}, cfg.Broker.EmailDomain)
			plans := plan.Evaluator{FreeAliasLimit: cfg.Broker.FreeAliasLimit}
			avatars := storage.AvatarSource{Resolver: resolver}

			api := &httpapi.API{
				Accounts: account.NewService(account.Deps{
					Repo:    repo,
					Ident:   gen,
					Plans:   plans,
					Billing: billingProvider,
					Promos:  cfg.PromoDurations(),
				}),
				Clients: clients.NewService(clients.Deps{Repo: repo, Ident: gen}),
				Authz: authz.NewService(authz.Deps{
					Repo:  repo,
					Ident: gen,
					Consent: consent.NewService(consent.Deps{
						Repo:   repo,
						Ident:  gen,
						Plans:  plans,
						Policy: consent.DisclosurePolicy(cfg.Broker.AliasDisclosure),
					}),
					Policy:   scope.GrantAll{},
					Avatar:   avatars,
					CodeTTL:  cfg.CodeTTL(),
					TokenTTL: cfg.TokenTTL(),
				}),
				Sessions:      session.NewManager(cc, cfg.SessionTTL()),
				Avatars:       avatars,
				Repo:          repo,
				Limiter:       limiter,
				BaseURL:       cfg.Broker.BaseURL,
				SecureCookies: cfg.Auth.Session.Secure,
			}

			if err := metrics.Register(nil); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())

			log.Info("mailveil up",
				logger.String("addr", cfg.Server.Addr),
				logger.String("metrics_addr", cfg.Server.MetricsAddr),
				logger.String("storage", cfg.Storage.Driver),
				logger.String("email_domain", cfg.Broker.EmailDomain),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpapi.NewServer(cfg.Server.Addr, api.Router()).Run(gctx)
			})
			g.Go(func() error {
				return httpapi.NewServer(cfg.Server.MetricsAddr, metricsMux).Run(gctx)
			})
			return g.Wait()
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del schema y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requiere storage.driver=postgres (actual: %q)", cfg.Storage.Driver)
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL"), ServiceName: "mailveil"})
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			st, err := pg.New(ctx, cfg.Storage.DSN, pg.Tuning{MaxOpenConns: 2})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.L().Info("migrations applied")
			return nil
		},
	}
}
