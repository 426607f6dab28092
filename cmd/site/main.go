package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/Genoux/website/internal/handlers"
	"github.com/Genoux/website/internal/jobs"
	"github.com/Genoux/website/internal/motion"
	"github.com/Genoux/website/internal/payments"
	"github.com/Genoux/website/internal/platform/config"
	pfirestore "github.com/Genoux/website/internal/platform/firestore"
	"github.com/Genoux/website/internal/platform/markdown"
	"github.com/Genoux/website/internal/platform/metrics"
	"github.com/Genoux/website/internal/platform/observability"
	"github.com/Genoux/website/internal/platform/secrets"
	"github.com/Genoux/website/internal/platform/session"
	"github.com/Genoux/website/internal/registration"
	"github.com/Genoux/website/internal/repositories"
	firestoreRepo "github.com/Genoux/website/internal/repositories/firestore"
	"github.com/Genoux/website/internal/repositories/sqlite"
	"github.com/Genoux/website/internal/services"
	"github.com/Genoux/website/templates"
)

// backend is the persistence surface shared by the SQLite and Firestore stores.
type backend interface {
	Events() repositories.EventRepository
	Registrations() repositories.RegistrationRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("site")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Session.SigningKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	loc, err := cfg.Site.Location()
	if err != nil {
		logger.Fatal("invalid site timezone", zap.String("timezone", cfg.Site.Timezone), zap.Error(err))
	}
	preset, err := registration.ParseCopyPreset(cfg.Site.RegistrationCopy)
	if err != nil {
		logger.Fatal("invalid registration copy preset", zap.Error(err))
	}
	wording := registration.CopyFor(preset)

	store, err := openBackend(cfg)
	if err != nil {
		logger.Fatal("failed to open event store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	paymentManager, err := newPaymentManager(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise payment providers", zap.Error(err))
	}

	var publisher services.ConfirmationPublisher
	var pubsubClient *pubsub.Client
	if strings.TrimSpace(cfg.PubSub.ProjectID) != "" {
		pubsubClient, err = newPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			logger.Warn("pubsub unavailable; confirmations disabled", zap.Error(err))
		} else {
			defer func() {
				if err := pubsubClient.Close(); err != nil {
					logger.Warn("pubsub close error", zap.Error(err))
				}
			}()
			topic, err := jobs.EnsureTopic(ctx, pubsubClient, cfg.PubSub.ConfirmationTopic)
			if err != nil {
				logger.Warn("pubsub topic unavailable; confirmations disabled", zap.Error(err))
			} else {
				confirmations, err := jobs.NewPubSubConfirmationPublisher(topic)
				if err != nil {
					logger.Fatal("failed to initialise confirmation publisher", zap.Error(err))
				}
				defer confirmations.Stop()
				publisher = confirmations
			}
		}
	}

	metricsManager := metrics.NewManager()

	eventService, err := services.NewEventService(services.EventServiceDeps{
		Events:   store.Events(),
		Schemas:  registration.DefaultSchemas(),
		Location: loc,
		Clock:    time.Now,
		Logger:   observability.EventLogger(logger.Named("events")),
	})
	if err != nil {
		logger.Fatal("failed to initialise event service", zap.Error(err))
	}

	registrationService, err := services.NewRegistrationService(services.RegistrationServiceDeps{
		Events:        eventService,
		Registrations: store.Registrations(),
		Copy:          wording,
		Clock:         time.Now,
		Logger:        observability.EventLogger(logger.Named("registrations")),
	})
	if err != nil {
		logger.Fatal("failed to initialise registration service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Events:          eventService,
		Registrations:   registrationService,
		Store:           store.Registrations(),
		Payments:        paymentManager,
		Publisher:       publisher,
		Recorder:        metricsManager,
		DefaultCurrency: cfg.Site.Currency,
		AssetBaseURL:    cfg.Site.AssetBaseURL,
		Locale:          wording.Locale,
		Clock:           time.Now,
		Logger:          observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	systemService, err := newSystemService(store, pubsubClient, fetcher, cfg, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	renderer, err := handlers.NewRenderer(templates.FS, time.Now)
	if err != nil {
		logger.Fatal("failed to parse page templates", zap.Error(err))
	}

	sessions, err := session.NewStore(session.Config{
		SigningKey:    cfg.Session.SigningKey,
		CookieName:    cfg.Session.CookieName,
		SecureCookies: cfg.Session.SecureCookies,
		TTL:           cfg.Session.TTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise session store", zap.Error(err))
	}

	timeline := motion.DefaultTimeline()
	variants, err := motion.NewDefaultRegistry()
	if err != nil {
		logger.Fatal("failed to build motion registry", zap.Error(err))
	}
	md := markdown.New()

	pageHandlers, err := handlers.NewPageHandlers(handlers.PageDeps{
		Events:        eventService,
		Checkout:      checkoutService,
		Sessions:      sessions,
		Renderer:      renderer,
		Markdown:      md,
		Choreographer: motion.NewChoreographer(variants, timeline),
		Copy:          wording,
		BaseURL:       cfg.Site.BaseURL,
		AssetBaseURL:  cfg.Site.AssetBaseURL,
		Currency:      cfg.Site.Currency,
		Funnel:        metricsManager,
	})
	if err != nil {
		logger.Fatal("failed to initialise page handlers", zap.Error(err))
	}

	apiHandlers, err := handlers.NewAPIHandlers(handlers.APIDeps{
		Events:        eventService,
		Registry:      variants,
		Timeline:      timeline,
		Markdown:      md,
		AssetBaseURL:  cfg.Site.AssetBaseURL,
		Currency:      cfg.Site.Currency,
		DefaultLocale: wording.Locale,
	})
	if err != nil {
		logger.Fatal("failed to initialise api handlers", zap.Error(err))
	}

	calendarHandlers, err := handlers.NewCalendarHandlers(eventService, md, cfg.Site.BaseURL, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise calendar handlers", zap.Error(err))
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(buildInfo),
	}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.RequestIDMiddleware,
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			observability.ClientHintsMiddleware(wording.Locale),
			metricsManager.Middleware,
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithMetricsHandler(metricsManager.Handler()),
		handlers.WithNotFoundPage(pageHandlers.NotFound),
		handlers.WithPageRoutes(pageHandlers.Routes),
		handlers.WithCalendarRoutes(calendarHandlers.Routes),
		handlers.WithAPIRoutes(apiHandlers.Routes),
		handlers.WithWebhookRoutes(handlers.NewWebhookHandlers(checkoutService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("lowping site listening",
			zap.String("store", cfg.Store.Backend),
			zap.String("copy", string(preset)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	project, err := config.Lookup("SECRETS_PROJECT_ID")
	if err != nil {
		return nil, err
	}
	if project == "" {
		if project, err = config.Lookup("FIRESTORE_PROJECT_ID"); err != nil {
			return nil, err
		}
	}
	fallback, err := config.Lookup("SECRETS_LOCAL_FILE")
	if err != nil {
		return nil, err
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(project),
	}
	if fallback != "" {
		opts = append(opts, secrets.WithFallbackFile(fallback))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func openBackend(cfg config.Config) (backend, error) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		return firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore))
	case config.StoreSQLite, "":
		return sqlite.Open(cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newPaymentManager(cfg config.Config, logger *zap.Logger) (*payments.Manager, error) {
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:        cfg.PSP.StripeAPIKey,
			WebhookSecret: cfg.PSP.StripeWebhookSecret,
			Logger:        payments.StripeLogger(observability.EventLogger(logger.Named("stripe"))),
			Clock:         time.Now,
		})
		if err != nil {
			return nil, err
		}
		return payments.NewManager(map[string]payments.Provider{"stripe": stripeProvider})
	}
	if !cfg.IsLocal() {
		return nil, errors.New("stripe api key is required outside local environments")
	}
	logger.Warn("stripe not configured; using the local fake checkout")
	return payments.NewManager(
		map[string]payments.Provider{"fake": payments.NewFakeProvider(time.Now)},
		payments.WithDefaultProvider("fake"),
	)
}

func newPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	return pubsub.NewClient(ctx, cfg.ProjectID, opts...)
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("SITE_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(store backend, client *pubsub.Client, fetcher *secrets.Fetcher, cfg config.Config, build services.BuildInfo) (services.SystemService, error) {
	checks := []repositories.DependencyCheck{{
		Name:     cfg.Store.Backend,
		Timeout:  1500 * time.Millisecond,
		Critical: true,
		Check:    store.Ping,
	}}
	if client != nil {
		topic := client.Topic(cfg.PubSub.ConfirmationTopic)
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("confirmation topic missing")
				}
				return nil
			},
		})
	}
	if fetcher != nil && strings.TrimSpace(cfg.Secrets.ProjectID) != "" && !cfg.IsLocal() {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}
