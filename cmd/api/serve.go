package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/echocare/caregiver-api/internal/config"
	"github.com/echocare/caregiver-api/internal/dashboard"
	"github.com/echocare/caregiver-api/internal/email"
	"github.com/echocare/caregiver-api/internal/event"
	appointmentHandler "github.com/echocare/caregiver-api/internal/handler/appointment"
	authHandler "github.com/echocare/caregiver-api/internal/handler/auth"
	dashboardHandler "github.com/echocare/caregiver-api/internal/handler/dashboard"
	"github.com/echocare/caregiver-api/internal/handler/health"
	medicationHandler "github.com/echocare/caregiver-api/internal/handler/medication"
	patientHandler "github.com/echocare/caregiver-api/internal/handler/patient"
	profileHandler "github.com/echocare/caregiver-api/internal/handler/profile"
	"github.com/echocare/caregiver-api/internal/handler/prometheus"
	reminderHandler "github.com/echocare/caregiver-api/internal/handler/reminder"
	reportHandler "github.com/echocare/caregiver-api/internal/handler/report"
	"github.com/echocare/caregiver-api/internal/integration"
	"github.com/echocare/caregiver-api/internal/middleware"
	"github.com/echocare/caregiver-api/internal/router"
	appointmentService "github.com/echocare/caregiver-api/internal/service/appointment"
	authService "github.com/echocare/caregiver-api/internal/service/auth"
	medicationService "github.com/echocare/caregiver-api/internal/service/medication"
	patientService "github.com/echocare/caregiver-api/internal/service/patient"
	profileService "github.com/echocare/caregiver-api/internal/service/profile"
	reminderService "github.com/echocare/caregiver-api/internal/service/reminder"
	reportService "github.com/echocare/caregiver-api/internal/service/report"
	"github.com/echocare/caregiver-api/internal/storage"
	"github.com/echocare/caregiver-api/internal/timezone"
	"github.com/echocare/caregiver-api/internal/webhook"
	cleanup "github.com/echocare/caregiver-api/internal/worker"
	"github.com/echocare/caregiver-api/pkg/auth"
	"github.com/echocare/caregiver-api/pkg/logger"
	"github.com/echocare/caregiver-api/pkg/messaging"
	"github.com/echocare/caregiver-api/pkg/messaging/redis"
	"github.com/echocare/caregiver-api/pkg/metrics"
	"github.com/echocare/caregiver-api/pkg/security"
	"github.com/echocare/caregiver-api/pkg/worker"
)

const metricsNamespace = "caregiver"

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, l)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	if err := timezone.SetDefault(cfg.Dashboard.DefaultTimezone); err != nil {
		return err
	}

	promHandler := prometheus.New(metricsNamespace)
	m := metrics.NewMetrics(metricsNamespace, promHandler.Registry())

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: cfg.Integrations.HTTPTimeout}
	dispatcher := webhook.NewDispatcher(cfg.Integrations.WebhookURL,
		webhook.WithHTTPClient(httpClient),
		webhook.WithTimeout(cfg.Integrations.HTTPTimeout),
		webhook.WithMetrics(m),
	)
	qaClient := integration.NewQAClient(cfg.Integrations.QAURL, integration.WithHTTPClient(httpClient), integration.WithMetrics(m))
	uploadClient := integration.NewUploadClient(cfg.Integrations.UploadURL, integration.WithHTTPClient(httpClient), integration.WithMetrics(m))
	summaryClient := integration.NewSummaryClient(cfg.Integrations.SummaryURL, integration.WithHTTPClient(httpClient), integration.WithMetrics(m))
	if !dispatcher.Configured() {
		l.Warn("Webhook URL not set, notifications are disabled")
	}

	blobs, err := storage.NewFileStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL, cfg.Storage.MaxAvatarBytes)
	if err != nil {
		return err
	}

	jwtSvc, err := auth.NewJWTService(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.Expiry,
	})
	if err != nil {
		return err
	}
	mailer := email.New(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	bus := event.NewBus()
	boards := dashboard.NewStore(
		dashboard.NewLoader(st.patients, st.medications, st.reminders, st.appointments, m),
		dashboard.Config{IdleTTL: cfg.Dashboard.IdleTTL, StaleAfter: cfg.Dashboard.StaleAfter},
		m,
	)
	unsubscribe := bus.Subscribe(boards.Handle)
	defer unsubscribe()

	broker, err := startRelay(ctx, cfg.Redis, bus, boards.Handle, m, l)
	if err != nil {
		return err
	}
	if broker != nil {
		defer broker.Close()
	}

	authSvc := authService.NewService(st.users, st.tokens, jwtSvc, security.NewBcryptHasher(bcrypt.DefaultCost), mailer)
	patientSvc := patientService.NewService(st.patients, dispatcher, bus)
	medicationSvc := medicationService.NewService(st.medications, patientSvc, summaryClient, dispatcher, bus)
	reminderSvc := reminderService.NewService(st.reminders, patientSvc, dispatcher, bus)
	appointmentSvc := appointmentService.NewService(st.appointments, patientSvc, dispatcher, bus)
	reportSvc := reportService.NewService(st.reports, patientSvc, uploadClient, qaClient, bus, m)
	profileSvc := profileService.NewService(st.users, st.profiles, blobs)

	var pinger health.Pinger
	if st.db != nil {
		pinger = st.db
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.Origins
	corsConfig.AllowCredentials = cfg.CORS.AllowCredentials
	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTS = cfg.Server.Production()
	sizeLimit := middleware.DefaultSizeLimitConfig()
	sizeLimit.MaxUploadSize = cfg.Server.MaxUploadBytes

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		promHandler,
		health.NewHandler(pinger, promHandler.Handler()),
		authHandler.NewHandler(authSvc),
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit.RPS),
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     corsConfig,
			SizeLimit:      sizeLimit,
			Security:       securityConfig,
			StaticDir:      blobs.Root(),
			StaticPath:     cfg.Storage.PublicPath,
			Debug:          !cfg.Server.Production(),
		},
		patientHandler.NewHandler(patientSvc),
		medicationHandler.NewHandler(medicationSvc),
		reminderHandler.NewHandler(reminderSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		reportHandler.NewHandler(reportSvc),
		profileHandler.NewHandler(profileSvc),
		dashboardHandler.NewHandler(boards),
	)
	r.Setup()

	refresher := worker.NewRefresher(boards, worker.RefresherConfig{
		Interval:      cfg.Dashboard.RefreshInterval,
		RetryAttempts: 3,
		RetryDelay:    cfg.Dashboard.RefreshInterval / 10,
	}, l.Named("refresher"), m)
	go refresher.Start(ctx)
	go cleanup.NewTokenCleanupWorker(st.tokens, cfg.Tokens.Retention, cfg.Tokens.CleanupInterval).Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Server starting", "port", cfg.Server.Port, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	l.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	dispatcher.Wait()
	l.Info("Server exited")
	return nil
}

// startRelay connects the bus to other instances through Redis. It returns
// a nil broker when no Redis URL is configured.
func startRelay(ctx context.Context, cfg config.RedisConfig, bus *event.Bus, onRemote event.Handler, m *metrics.Metrics, l *logger.Logger) (messaging.Broker, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	relayLog := l.Named("relay")
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, relayLog.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if err := event.NewRelay(bus, broker, instanceID(), onRemote, m, *relayLog.Zerolog()).Start(ctx); err != nil {
		broker.Close()
		return nil, err
	}
	return broker, nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return host + "-" + uuid.NewString()[:8]
}
