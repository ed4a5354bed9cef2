package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"whatsapp_crm/internal/config"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/interfaces/http"
	"whatsapp_crm/internal/repository"
	"whatsapp_crm/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := infrastructure.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(registry)

	// Initialize Repositories
	chatRepo := repository.NewChatRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	quoteRepo := repository.NewQuoteRepository(pgClient.Pool)
	productRepo := repository.NewProductRepository(pgClient.Pool)
	webhookRepo := repository.NewWebhookRepository(pgClient.Pool)
	instanceRepo := repository.NewInstanceRepository(pgClient.Pool)
	metricsRepo := repository.NewMetricsRepository(pgClient.Pool)
	tableManager := repository.NewTableManager(pgClient.Pool)

	// Sync catalog
	if cfg.ProductsCSV != "" {
		syncProducts(ctx, productRepo, cfg.ProductsCSV, log)
	}

	// Reply queue and metrics cache live in Redis when it is configured
	var (
		queue infrastructure.JobQueue
		cache interfaces.MetricsCache
	)
	if cfg.RedisAddr != "" {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		queue = infrastructure.NewRedisQueue(rdb)
		cache = infrastructure.NewRedisCache(rdb, "crm:")
		log.Info("using redis for reply queue and metrics cache", zap.String("addr", cfg.RedisAddr))
	} else {
		queue = infrastructure.NewMemoryQueue(cfg.ReplyQueueSize, metrics)
		cache = infrastructure.NewMemoryCache()
	}

	// External clients
	if !cfg.EvolutionConfigured() {
		log.Warn("EVOLUTION_API_URL or EVOLUTION_API_KEY missing; gateway calls will fail")
	}
	evolution := infrastructure.NewEvolutionClient(cfg.EvolutionAPIURL, cfg.EvolutionAPIKey, cfg.EvolutionTimeout, log)
	n8n := infrastructure.NewN8NClient(cfg.N8NWebhookURL, cfg.N8NWebhookSecret, cfg.EvolutionTimeout)

	var responder interfaces.Responder = usecases.CannedResponder{}
	if cfg.OpenAIAPIKey != "" {
		responder = usecases.FallbackResponder{
			Primary: infrastructure.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIModel),
			Log:     log,
		}
		log.Info("openai responder enabled")
	}

	var alerter interfaces.QuoteAlerter
	if cfg.TelegramBotToken != "" && cfg.TelegramAlertChatID != 0 {
		notifier, err := infrastructure.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramAlertChatID, log)
		if err != nil {
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			alerter = notifier
		}
	}

	// Initialize Usecases & Services
	recipientLimiter := infrastructure.NewMessageRateLimiter(0.5, 3)
	defer recipientLimiter.Stop()

	replyService := usecases.NewReplyService(responder, evolution, messageRepo, recipientLimiter, log)
	workers := infrastructure.NewReplyWorkerPool(queue, replyService.Handle, infrastructure.WorkerPoolConfig{
		Workers:     cfg.ReplyWorkers,
		MaxAttempts: cfg.ReplyMaxAttempts,
		BaseBackoff: cfg.ReplyBackoff,
	}, log, metrics)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	workers.Start(workerCtx)

	ingestion := usecases.NewWebhookIngestion(webhookRepo, chatRepo, messageRepo, queue, log, metrics)
	automation := usecases.NewAutomationBridge(usecases.AutomationDeps{
		Notifier:   n8n,
		Messages:   messageRepo,
		Quotes:     quoteRepo,
		Logs:       webhookRepo,
		Calculator: usecases.NewQuoteCalculator(productRepo),
		Alerter:    alerter,
		Secret:     cfg.N8NWebhookSecret,
		Log:        log,
		Metrics:    metrics,
	})
	whatsapp := usecases.NewWhatsAppUsecase(evolution, instanceRepo, chatRepo, messageRepo, cfg.AppURL, log)
	dashboard := usecases.NewDashboardUsecase(usecases.DashboardDeps{
		Chats:    chatRepo,
		Messages: messageRepo,
		Quotes:   quoteRepo,
		Products: productRepo,
		Metrics:  metricsRepo,
		Cache:    cache,
		Log:      log,
	})
	health := usecases.NewHealthUsecase(tableManager, evolution, cfg.EvolutionAPIURL, cfg.EvolutionAPIKey)
	auth := usecases.NewAuthUsecase(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.JWTSecret)

	middleware := http.NewMiddleware(cfg.JWTSecret, log, metrics)
	defer middleware.Stop()
	if !middleware.AuthEnabled() {
		log.Warn("JWT_SECRET not set; dashboard routes are unauthenticated")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, http.Deps{
		Ingestion:      ingestion,
		Automation:     automation,
		WhatsApp:       whatsapp,
		Dashboard:      dashboard,
		Health:         health,
		Auth:           auth,
		Middleware:     middleware,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		TrustedProxies: cfg.TrustedProxies,
		Log:            log,
	})

	srv := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("gateway_webhook", cfg.WebhookURL()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	workers.Shutdown()
	return nil
}

func syncProducts(ctx context.Context, repo *repository.ProductRepository, path string, log *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("failed to open products CSV", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	n, err := repo.SyncFromCSV(ctx, f)
	if err != nil {
		log.Warn("failed to sync products from CSV", zap.Error(err))
	}
	log.Info("products synced", zap.Int("rows", n))
}
