package http

import (
	"errors"
	"net/http"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	ingestion  *usecases.WebhookIngestion
	automation *usecases.AutomationBridge
	whatsapp   *usecases.WhatsAppUsecase
	dashboard  *usecases.DashboardUsecase
	health     *usecases.HealthUsecase
	auth       *usecases.AuthUsecase
	log        *zap.Logger
}

// Deps is everything the router needs. MetricsHandler may be nil.
type Deps struct {
	Ingestion      *usecases.WebhookIngestion
	Automation     *usecases.AutomationBridge
	WhatsApp       *usecases.WhatsAppUsecase
	Dashboard      *usecases.DashboardUsecase
	Health         *usecases.HealthUsecase
	Auth           *usecases.AuthUsecase
	Middleware     *Middleware
	MetricsHandler http.Handler
	// TrustedProxies may set X-Forwarded-For; nil trusts none.
	TrustedProxies []string
	Log            *zap.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		ingestion:  d.Ingestion,
		automation: d.Automation,
		whatsapp:   d.WhatsApp,
		dashboard:  d.Dashboard,
		health:     d.Health,
		auth:       d.Auth,
		log:        d.Log,
	}
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := NewHandler(d)
	mw := d.Middleware

	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Log.Error("invalid trusted proxies, trusting none", zap.Strings("proxies", d.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(mw.RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(mw.CORSMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	// Public webhook receivers
	hooks := r.Group("/api/webhooks")
	hooks.Use(mw.RateLimitPerIP(50, 100))
	{
		hooks.POST("/evolution", h.EvolutionWebhook)
		hooks.GET("/evolution", h.EvolutionWebhookStatus)
		hooks.POST("/n8n", h.N8NWebhook)
		hooks.GET("/n8n", h.N8NWebhookStatus)
	}

	health := r.Group("/api/health")
	{
		health.GET("/db", h.DBHealth)
		health.GET("/evolution", h.EvolutionHealth)
	}

	r.POST("/api/auth/login", h.Login)

	// Protected dashboard routes
	api := r.Group("/api")
	api.Use(mw.AuthRequired())
	api.Use(mw.RateLimitPerUser(5, 20))
	{
		api.GET("/dashboard/metrics", h.GetMetrics)

		api.GET("/chats", h.ListChats)
		api.GET("/chats/:id/messages", h.GetChatMessages)
		api.PATCH("/chats/:id/status", h.UpdateChatStatus)

		api.GET("/quotes", h.ListQuotes)
		api.GET("/quotes/:id", h.GetQuote)
		api.PATCH("/quotes/:id/status", h.UpdateQuoteStatus)

		api.GET("/products", h.ListProducts)

		api.POST("/automation/messages", h.SendToAutomation)

		api.POST("/whatsapp/instance", h.CreateInstance)
		api.GET("/whatsapp/instance", h.GetInstance)
		api.DELETE("/whatsapp/instance", h.DeleteInstance)
		api.GET("/whatsapp/instance/qr.png", h.GetInstanceQRPNG)
		api.POST("/whatsapp/webhook-config", h.ConfigureWebhook)
		api.GET("/whatsapp/webhook-config", h.ListInstances)
		api.POST("/whatsapp/send-message", h.SendMessage)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.auth.Login(loginReq.Username, loginReq.Password)
	if errors.Is(err, usecases.ErrLoginDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// respondError maps usecase and gateway errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var apiErr *infrastructure.APIError
	switch {
	case errors.Is(err, usecases.ErrNotFound), errors.Is(err, usecases.ErrChatNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecases.ErrInvalidStatus),
		errors.Is(err, usecases.ErrInvalidPayload),
		errors.Is(err, usecases.ErrNoInstance),
		errors.Is(err, usecases.ErrMediaURLRequired),
		errors.Is(err, usecases.ErrInvalidMessageType):
		status = http.StatusBadRequest
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
