package routes

import (
	"github.com/clinicpos/diagnostics-api/internal/config"
	domainRepo "github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/handler"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/middleware"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth           *handler.AuthHandler
	Transaction    *handler.TransactionHandler
	Lab            *handler.LabHandler
	Reconciliation *handler.ReconciliationHandler
	Printer        *handler.PrinterHandler
	Health         *handler.HealthHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Policy          *middleware.Policy
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.UserRateLimiter
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger, deps.Metrics))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager, deps.Policy))
		if deps.RateLimiter != nil {
			protected.Use(deps.RateLimiter.Middleware())
		}

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	protected.GET("/auth/me", h.Auth.Me)

	idempotent := middleware.IdempotencyRequired(middleware.IdempotencyConfig{
		Repo:   deps.IdempotencyRepo,
		TTL:    deps.Cfg.App.IdempotencyTTL,
		Logger: deps.Logger,
	})

	registerTransactionRoutes(protected, h, idempotent)
	registerReconciliationRoutes(protected, h, idempotent)
	registerPrinterRoutes(protected, h)
}

func registerTransactionRoutes(protected *gin.RouterGroup, h *Handlers, idempotent gin.HandlerFunc) {
	view := middleware.RequireCapability(middleware.CapTransactionsView)

	transactions := protected.Group("/transactions")
	{
		transactions.GET("", view, h.Transaction.List)
		transactions.POST("", middleware.RequireCapability(middleware.CapTransactionsCreate), idempotent, h.Transaction.Create)
		transactions.GET("/:id", view, h.Transaction.Get)
		transactions.GET("/:id/events", view, h.Transaction.Events)
		transactions.PATCH("/:id/tests/:test_id", middleware.RequireCapability(middleware.CapLabUpdate), h.Lab.UpdateTestResult)
		transactions.POST("/:id/release", middleware.RequireCapability(middleware.CapLabRelease), h.Lab.Release)
	}
}

func registerReconciliationRoutes(protected *gin.RouterGroup, h *Handlers, idempotent gin.HandlerFunc) {
	submit := middleware.RequireCapability(middleware.CapReconciliationSubmit)
	approve := middleware.RequireCapability(middleware.CapReconciliationApprove)

	reconciliation := protected.Group("/reconciliation")
	{
		reconciliation.GET("", submit, h.Reconciliation.List)
		reconciliation.GET("/preview", submit, h.Reconciliation.Preview)
		reconciliation.POST("/preview", submit, h.Reconciliation.Preview)
		reconciliation.POST("/submit", submit, idempotent, h.Reconciliation.Submit)
		reconciliation.POST("/request-correction", submit, h.Reconciliation.RequestCorrection)
		reconciliation.POST("/approve-correction", approve, h.Reconciliation.ApproveCorrection)
		reconciliation.GET("/:id", submit, h.Reconciliation.Get)
	}
}

func registerPrinterRoutes(protected *gin.RouterGroup, h *Handlers) {
	printerGroup := protected.Group("/printer")
	printerGroup.Use(middleware.RequireCapability(middleware.CapReceiptsPrint))
	{
		printerGroup.GET("/status", h.Printer.GetStatus)
		printerGroup.POST("/test", h.Printer.TestPrint)
		printerGroup.POST("/receipt", h.Printer.PrintReceipt)
	}
}
