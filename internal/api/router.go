package api

import (
	"net/http"                   // HTTP status codes
	"taxpal/internal/auth"       // Auth and recovery service
	"taxpal/internal/middleware" // JWT and rate limit middleware
	"taxpal/internal/store"      // Ledger store
	"taxpal/internal/utils"      // Token issuer
	"time"                       // Rate limit window

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	Auth          *auth.Service
	Ledger        *store.Ledger
	Tokens        *utils.TokenIssuer
	Redis         *redis.Client // Optional, nil disables caching and rate limiting
	AuthRateLimit int           // Public auth requests per minute per IP, 0 disables
	Origins       []string      // Allowed CORS origins, empty allows all
}

// NewRouter builds the gin engine with every route mounted under /api
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.Default() // Gin router instance
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	if len(d.Origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.Origins
	}
	r.Use(cors.New(corsCfg))

	// Health check
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "TaxPal API is running"})
	})

	requireAuth := middleware.JWTAuthMiddleware(d.Tokens)
	apiGroup := r.Group("/api")

	// Auth routes, the public ones are rate limited per IP
	authGroup := apiGroup.Group("/auth")
	limited := authGroup.Group("", middleware.RateLimit(d.Redis, "auth", d.AuthRateLimit, time.Minute))
	limited.POST("/register", RegisterHandler(d.Auth)) // Registration endpoint
	limited.POST("/signup", RegisterHandler(d.Auth))   // Alias used by the sign up form
	limited.POST("/login", LoginHandler(d.Auth))       // Login endpoint
	limited.POST("/forgot-password", ForgotPasswordHandler(d.Auth))
	limited.POST("/verify-otp", VerifyOTPHandler(d.Auth))
	limited.POST("/reset-password", ResetPasswordHandler(d.Auth))
	authGroup.GET("/me", requireAuth, MeHandler(d.Auth)) // Current user

	// Ledger routes (protected by JWT)
	protected := apiGroup.Group("", requireAuth)
	protected.GET("/transactions", ListTransactionsHandler(d.Ledger, d.Redis))
	protected.POST("/transactions", CreateTransactionHandler(d.Ledger, d.Redis))
	protected.GET("/dashboard", DashboardHandler(d.Ledger, d.Redis))
	protected.GET("/budgets", ListBudgetsHandler(d.Ledger))
	protected.POST("/budgets", CreateBudgetHandler(d.Ledger))
	protected.DELETE("/budgets/:id", DeleteBudgetHandler(d.Ledger))

	return r, nil
}
