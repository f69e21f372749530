package api

import (
	"net/http"                   // HTTP status codes
	"strconv"                    // Cache key formatting
	"strings"                    // Input trimming
	"taxpal/internal/domain"     // Importing domain models
	"taxpal/internal/middleware" // Authenticated user lookup
	"taxpal/internal/store"      // Ledger store
	"taxpal/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// recentLimit caps how many entries the list and dashboard look at
const recentLimit = 100

// TransactionRequest is the body for creating a ledger entry
type TransactionRequest struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Notes       string   `json:"notes"`
	Type        string   `json:"type"`
}

// TransactionList is the GET /transactions response body
type TransactionList struct {
	Success      bool                 `json:"success"`
	Transactions []domain.Transaction `json:"transactions"`
	Stats        Stats                `json:"stats"`
	Cached       bool                 `json:"cached"`
}

func transactionsKey(userID uint) string {
	return "transactions:user:" + strconv.FormatUint(uint64(userID), 10)
}

func dashboardKey(userID uint) string {
	return "dashboard:user:" + strconv.FormatUint(uint64(userID), 10)
}

// CreateTransactionHandler records a ledger entry for the authenticated user
func CreateTransactionHandler(ledger *store.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		var req TransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		// Validate request
		if strings.TrimSpace(req.Description) == "" || req.Amount == nil || req.Type == "" {
			badRequest(c, "description, amount and type are required")
			return
		}
		if !domain.ValidTransactionType(req.Type) {
			badRequest(c, "type must be Income or Expense")
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD or RFC 3339")
			return
		}
		tx := domain.Transaction{
			UserID:      &userID,
			Description: strings.TrimSpace(req.Description),
			Amount:      *req.Amount,
			Category:    strings.TrimSpace(req.Category),
			Notes:       req.Notes,
			Type:        req.Type,
		}
		if date != nil {
			tx.Date = *date
		}
		if err := ledger.CreateTransaction(c.Request.Context(), &tx); err != nil {
			fail(c, "create_transaction", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":        userID,    // User ID
			"transaction_id": tx.ID,     // New entry
			"amount":         tx.Amount, // Signed amount
			"type":           tx.Type,   // Income or Expense
		}).Info("Transaction created")
		// Invalidate cached reads for this user
		if err := utils.DeleteCache(c.Request.Context(), rdb, transactionsKey(userID), dashboardKey(userID)); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Failed to invalidate cache")
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "transaction": tx})
	}
}

// ListTransactionsHandler returns the user's recent entries with summary stats
func ListTransactionsHandler(ledger *store.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := transactionsKey(userID)
		var cached TransactionList
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		txs, err := ledger.RecentTransactions(ctx, userID, recentLimit)
		if err != nil {
			fail(c, "list_transactions", err)
			return
		}
		resp := TransactionList{Success: true, Transactions: txs, Stats: ComputeStats(txs)}
		// Cache the result for 60 seconds
		if err := utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "key": cacheKey, "error": err.Error()}).Warn("Failed to cache response")
		}
		c.JSON(http.StatusOK, resp)
	}
}
