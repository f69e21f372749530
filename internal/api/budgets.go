package api

import (
	"errors"                     // Error matching
	"net/http"                   // HTTP status codes
	"strconv"                    // Path parameter parsing
	"strings"                    // Input trimming
	"taxpal/internal/domain"     // Importing domain models
	"taxpal/internal/middleware" // Authenticated user lookup
	"taxpal/internal/store"      // Ledger store
	"time"                       // Month validation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// BudgetRequest is the body for creating a budget
type BudgetRequest struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Month       string  `json:"month"` // YYYY-MM
	Description string  `json:"description"`
}

// CreateBudgetHandler adds a monthly budget for the authenticated user
func CreateBudgetHandler(ledger *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		var req BudgetRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		req.Category = strings.TrimSpace(req.Category)
		if req.Category == "" || req.Amount == 0 || req.Month == "" {
			badRequest(c, "Category, amount and month are required")
			return
		}
		if req.Amount < 0 {
			badRequest(c, "amount must be positive")
			return
		}
		if _, err := time.Parse("2006-01", req.Month); err != nil {
			badRequest(c, "month must be YYYY-MM")
			return
		}
		b := domain.Budget{
			UserID:      userID,
			Category:    req.Category,
			Amount:      req.Amount,
			Month:       req.Month,
			Description: req.Description,
		}
		if err := ledger.CreateBudget(c.Request.Context(), &b); err != nil {
			fail(c, "create_budget", err)
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "budget_id": b.ID, "month": b.Month}).Info("Budget created")
		c.JSON(http.StatusCreated, gin.H{"success": true, "budget": b})
	}
}

// ListBudgetsHandler returns the user's budgets with spent-to-date
func ListBudgetsHandler(ledger *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		budgets, err := ledger.ListBudgets(c.Request.Context(), userID)
		if err != nil {
			fail(c, "list_budgets", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "budgets": budgets})
	}
}

// DeleteBudgetHandler removes one of the user's budgets
func DeleteBudgetHandler(ledger *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			badRequest(c, "Invalid budget id")
			return
		}
		if err := ledger.DeleteBudget(c.Request.Context(), userID, uint(id)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Budget not found"})
				return
			}
			fail(c, "delete_budget", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Budget deleted"})
	}
}
