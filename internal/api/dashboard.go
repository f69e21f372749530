package api

import (
	"math"                       // Rounding
	"net/http"                   // HTTP status codes
	"sort"                       // Breakdown ordering
	"taxpal/internal/domain"     // Importing domain models
	"taxpal/internal/middleware" // Authenticated user lookup
	"taxpal/internal/store"      // Ledger store
	"taxpal/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// estimatedTaxRate is applied to income for the tax estimate
const estimatedTaxRate = 0.03

// Stats summarizes a set of ledger entries
type Stats struct {
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	EstimatedTax    float64 `json:"estimatedTax"`
	SavingsRate     float64 `json:"savingsRate"` // Percent of income kept
}

// Slice is one category's share of expenses, in percent
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Dashboard is the GET /dashboard response body
type Dashboard struct {
	Success   bool    `json:"success"`
	Stats     Stats   `json:"stats"`
	Breakdown []Slice `json:"breakdown"`
	Cached    bool    `json:"cached"`
}

// ComputeStats totals income and expenses by absolute amount
func ComputeStats(txs []domain.Transaction) Stats {
	var s Stats
	for _, t := range txs {
		switch t.Type {
		case domain.TypeIncome:
			s.MonthlyIncome += math.Abs(t.Amount)
		case domain.TypeExpense:
			s.MonthlyExpenses += math.Abs(t.Amount)
		}
	}
	s.EstimatedTax = math.Round(s.MonthlyIncome * estimatedTaxRate)
	if s.MonthlyIncome > 0 {
		s.SavingsRate = math.Round((s.MonthlyIncome - s.MonthlyExpenses) / s.MonthlyIncome * 100)
	}
	return s
}

// ComputeBreakdown returns each expense category's rounded share, largest first
func ComputeBreakdown(txs []domain.Transaction) []Slice {
	totals := map[string]float64{}
	var sum float64
	for _, t := range txs {
		if t.Type != domain.TypeExpense {
			continue
		}
		label := t.Category
		if label == "" {
			label = "Other"
		}
		totals[label] += math.Abs(t.Amount)
		sum += math.Abs(t.Amount)
	}
	out := make([]Slice, 0, len(totals))
	if sum == 0 {
		return out
	}
	for label, v := range totals {
		out = append(out, Slice{Label: label, Value: math.Round(v / sum * 100)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// DashboardHandler returns summary stats and the expense breakdown for the user
func DashboardHandler(ledger *store.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := dashboardKey(userID)
		var cached Dashboard
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		txs, err := ledger.RecentTransactions(ctx, userID, recentLimit)
		if err != nil {
			fail(c, "dashboard", err)
			return
		}
		resp := Dashboard{Success: true, Stats: ComputeStats(txs), Breakdown: ComputeBreakdown(txs)}
		// Cache the result for 60 seconds
		if err := utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "key": cacheKey, "error": err.Error()}).Warn("Failed to cache response")
		}
		c.JSON(http.StatusOK, resp)
	}
}
