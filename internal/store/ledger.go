package store

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"time"    // Booking dates

	"taxpal/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Ledger stores transactions and budgets, always scoped to an owning user
type Ledger struct {
	db *gorm.DB
}

// NewLedger returns a ledger store
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CreateTransaction saves a new ledger entry, a zero date becomes the current time
func (l *Ledger) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	t.Date = t.Date.UTC() // Keep stored dates comparable across drivers
	if err := l.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the user's latest entries by date, newest first
func (l *Ledger) RecentTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").Order("id desc").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// CreateBudget saves a new budget with zero spent
func (l *Ledger) CreateBudget(ctx context.Context, b *domain.Budget) error {
	if err := l.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	b.ApplySpent(0)
	return nil
}

// ListBudgets returns the user's budgets with spent and status derived from their expenses
func (l *Ledger) ListBudgets(ctx context.Context, userID uint) ([]domain.Budget, error) {
	var budgets []domain.Budget
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month desc").Order("id desc").
		Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return budgets, nil
	}
	var expenses []domain.Transaction
	if err := l.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, domain.TypeExpense).
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	spent := SpentByCategoryMonth(expenses)
	for i := range budgets {
		budgets[i].ApplySpent(spent[budgetKey(budgets[i].Category, budgets[i].Month)])
	}
	return budgets, nil
}

// DeleteBudget removes one of the user's budgets
func (l *Ledger) DeleteBudget(ctx context.Context, userID, id uint) error {
	res := l.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Budget{})
	if res.Error != nil {
		return fmt.Errorf("delete budget %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound // Missing or owned by someone else
	}
	return nil
}

func budgetKey(category, month string) string {
	return category + "|" + month
}

// SpentByCategoryMonth sums absolute expense amounts keyed by category and YYYY-MM
func SpentByCategoryMonth(txs []domain.Transaction) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range txs {
		if t.Type != domain.TypeExpense {
			continue
		}
		amount := t.Amount
		if amount < 0 {
			amount = -amount
		}
		out[budgetKey(t.Category, t.Date.UTC().Format("2006-01"))] += amount
	}
	return out
}
