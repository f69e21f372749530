package domain

import "time" // Timestamps

// Transaction types
const (
	TypeIncome  = "Income"
	TypeExpense = "Expense"
)

// Transaction Model
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                 // Primary key
	UserID      *uint     `gorm:"index" json:"user,omitempty"`          // Owning user
	Description string    `gorm:"size:255;not null" json:"description"` // What the entry is for
	Amount      float64   `gorm:"not null" json:"amount"`               // Amount of the transaction
	Category    string    `gorm:"size:64;index" json:"category"`        // Free-form category label
	Date        time.Time `gorm:"index" json:"date"`                    // Booking date, defaults to creation time
	Notes       string    `gorm:"size:1000" json:"notes,omitempty"`     // Optional notes
	Type        string    `gorm:"size:16;not null" json:"type"`         // Income or Expense
	CreatedAt   time.Time `json:"createdAt"`                            // Timestamp of creation
}

// ValidTransactionType reports whether t is one of the two ledger types
func ValidTransactionType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}
