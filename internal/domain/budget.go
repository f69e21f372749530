package domain

import "time" // Timestamps

// Budget statuses
const (
	BudgetActive   = "Active"
	BudgetExceeded = "Exceeded"
)

// Budget Model, allotted amount for one category in one month
type Budget struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID      uint      `gorm:"index;not null" json:"-"`                // Owning user
	Category    string    `gorm:"size:64;not null" json:"category"`       // Category the budget covers
	Amount      float64   `gorm:"not null" json:"budget"`                 // Allotted amount
	Month       string    `gorm:"size:7;index;not null" json:"month"`     // YYYY-MM
	Description string    `gorm:"size:1000" json:"description,omitempty"` // Optional description
	Spent       float64   `gorm:"-" json:"spent"`                         // Derived from expenses on read
	Status      string    `gorm:"-" json:"status"`                        // Derived from Spent on read
	CreatedAt   time.Time `json:"createdAt"`                              // Timestamp of creation
}

// ApplySpent sets the derived spent-to-date and status fields
func (b *Budget) ApplySpent(spent float64) {
	b.Spent = spent
	b.Status = BudgetActive
	if spent > b.Amount {
		b.Status = BudgetExceeded
	}
}
