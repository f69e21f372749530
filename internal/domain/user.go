package domain

import (
	"time" // Timestamps

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Business types accepted on a profile
const (
	BusinessIndividual = "Individual"
	BusinessStartup    = "Startup"
	BusinessCompany    = "Company"
)

// Income types accepted on a profile
const (
	IncomeSalary   = "Salary"
	IncomeBusiness = "Business"
	IncomeOther    = "Other"
)

// DefaultCountry is stored when registration leaves the country empty
const DefaultCountry = "India"

// User Model
type User struct {
	ID                  uint       `gorm:"primaryKey"`                    // Primary key
	Name                string     `gorm:"size:120;not null"`             // Display name
	Email               string     `gorm:"size:191;uniqueIndex;not null"` // Unique lowercase email
	PhoneNumber         string     `gorm:"size:32;not null"`              // Phone number
	Password            string     `gorm:"size:100;not null" json:"-"`    // Bcrypt hash, never serialized
	Country             string     `gorm:"size:64;default:India"`         // Country of residence
	Age                 *int                                              // Optional age
	DOB                 *time.Time                                        // Optional date of birth
	BusinessType        string     `gorm:"size:16"`                       // Individual, Startup or Company
	IncomeType          string     `gorm:"size:16"`                       // Salary, Business or Other
	ResetPasswordOTP    *string    `gorm:"size:64" json:"-"`              // SHA-256 hex of the outstanding OTP
	ResetPasswordExpire *time.Time `json:"-"`                             // Expiry of the outstanding OTP
	CreatedAt           time.Time                                         // Timestamp of creation
}

// ComparePassword reports whether plain matches the stored hash
func (u *User) ComparePassword(plain string) bool {
	if u.Password == "" {
		return false // Hash was not selected or never set
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// HasPendingReset reports whether an OTP was issued and not yet consumed
func (u *User) HasPendingReset() bool {
	return u.ResetPasswordOTP != nil && u.ResetPasswordExpire != nil
}

// Profile is the public projection of a User
type Profile struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phoneNumber"`
	Country      string     `json:"country"`
	Age          *int       `json:"age,omitempty"`
	DOB          *time.Time `json:"dob,omitempty"`
	BusinessType string     `json:"businessType,omitempty"`
	IncomeType   string     `json:"incomeType,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Profile returns the public projection of the user
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		Country:      u.Country,
		Age:          u.Age,
		DOB:          u.DOB,
		BusinessType: u.BusinessType,
		IncomeType:   u.IncomeType,
		CreatedAt:    u.CreatedAt,
	}
}

// ValidBusinessType reports whether t is empty or a known business type
func ValidBusinessType(t string) bool {
	switch t {
	case "", BusinessIndividual, BusinessStartup, BusinessCompany:
		return true
	}
	return false
}

// ValidIncomeType reports whether t is empty or a known income type
func ValidIncomeType(t string) bool {
	switch t {
	case "", IncomeSalary, IncomeBusiness, IncomeOther:
		return true
	}
	return false
}
