package store

import (
	"errors"  // Sentinel errors
	"strings" // Driver message matching

	mysqlDriver "github.com/go-sql-driver/mysql" // MySQL error codes
	"gorm.io/gorm"                               // GORM ORM library
)

var (
	ErrValidation = errors.New("missing required fields")             // Required user fields are empty
	ErrEmailTaken = errors.New("user already exists with this email") // Unique email violated
	ErrNotFound   = errors.New("record not found")                    // No matching row
	ErrStaleOTP   = errors.New("reset otp no longer outstanding")     // OTP hash was replaced or consumed
)

// isDuplicate reports whether err is a unique constraint violation
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true // Translated by the dialector
	}
	var myErr *mysqlDriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true // ER_DUP_ENTRY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // SQLite
}

// notFound maps gorm's missing record error to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
