package auth

import (
	"crypto/rand"   // OTP entropy
	"crypto/sha256" // OTP digest
	"encoding/hex"  // Digest encoding
	"math/big"      // Uniform range
	"strconv"       // Code formatting
	"time"          // Validity window
)

// OTPTTL is how long a reset code stays valid
const OTPTTL = 10 * time.Minute

// Hasher turns a value into a one-way digest
type Hasher interface {
	Hash(input string) string
}

// SHA256Hasher hashes with SHA-256 and hex encodes the result
type SHA256Hasher struct{}

// Hash returns the hex SHA-256 digest of input
func (SHA256Hasher) Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NewOTP returns a uniformly random 4-digit code between 1000 and 9999
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(1000+n.Int64(), 10), nil
}
