package store

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"strings" // Email normalization
	"time"    // OTP expiry

	"taxpal/internal/domain" // Importing domain models

	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Users is the credential store backed by GORM
type Users struct {
	db       *gorm.DB
	hashCost int
}

// NewUsers returns a user store hashing passwords at bcrypt.DefaultCost
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, tests use bcrypt.MinCost
func (s *Users) WithHashCost(cost int) *Users {
	s.hashCost = cost
	return s
}

// OTP is an outstanding reset code, the hash and expiry always travel together
type OTP struct {
	Hash    string
	Expires time.Time
}

// UserPatch lists the fields Update may change, nil pointers are left untouched
type UserPatch struct {
	Name        *string
	PhoneNumber *string
	Country     *string
	Password    *string // Plaintext, hashed before persistence
	SetOTP      *OTP    // Stores a new reset code
	ClearOTP    bool    // Removes any reset code, ignored when SetOTP is set
}

// NormalizeEmail trims and lowercases an email for lookup and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Users) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Create stores a new user with a hashed password and returns it without the hash
func (s *Users) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	// Validate required fields
	if u.Name == "" || u.Email == "" || u.PhoneNumber == "" || u.Password == "" {
		return nil, ErrValidation
	}
	if u.Country == "" {
		u.Country = domain.DefaultCountry // Default country
	}
	hash, err := s.hash(u.Password)
	if err != nil {
		return nil, err
	}
	u.Password = hash
	u.ResetPasswordOTP, u.ResetPasswordExpire = nil, nil
	// The unique index on email makes concurrent registrations resolve to one row
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	out := *u
	out.Password = "" // Never hand the hash back
	return &out, nil
}

// FindByEmail looks a user up by normalized email, the hash is only kept when includePassword is set
func (s *Users) FindByEmail(ctx context.Context, email string, includePassword bool) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	if !includePassword {
		u.Password = ""
	}
	return &u, nil
}

// FindByID returns the user with the given id, without the password hash
func (s *Users) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	u.Password = ""
	return &u, nil
}

// Update applies a partial change to the user
func (s *Users) Update(ctx context.Context, id uint, patch UserPatch) error {
	changes := map[string]any{}
	if patch.Name != nil {
		changes["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.PhoneNumber != nil {
		changes["phone_number"] = *patch.PhoneNumber
	}
	if patch.Country != nil {
		changes["country"] = *patch.Country
	}
	if patch.Password != nil {
		hash, err := s.hash(*patch.Password) // Re-hash a changed password
		if err != nil {
			return err
		}
		changes["password"] = hash
	}
	switch {
	case patch.SetOTP != nil:
		changes["reset_password_otp"] = patch.SetOTP.Hash
		changes["reset_password_expire"] = patch.SetOTP.Expires.UTC()
	case patch.ClearOTP:
		changes["reset_password_otp"] = nil
		changes["reset_password_expire"] = nil
	}
	if len(changes) == 0 {
		return nil // Nothing to do
	}
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}

// ConsumeResetOTP sets a new password and clears the reset code, but only while otpHash is still the stored code
func (s *Users) ConsumeResetOTP(ctx context.Context, id uint, otpHash, newPassword string) error {
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reset_password_otp = ?", id, otpHash).
		Updates(map[string]any{
			"password":              hash,
			"reset_password_otp":    nil,
			"reset_password_expire": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("consume reset otp for user %d: %w", id, res.Error)
	}
	// A concurrent reset or a newer forgot-password request got there first
	if res.RowsAffected == 0 {
		return ErrStaleOTP
	}
	return nil
}
