// Package auth implements registration, login and OTP based password recovery.
package auth

import (
	"context"       // Request scoped cancellation
	"crypto/subtle" // Constant time digest comparison
	"errors"        // Error matching
	"fmt"           // Error wrapping
	"regexp"        // Email format
	"strings"       // Input trimming
	"time"          // OTP expiry

	"taxpal/internal/domain" // Importing domain models
	"taxpal/internal/mailer" // Outgoing email
	"taxpal/internal/store"  // Credential store

	"github.com/sirupsen/logrus" // Structured logging
)

// MinPasswordLength is the shortest password accepted on registration and reset
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// UserStore is the credential store the service depends on
type UserStore interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string, includePassword bool) (*domain.User, error)
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	Update(ctx context.Context, id uint, patch store.UserPatch) error
	ConsumeResetOTP(ctx context.Context, id uint, otpHash, newPassword string) error
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// Service orchestrates registration, login and password recovery
type Service struct {
	users   UserStore
	tokens  TokenIssuer
	mail    mailer.Sender
	hasher  Hasher
	now     func() time.Time
	newOTP  func() (string, error)
	devMode bool
}

// Option configures a Service
type Option func(*Service)

// WithHasher replaces the OTP digest function
func WithHasher(h Hasher) Option { return func(s *Service) { s.hasher = h } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithOTPGenerator replaces the random code source
func WithOTPGenerator(gen func() (string, error)) Option { return func(s *Service) { s.newOTP = gen } }

// WithDevMode makes ForgotPassword hand the plain code back to the caller
func WithDevMode(on bool) Option { return func(s *Service) { s.devMode = on } }

// NewService wires the service to its collaborators
func NewService(users UserStore, tokens TokenIssuer, mail mailer.Sender, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		mail:   mail,
		hasher: SHA256Hasher{},
		now:    time.Now,
		newOTP: NewOTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the fields accepted on sign up
type RegisterInput struct {
	Name         string
	Email        string
	PhoneNumber  string
	Password     string
	Country      string
	Age          *int
	DOB          *time.Time
	BusinessType string
	IncomeType   string
}

// Session is a signed token and the profile it was issued for
type Session struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.PhoneNumber) == "" || in.Password == "" {
		return ErrValidation
	}
	if !emailPattern.MatchString(store.NormalizeEmail(in.Email)) {
		return invalid("Please add a valid email")
	}
	if len(in.Password) < MinPasswordLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if !domain.ValidBusinessType(in.BusinessType) {
		return invalid("businessType must be one of Individual, Startup, Company")
	}
	if !domain.ValidIncomeType(in.IncomeType) {
		return invalid("incomeType must be one of Salary, Business, Other")
	}
	if in.Age != nil && *in.Age < 0 {
		return invalid("age must not be negative")
	}
	return nil
}

// Register creates the user and signs them in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Password:     in.Password,
		Country:      strings.TrimSpace(in.Country),
		Age:          in.Age,
		DOB:          in.DOB,
		BusinessType: in.BusinessType,
		IncomeType:   in.IncomeType,
	})
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		return nil, ErrConflict
	case errors.Is(err, store.ErrValidation):
		return nil, ErrValidation
	case err != nil:
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("User registered")
	return s.session(u)
}

// Login checks the credentials and signs the user in
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("Please provide email and password")
	}
	u, err := s.users.FindByEmail(ctx, email, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized // Same answer as a wrong password
	}
	if err != nil {
		return nil, err
	}
	if !u.ComparePassword(password) {
		logrus.WithField("user_id", u.ID).Warn("Login failed: password mismatch")
		return nil, ErrUnauthorized
	}
	return s.session(u)
}

// GetMe returns the profile of an already authenticated user
func (s *Service) GetMe(ctx context.Context, userID uint) (*domain.Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound // Deleted after the token was issued
	}
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

// ForgotPassword stores a fresh reset code and emails it, replacing any earlier code.
// The returned code is empty unless the service runs in development mode.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", invalid("Please provide an email")
	}
	u, err := s.users.FindByEmail(ctx, email, false)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoAccount
	}
	if err != nil {
		return "", err
	}
	otp, err := s.newOTP()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	patch := store.UserPatch{SetOTP: &store.OTP{Hash: s.hasher.Hash(otp), Expires: s.now().Add(OTPTTL)}}
	if err := s.users.Update(ctx, u.ID, patch); err != nil {
		return "", err
	}
	if err := s.deliver(ctx, u, otp); err != nil {
		// Do not leave a code behind that the user never received
		if rbErr := s.users.Update(context.WithoutCancel(ctx), u.ID, store.UserPatch{ClearOTP: true}); rbErr != nil {
			logrus.WithFields(logrus.Fields{"user_id": u.ID, "error": rbErr.Error()}).Error("Failed to roll back reset otp")
		}
		logrus.WithFields(logrus.Fields{"user_id": u.ID, "error": err.Error()}).Error("Reset otp delivery failed")
		return "", ErrDelivery
	}
	if s.devMode {
		logrus.WithFields(logrus.Fields{"email": u.Email, "otp": otp}).Info("Reset otp issued")
		return otp, nil
	}
	return "", nil
}

func (s *Service) deliver(ctx context.Context, u *domain.User, otp string) error {
	msg, err := mailer.ResetOTPMessage(u.Email, u.Name, otp, OTPTTL)
	if err != nil {
		return err
	}
	return s.mail.Send(ctx, msg)
}

// VerifyOTP reports whether otp is the user's outstanding, unexpired code. It changes nothing.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	_, err := s.checkOTP(ctx, email, otp)
	return err
}

// ResetPassword re-checks the code, sets the new password, consumes the code and signs the user in
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) (string, error) {
	if len(newPassword) < MinPasswordLength {
		return "", invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	u, err := s.checkOTP(ctx, email, otp)
	if err != nil {
		return "", err
	}
	// Conditional on the stored digest so a replay or a racing reset cannot reuse it
	if err := s.users.ConsumeResetOTP(ctx, u.ID, *u.ResetPasswordOTP, newPassword); err != nil {
		if errors.Is(err, store.ErrStaleOTP) {
			return "", ErrInvalidOrExpired
		}
		return "", err
	}
	logrus.WithField("user_id", u.ID).Info("Password reset")
	return s.tokens.Issue(u.ID)
}

// checkOTP returns the user when otp matches the stored digest and has not expired
func (s *Service) checkOTP(ctx context.Context, email, otp string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return nil, invalid("Please provide email and OTP")
	}
	u, err := s.users.FindByEmail(ctx, email, false)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPendingReset() {
		return nil, ErrInvalidOrExpired
	}
	digest := s.hasher.Hash(strings.TrimSpace(otp))
	if subtle.ConstantTimeCompare([]byte(digest), []byte(*u.ResetPasswordOTP)) != 1 {
		return nil, ErrInvalidOrExpired
	}
	if !s.now().Before(*u.ResetPasswordExpire) {
		return nil, ErrInvalidOrExpired
	}
	return u, nil
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, User: u.Profile()}, nil
}
