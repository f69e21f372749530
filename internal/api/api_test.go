package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"taxpal/internal/auth"
	"taxpal/internal/config"
	"taxpal/internal/db"
	"taxpal/internal/domain"
	"taxpal/internal/mailer"
	"taxpal/internal/store"
	"taxpal/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var otpPattern = regexp.MustCompile(`Your OTP is: (\d{4})`)

// captureMail keeps every message and can be told to fail
type captureMail struct {
	sent []mailer.Message
	fail bool
}

func (m *captureMail) Send(_ context.Context, msg mailer.Message) error {
	if m.fail {
		return errors.New("smtp: 421 service not available")
	}
	m.sent = append(m.sent, msg)
	return nil
}

// lastOTP extracts the code from the most recent message
func (m *captureMail) lastOTP() string {
	if len(m.sent) == 0 {
		return ""
	}
	match := otpPattern.FindStringSubmatch(m.sent[len(m.sent)-1].Text)
	if match == nil {
		return ""
	}
	return match[1]
}

// APITestSuite runs the HTTP layer against SQLite and miniredis
type APITestSuite struct {
	suite.Suite
	gdb    *gorm.DB
	mr     *miniredis.Miniredis
	mail   *captureMail
	now    time.Time
	router *gin.Engine
}

// SetupSuite runs once
func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

// SetupTest runs before each test
func (s *APITestSuite) SetupTest() {
	gdb, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	s.Require().NoError(err)
	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1) // Every connection to :memory: is a separate database
	s.T().Cleanup(func() { _ = sqlDB.Close() })
	s.Require().NoError(db.Migrate(gdb))
	s.gdb = gdb

	s.mr = miniredis.RunT(s.T())
	s.mail = &captureMail{}
	s.now = time.Now()
	s.router = s.newRouter(0)
}

func (s *APITestSuite) newRouter(rateLimit int) *gin.Engine {
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	svc := auth.NewService(store.NewUsers(s.gdb).WithHashCost(bcrypt.MinCost), tokens, s.mail,
		auth.WithClock(func() time.Time { return s.now }))
	r, err := NewRouter(Deps{
		Auth:          svc,
		Ledger:        store.NewLedger(s.gdb),
		Tokens:        tokens,
		Redis:         redis.NewClient(&redis.Options{Addr: s.mr.Addr()}),
		AuthRateLimit: rateLimit,
	})
	s.Require().NoError(err)
	return r
}

// do sends a JSON request and decodes the JSON response
func (s *APITestSuite) do(method, path string, body any, token string) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (s *APITestSuite) register(email, password string) string {
	code, body := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Asha", "email": email, "phoneNumber": "9876543210", "password": password,
	}, "")
	s.Require().Equal(http.StatusCreated, code, body)
	return body["token"].(string)
}

func (s *APITestSuite) TestEndToEndPasswordRecovery() {
	s.register("a@x.com", "pw123456")

	code, body := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "pw123456"}, "")
	s.Equal(http.StatusOK, code)
	s.NotEmpty(body["token"])

	code, _ = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, code)

	code, body = s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "a@x.com"}, "")
	s.Equal(http.StatusOK, code)
	s.Equal("OTP sent to your email", body["message"])
	s.NotContains(body, "otp")
	otp := s.mail.lastOTP()
	s.Require().Len(otp, 4)

	var u domain.User
	s.Require().NoError(s.gdb.Where("email = ?", "a@x.com").First(&u).Error)
	s.Require().True(u.HasPendingReset())
	s.Equal(auth.SHA256Hasher{}.Hash(otp), *u.ResetPasswordOTP, "only the digest is stored")
	s.WithinDuration(s.now.Add(10*time.Minute), *u.ResetPasswordExpire, time.Second)

	wrong := "0000"
	if otp == wrong {
		wrong = "1111"
	}
	code, body = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": wrong}, "")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Invalid or expired OTP", body["message"])

	code, _ = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": otp}, "")
	s.Equal(http.StatusOK, code)

	code, body = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "a@x.com", "otp": otp, "newPassword": "newpw123"}, "")
	s.Equal(http.StatusOK, code)
	s.NotEmpty(body["token"])

	code, _ = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "newpw123"}, "")
	s.Equal(http.StatusOK, code)

	// Replaying the reset fails once the code is consumed
	code, body = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "a@x.com", "otp": otp, "newPassword": "another1"}, "")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Invalid or expired OTP", body["message"])
}

func (s *APITestSuite) TestExpiredOTPRejected() {
	s.register("a@x.com", "pw123456")
	code, _ := s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "a@x.com"}, "")
	s.Require().Equal(http.StatusOK, code)
	otp := s.mail.lastOTP()

	s.now = s.now.Add(11 * time.Minute)
	code, _ = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": otp}, "")
	s.Equal(http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "a@x.com", "otp": otp, "newPassword": "newpw123"}, "")
	s.Equal(http.StatusBadRequest, code)
}

func (s *APITestSuite) TestRegisterTwiceConflicts() {
	s.register("a@x.com", "pw123456")

	code, body := s.do(http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Bob", "email": "A@X.com", "phoneNumber": "1", "password": "otherpw1", "country": "Canada",
	}, "")
	s.Equal(http.StatusBadRequest, code)
	s.Equal(false, body["success"])
	s.Equal("User already exists with this email", body["message"])
}

func (s *APITestSuite) TestRegisterReturnsProfile() {
	code, body := s.do(http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Asha", "email": "Asha@X.com", "phoneNumber": "1", "password": "pw123456",
		"age": 31, "dob": "1994-03-02", "businessType": "Startup", "incomeType": "Business",
	}, "")
	s.Require().Equal(http.StatusCreated, code, body)
	user := body["user"].(map[string]any)
	s.Equal("asha@x.com", user["email"])
	s.Equal("India", user["country"])
	s.Equal(float64(31), user["age"])
	s.Equal("Startup", user["businessType"])
	s.NotContains(user, "password")
}

func (s *APITestSuite) TestRegisterMissingFields() {
	code, body := s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@x.com", "password": "pw123456"}, "")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Please provide all required fields", body["message"])
}

func (s *APITestSuite) TestLoginMessagesMatch() {
	s.register("a@x.com", "pw123456")

	code1, wrongPassword := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "nope1234"}, "")
	code2, noUser := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ghost@x.com", "password": "pw123456"}, "")
	s.Equal(http.StatusUnauthorized, code1)
	s.Equal(http.StatusUnauthorized, code2)
	s.Equal(wrongPassword, noUser)
}

func (s *APITestSuite) TestMe() {
	token := s.register("a@x.com", "pw123456")

	code, body := s.do(http.MethodGet, "/api/auth/me", nil, token)
	s.Equal(http.StatusOK, code)
	s.Equal("a@x.com", body["user"].(map[string]any)["email"])

	code, _ = s.do(http.MethodGet, "/api/auth/me", nil, "")
	s.Equal(http.StatusUnauthorized, code)

	s.Require().NoError(s.gdb.Where("email = ?", "a@x.com").Delete(&domain.User{}).Error)
	code, body = s.do(http.MethodGet, "/api/auth/me", nil, token)
	s.Equal(http.StatusNotFound, code)
	s.Equal("User not found", body["message"])
}

func (s *APITestSuite) TestForgotPasswordUnknownUser() {
	code, body := s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "ghost@x.com"}, "")
	s.Equal(http.StatusNotFound, code)
	s.Equal("No user found with this email", body["message"])
	s.Empty(s.mail.sent)
}

func (s *APITestSuite) TestForgotPasswordDeliveryFailureRollsBack() {
	s.register("a@x.com", "pw123456")
	s.mail.fail = true

	code, body := s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "a@x.com"}, "")
	s.Equal(http.StatusInternalServerError, code)
	s.Equal("Email could not be sent. Please try again later.", body["message"])

	var u domain.User
	s.Require().NoError(s.gdb.Where("email = ?", "a@x.com").First(&u).Error)
	s.Nil(u.ResetPasswordOTP)
	s.Nil(u.ResetPasswordExpire)
}

func (s *APITestSuite) TestSecondForgotPasswordInvalidatesFirst() {
	s.register("a@x.com", "pw123456")
	_, _ = s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "a@x.com"}, "")
	first := s.mail.lastOTP()
	second := first
	// Codes are random, ask until the two differ
	for i := 0; i < 20 && second == first; i++ {
		_, _ = s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "a@x.com"}, "")
		second = s.mail.lastOTP()
	}
	s.Require().NotEqual(first, second)

	code, _ := s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": first}, "")
	s.Equal(http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": second}, "")
	s.Equal(http.StatusOK, code)
}

func (s *APITestSuite) TestTransactionsAndDashboard() {
	token := s.register("a@x.com", "pw123456")

	code, _ := s.do(http.MethodGet, "/api/transactions", nil, "")
	s.Equal(http.StatusUnauthorized, code)

	for _, tx := range []gin.H{
		{"description": "Salary", "amount": 5000, "category": "Salary", "type": "Income", "date": "2025-11-01"},
		{"description": "Rent", "amount": -1500, "category": "Rent", "type": "Expense", "date": "2025-11-02"},
		{"description": "Groceries", "amount": 500, "category": "Food", "type": "Expense", "date": "2025-11-03T10:00:00.000Z"},
	} {
		code, body := s.do(http.MethodPost, "/api/transactions", tx, token)
		s.Require().Equal(http.StatusCreated, code, body)
	}

	code, body := s.do(http.MethodGet, "/api/transactions", nil, token)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(false, body["cached"])
	txs := body["transactions"].([]any)
	s.Require().Len(txs, 3)
	s.Equal("Groceries", txs[0].(map[string]any)["description"])
	stats := body["stats"].(map[string]any)
	s.Equal(5000.0, stats["monthlyIncome"])
	s.Equal(2000.0, stats["monthlyExpenses"])
	s.Equal(150.0, stats["estimatedTax"])
	s.Equal(60.0, stats["savingsRate"])

	_, body = s.do(http.MethodGet, "/api/transactions", nil, token)
	s.Equal(true, body["cached"])

	code, body = s.do(http.MethodGet, "/api/dashboard", nil, token)
	s.Require().Equal(http.StatusOK, code)
	breakdown := body["breakdown"].([]any)
	s.Require().Len(breakdown, 2)
	s.Equal(map[string]any{"label": "Rent", "value": 75.0}, breakdown[0])
	s.Equal(map[string]any{"label": "Food", "value": 25.0}, breakdown[1])

	// A new entry invalidates both cached reads
	code, _ = s.do(http.MethodPost, "/api/transactions", gin.H{"description": "Coffee", "amount": 5, "type": "Expense"}, token)
	s.Require().Equal(http.StatusCreated, code)
	_, body = s.do(http.MethodGet, "/api/transactions", nil, token)
	s.Equal(false, body["cached"])
	s.Len(body["transactions"].([]any), 4)
	_, body = s.do(http.MethodGet, "/api/dashboard", nil, token)
	s.Equal(false, body["cached"])
}

func (s *APITestSuite) TestCacheWriteFailureIsLogged() {
	token := s.register("a@x.com", "pw123456")
	hook := logtest.NewGlobal()
	defer hook.Reset()
	s.mr.SetError("ERR cache unavailable")
	defer s.mr.SetError("")

	for _, path := range []string{"/api/transactions", "/api/dashboard"} {
		code, body := s.do(http.MethodGet, path, nil, token)
		s.Equal(http.StatusOK, code, path)
		s.Equal(false, body["cached"], path)
	}

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Failed to cache response" {
			warned = append(warned, e.Data["key"].(string))
		}
	}
	s.ElementsMatch([]string{"transactions:user:1", "dashboard:user:1"}, warned)
}

func (s *APITestSuite) TestCreateTransactionValidation() {
	token := s.register("a@x.com", "pw123456")

	for _, tx := range []gin.H{
		{"amount": 5, "type": "Expense"},
		{"description": "No amount", "type": "Expense"},
		{"description": "Bad type", "amount": 5, "type": "Transfer"},
		{"description": "Bad date", "amount": 5, "type": "Income", "date": "yesterday"},
	} {
		code, body := s.do(http.MethodPost, "/api/transactions", tx, token)
		s.Equal(http.StatusBadRequest, code, tx)
		s.Equal(false, body["success"])
	}
}

func (s *APITestSuite) TestTransactionsAreScopedToUser() {
	alice := s.register("alice@x.com", "pw123456")
	bob := s.register("bob@x.com", "pw123456")

	code, _ := s.do(http.MethodPost, "/api/transactions", gin.H{"description": "Salary", "amount": 10, "type": "Income"}, alice)
	s.Require().Equal(http.StatusCreated, code)

	_, body := s.do(http.MethodGet, "/api/transactions", nil, bob)
	s.Empty(body["transactions"])
}

func (s *APITestSuite) TestBudgets() {
	token := s.register("a@x.com", "pw123456")

	code, body := s.do(http.MethodPost, "/api/budgets", gin.H{"category": "Food", "amount": 100, "month": "2025-11"}, token)
	s.Require().Equal(http.StatusCreated, code, body)
	budget := body["budget"].(map[string]any)
	s.Equal("Active", budget["status"])
	id := budget["id"].(float64)

	code, _ = s.do(http.MethodPost, "/api/budgets", gin.H{"category": "Food", "amount": 100, "month": "11/2025"}, token)
	s.Equal(http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/budgets", gin.H{"category": "Food", "month": "2025-11"}, token)
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/transactions", gin.H{
		"description": "Feast", "amount": -150, "category": "Food", "type": "Expense", "date": "2025-11-20",
	}, token)
	s.Require().Equal(http.StatusCreated, code)

	code, body = s.do(http.MethodGet, "/api/budgets", nil, token)
	s.Require().Equal(http.StatusOK, code)
	budgets := body["budgets"].([]any)
	s.Require().Len(budgets, 1)
	s.Equal(150.0, budgets[0].(map[string]any)["spent"])
	s.Equal("Exceeded", budgets[0].(map[string]any)["status"])

	other := s.register("b@x.com", "pw123456")
	path := "/api/budgets/" + jsonNumber(id)
	code, _ = s.do(http.MethodDelete, path, nil, other)
	s.Equal(http.StatusNotFound, code)
	code, _ = s.do(http.MethodDelete, path, nil, token)
	s.Equal(http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/budgets/abc", nil, token)
	s.Equal(http.StatusBadRequest, code)
}

func (s *APITestSuite) TestAuthRateLimit() {
	s.router = s.newRouter(2)
	for i := 0; i < 2; i++ {
		code, _ := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "pw123456"}, "")
		s.Equal(http.StatusUnauthorized, code)
	}
	code, body := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "pw123456"}, "")
	s.Equal(http.StatusTooManyRequests, code)
	s.Equal("Too many requests", body["message"])
}

func (s *APITestSuite) TestHealth() {
	code, body := s.do(http.MethodGet, "/", nil, "")
	s.Equal(http.StatusOK, code)
	s.Equal("TaxPal API is running", body["message"])
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]domain.Transaction{
		{Amount: 1000, Type: domain.TypeIncome},
		{Amount: -250, Type: domain.TypeExpense},
	})
	require.Equal(t, Stats{MonthlyIncome: 1000, MonthlyExpenses: 250, EstimatedTax: 30, SavingsRate: 75}, stats)
	require.Equal(t, Stats{}, ComputeStats(nil))
}

func TestComputeBreakdownDefaultsCategory(t *testing.T) {
	out := ComputeBreakdown([]domain.Transaction{
		{Amount: 10, Type: domain.TypeExpense},
		{Amount: 30, Type: domain.TypeExpense, Category: "Rent"},
		{Amount: 99, Type: domain.TypeIncome, Category: "Salary"},
	})
	require.Equal(t, []Slice{{Label: "Rent", Value: 75}, {Label: "Other", Value: 25}}, out)
	require.Empty(t, ComputeBreakdown(nil))
}
