package api

import (
	"net/http"                   // HTTP status codes
	"taxpal/internal/auth"       // Auth and recovery service
	"taxpal/internal/middleware" // Authenticated user lookup

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the sign up body
type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	Password     string `json:"password"`
	Country      string `json:"country"`
	Age          *int   `json:"age"`
	DOB          string `json:"dob"` // YYYY-MM-DD or RFC 3339
	BusinessType string `json:"businessType"`
	IncomeType   string `json:"incomeType"`
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Request struct for forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Request struct for verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Request struct for reset-password
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// RegisterHandler creates an account and returns a session
func RegisterHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		dob, err := parseDate(req.DOB)
		if err != nil {
			badRequest(c, "dob must be a date")
			return
		}
		if req.Age != nil && *req.Age == 0 {
			req.Age = nil // Empty form fields arrive as 0
		}
		sess, err := svc.Register(c.Request.Context(), auth.RegisterInput{
			Name:         req.Name,
			Email:        req.Email,
			PhoneNumber:  req.PhoneNumber,
			Password:     req.Password,
			Country:      req.Country,
			Age:          req.Age,
			DOB:          dob,
			BusinessType: req.BusinessType,
			IncomeType:   req.IncomeType,
		})
		if err != nil {
			fail(c, "register", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "User registered successfully",
			"token":   sess.Token,
			"user":    sess.User,
		})
	}
}

// LoginHandler authenticates a user and returns a session
func LoginHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, "login", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login successful",
			"token":   sess.Token,
			"user":    sess.User,
		})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			fail(c, "me", auth.ErrUnauthorized)
			return
		}
		profile, err := svc.GetMe(c.Request.Context(), userID)
		if err != nil {
			fail(c, "me", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
	}
}

// ForgotPasswordHandler emails a reset code
func ForgotPasswordHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		otp, err := svc.ForgotPassword(c.Request.Context(), req.Email)
		if err != nil {
			fail(c, "forgot_password", err)
			return
		}
		resp := gin.H{"success": true, "message": "OTP sent to your email"}
		if otp != "" {
			resp["otp"] = otp // Development mode only
		}
		c.JSON(http.StatusOK, resp)
	}
}

// VerifyOTPHandler checks a reset code without consuming it
func VerifyOTPHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
			fail(c, "verify_otp", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified successfully"})
	}
}

// ResetPasswordHandler sets a new password with a valid reset code
func ResetPasswordHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		token, err := svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
		if err != nil {
			fail(c, "reset_password", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful", "token": token})
	}
}
