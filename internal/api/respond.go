package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // Date input trimming
	"time"     // Date parsing

	"taxpal/internal/auth" // Service error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// fail writes the JSON error envelope for err, internal detail only goes to the log
func fail(c *gin.Context, op string, err error) {
	status, message := classify(err)
	entry := logrus.WithFields(logrus.Fields{
		"op":     op,          // Operation that failed
		"status": status,      // HTTP status returned
		"error":  err.Error(), // Underlying error
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

// classify maps service errors to a status code and a client safe message
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrConflict):
		return http.StatusBadRequest, auth.ErrConflict.Error()
	case errors.Is(err, auth.ErrInvalidOrExpired):
		return http.StatusBadRequest, auth.ErrInvalidOrExpired.Error()
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, auth.ErrUnauthorized.Error()
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, auth.ErrNotFound.Error()
	case errors.Is(err, auth.ErrNoAccount):
		return http.StatusNotFound, auth.ErrNoAccount.Error()
	case errors.Is(err, auth.ErrDelivery):
		return http.StatusInternalServerError, auth.ErrDelivery.Error()
	}
	return http.StatusInternalServerError, "Server error"
}

// badRequest rejects malformed input with a message
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// parseDate accepts YYYY-MM-DD or RFC 3339, empty input gives nil
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
