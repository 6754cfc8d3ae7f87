package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", Validation("Invalid input data", nil), http.StatusBadRequest, "Invalid input data"},
		{"database", Database("insert failed", errors.New("conn refused")), http.StatusInternalServerError, "Database operation failed. Please try again later."},
		{"email", Email("Email sending failed", nil), http.StatusInternalServerError, "Email sending failed"},
		{"email without message", &EmailError{}, http.StatusInternalServerError, "Failed to send notification email. Your message was saved."},
		{"wrapped database", fmt.Errorf("profile: %w", Database("fetch", nil)), http.StatusInternalServerError, "Database operation failed. Please try again later."},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Something went wrong. Please try again later."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := Status(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}
}

func TestDatabaseDoesNotDoubleWrap(t *testing.T) {
	inner := Database("insert contact submission", errors.New("disk full"))
	outer := Database("create submission", inner)
	assert.Same(t, inner, outer)
}
