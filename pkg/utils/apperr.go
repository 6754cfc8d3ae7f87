package utils

import (
	"errors"
	"net/http"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
)

// RespondAppError maps err onto the shared failure response.
func RespondAppError(w http.ResponseWriter, err error) {
	status, message := apperr.Status(err)
	resp := ErrorResponse{Message: message}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
		resp.MissingFields = verr.Missing
	}
	RespondJSON(w, status, resp)
}
