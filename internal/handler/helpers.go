// Package handler exposes the loan manager over HTTP. Routing uses chi;
// every service error is mapped to a status code in exactly one place.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	// LoanID is set on partial approvals so the client can retry the
	// status update without creating a second loan.
	LoanID string `json:"loan_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var (
		notFound      *domain.ErrNotFound
		validation    *domain.ErrValidation
		invalidParams *domain.ErrInvalidLoanParameters
		resolved      *domain.ErrApplicationResolved
		partial       *domain.ErrPartialApproval
		remote        *domain.ErrRemoteStore
		unauthorized  *domain.ErrUnauthorized
		forbidden     *domain.ErrForbidden
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &invalidParams):
		writeError(w, http.StatusBadRequest, invalidParams.Error())
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, forbidden.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &resolved):
		writeError(w, http.StatusConflict, resolved.Error())
	case errors.As(err, &partial):
		// The loan exists; only the application status write failed.
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:  partial.Error(),
			LoanID: partial.LoanID,
		})
	case errors.As(err, &remote):
		writeError(w, http.StatusBadGateway, remote.Error())
	default:
		h.logger.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
