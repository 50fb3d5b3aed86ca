package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/auditledger"
)

type errorBody struct {
	Error  string `json:"error"`
	Stage  string `json:"stage,omitempty"`
	TxHash string `json:"tx_hash,omitempty"`
	// Retryable tells the client it may resubmit unchanged.
	Retryable bool `json:"retryable,omitempty"`
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auditledger.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auditledger.ErrMissingFields),
		errors.Is(err, auditledger.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auditledger.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, auditledger.ErrAnalysisUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, auditledger.ErrPriceUnavailable),
		errors.Is(err, auditledger.ErrLockNotObtained):
		return http.StatusServiceUnavailable
	case errors.Is(err, auditledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auditledger.ErrForbidden),
		errors.Is(err, auditledger.ErrReauditNotAllowed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Retryable: auditledger.IsRetryable(err)}
	var serr *auditledger.SubmissionError
	if errors.As(err, &serr) {
		body.Stage = string(serr.Stage)
		if serr.Receipt != nil {
			body.TxHash = serr.Receipt.TxHash
		}
	}
	writeJSON(w, statusFor(err), body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return auditledger.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}
