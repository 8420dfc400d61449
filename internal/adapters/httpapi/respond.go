package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kittycore/internal/platform/units"
	"kittycore/pkg/domain"
)

type errorResponse struct {
	Error string      `json:"error"`
	Code  domain.Code `json:"code,omitempty"`
}

// amountResponse renders a ledger amount in wei and ether.
type amountResponse struct {
	Wei   domain.Amount `json:"wei"`
	Ether string        `json:"ether"`
}

func amount(a domain.Amount) amountResponse {
	return amountResponse{Wei: a, Ether: units.Ether(a)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an engine failure onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvariantViolation) {
		return http.StatusInternalServerError
	}
	switch domain.CodeOf(err) {
	case domain.CodeNotFound, domain.CodeNoSuchAuction:
		return http.StatusNotFound
	case domain.CodeNotOwnerOrApproved, domain.CodeNotAuthorized, domain.CodeNotSeller:
		return http.StatusForbidden
	case domain.CodeAlreadyOnAuction, domain.CodeNotEligible, domain.CodeNotReady,
		domain.CodeAlreadyInitialized, domain.CodeNotPaused, domain.CodeLimitReached:
		return http.StatusConflict
	case domain.CodeInsufficientValue:
		return http.StatusPaymentRequired
	case domain.CodeSystemPaused:
		return http.StatusLocked
	case domain.CodeInvalidArgument, domain.CodeInvalidDuration, domain.CodeDurationOverflow:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: domain.CodeOf(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: domain.CodeInvalidArgument})
}

// caller reads the acting address. System accounts cannot act over HTTP.
func caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr := domain.Address(strings.TrimSpace(r.Header.Get(CallerHeader)))
	if addr.IsZero() {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + CallerHeader + " header"})
		return "", false
	}
	if addr == domain.CoreAddress || domain.IsEscrowAddress(addr) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "system accounts cannot call the API", Code: domain.CodeNotAuthorized})
		return "", false
	}
	return addr, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	return true
}

func kittyParam(w http.ResponseWriter, r *http.Request, name string) (domain.KittyID, bool) {
	id, err := domain.ParseKittyID(chi.URLParam(r, name))
	if err != nil || id == 0 {
		badRequest(w, name+" must be a positive kitty id")
		return 0, false
	}
	return id, true
}

func kindParam(w http.ResponseWriter, r *http.Request) (domain.AuctionKind, bool) {
	kind, err := domain.ParseAuctionKind(chi.URLParam(r, "kind"))
	if err != nil {
		badRequest(w, err.Error())
		return "", false
	}
	return kind, true
}

// valueArg reads a denominated amount such as "2finney"; empty is zero.
func valueArg(op, raw string) (domain.Amount, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := units.ParseAmount(raw)
	if err != nil {
		return 0, domain.Failf(domain.ErrInvalidArgument, op, "%v", err)
	}
	return v, nil
}

func queryUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}
