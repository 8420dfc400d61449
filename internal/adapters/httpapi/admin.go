package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kittycore/pkg/domain"
)

const defaultEventPage = 100

func RegisterAdminRoutes(r chi.Router, h *handlers) {
	r.Route("/system", func(sr chi.Router) {
		sr.Get("/", h.systemStatus)
		sr.Post("/pause", h.pause)
		sr.Post("/unpause", h.unpause)
		sr.Put("/roles/{role}", h.setRole)
		sr.Put("/auto-birth-fee", h.setAutoBirthFee)
	})
	r.Post("/treasury/sweep", h.sweepAuctionBalances)
	r.Post("/treasury/withdraw", h.withdrawTreasury)
	r.Get("/accounts/{address}/balance", h.accountBalance)
	r.Post("/accounts/withdraw", h.withdraw)
	r.Get("/events", h.events)
}

type systemResponse struct {
	domain.SystemState
	AutoBirthFee amountResponse `json:"auto_birth_fee"`
	TotalSupply  int            `json:"total_supply"`
}

func (h *handlers) systemStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.SystemStatus(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	supply, err := h.svc.TotalSupply(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, systemResponse{SystemState: st, AutoBirthFee: amount(st.Params.AutoBirthFee), TotalSupply: supply})
}

// operate runs an operator action and answers with the resulting status.
func (h *handlers) operate(w http.ResponseWriter, r *http.Request, fn func(who domain.Address) error) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if err := fn(who); err != nil {
		h.fail(w, r, err)
		return
	}
	h.systemStatus(w, r)
}

func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, func(who domain.Address) error { return h.svc.Pause(r.Context(), who) })
}

func (h *handlers) unpause(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, func(who domain.Address) error { return h.svc.Unpause(r.Context(), who) })
}

type roleRequest struct {
	Address string `json:"address"`
}

func (h *handlers) setRole(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req roleRequest
	if !decode(w, r, &req) {
		return
	}
	h.operate(w, r, func(who domain.Address) error {
		return h.svc.SetRole(r.Context(), role, domain.Address(req.Address), who)
	})
}

type feeRequest struct {
	Value string `json:"value"`
}

func (h *handlers) setAutoBirthFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if !decode(w, r, &req) {
		return
	}
	h.operate(w, r, func(who domain.Address) error {
		fee, err := valueArg("set_auto_birth_fee", req.Value)
		if err != nil {
			return err
		}
		return h.svc.SetAutoBirthFee(r.Context(), fee, who)
	})
}

type payoutResponse struct {
	Recipient domain.Address `json:"recipient"`
	Amount    amountResponse `json:"amount"`
}

func (h *handlers) payout(w http.ResponseWriter, r *http.Request, fn func(who domain.Address) (domain.Amount, error)) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	paid, err := fn(who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payoutResponse{Recipient: who, Amount: amount(paid)})
}

func (h *handlers) sweepAuctionBalances(w http.ResponseWriter, r *http.Request) {
	h.payout(w, r, func(who domain.Address) (domain.Amount, error) {
		return h.svc.WithdrawAuctionBalances(r.Context(), who)
	})
}

func (h *handlers) withdrawTreasury(w http.ResponseWriter, r *http.Request) {
	h.payout(w, r, func(who domain.Address) (domain.Amount, error) {
		return h.svc.WithdrawBalance(r.Context(), who)
	})
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	h.payout(w, r, func(who domain.Address) (domain.Amount, error) {
		return h.svc.Withdraw(r.Context(), who)
	})
}

func (h *handlers) accountBalance(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(chi.URLParam(r, "address"))
	bal, err := h.svc.AccountBalance(r.Context(), addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "balance": amount(bal)})
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	since, ok := queryUint(w, r, "since")
	if !ok {
		return
	}
	limit, ok := queryUint(w, r, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultEventPage
	}
	events, err := h.svc.Events(r.Context(), since, int(limit))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
