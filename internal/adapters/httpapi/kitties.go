package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

func RegisterKittyRoutes(r chi.Router, h *handlers) {
	r.Route("/kitties", func(kr chi.Router) {
		kr.Get("/", h.listKitties)
		kr.Post("/promo", h.createPromoKitty)

		kr.Route("/{kittyID}", func(one chi.Router) {
			one.Get("/", h.getKitty)
			one.Post("/transfer", h.transfer)
			one.Post("/transfer-from", h.transferFrom)
			one.Post("/approve", h.approve)
			one.Post("/approve-siring", h.approveSiring)
			one.Post("/breed", h.breed)
			one.Post("/birth", h.giveBirth)
			one.Post("/rescue", h.rescue)
			one.Get("/can-breed-with/{sireID}", h.canBreedWith)
		})
	})
	r.Get("/owners/{owner}/kitties", h.tokensOfOwner)
}

type kittyResponse struct {
	core.KittyInfo
	ReadyToBreed bool `json:"ready_to_breed"`
}

func toKittyResponse(info core.KittyInfo) kittyResponse {
	return kittyResponse{KittyInfo: info, ReadyToBreed: info.State == domain.StateReady && info.OnAuction == ""}
}

type addressRequest struct {
	To string `json:"to"`
}

type transferFromRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type breedRequest struct {
	SireID domain.KittyID `json:"sire_id"`
	// Auto escrows Value as the auto-birth fee.
	Auto  bool   `json:"auto"`
	Value string `json:"value"`
}

type promoRequest struct {
	Genes domain.Genes `json:"genes"`
	Owner string       `json:"owner"`
}

func (h *handlers) listKitties(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListKitties(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]kittyResponse, 0, len(items))
	for _, info := range items {
		out = append(out, toKittyResponse(info))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getKitty(w http.ResponseWriter, r *http.Request) {
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	info, err := h.svc.GetKitty(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toKittyResponse(info))
}

func (h *handlers) tokensOfOwner(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.TokensOfOwner(r.Context(), domain.Address(chi.URLParam(r, "owner")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []domain.KittyID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": chi.URLParam(r, "owner"), "kitties": ids})
}

func (h *handlers) canBreedWith(w http.ResponseWriter, r *http.Request) {
	matronID, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	sireID, ok := kittyParam(w, r, "sireID")
	if !ok {
		return
	}
	can, err := h.svc.CanBreedWith(r.Context(), matronID, sireID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"can_breed": can})
}

// mutateKitty runs fn for the path kitty and the authenticated caller and
// answers with the kitty's resulting state.
func (h *handlers) mutateKitty(w http.ResponseWriter, r *http.Request, body any, fn func(id domain.KittyID, caller domain.Address) error) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	if body != nil && !decode(w, r, body) {
		return
	}
	if err := fn(id, who); err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetKitty(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toKittyResponse(info))
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		return h.svc.Transfer(r.Context(), id, domain.Address(req.To), who)
	})
}

func (h *handlers) transferFrom(w http.ResponseWriter, r *http.Request) {
	var req transferFromRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		return h.svc.TransferFrom(r.Context(), id, domain.Address(req.From), domain.Address(req.To), who)
	})
}

func (h *handlers) approve(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		return h.svc.Approve(r.Context(), id, domain.Address(req.To), who)
	})
}

func (h *handlers) approveSiring(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		return h.svc.ApproveSiring(r.Context(), id, domain.Address(req.To), who)
	})
}

func (h *handlers) rescue(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		return h.svc.RescueLostKitty(r.Context(), id, domain.Address(req.To), who)
	})
}

func (h *handlers) breed(w http.ResponseWriter, r *http.Request) {
	var req breedRequest
	h.mutateKitty(w, r, &req, func(id domain.KittyID, who domain.Address) error {
		if !req.Auto {
			_, err := h.svc.BreedWith(r.Context(), id, req.SireID, who)
			return err
		}
		paid, err := valueArg("breed_with_auto", req.Value)
		if err != nil {
			return err
		}
		_, err = h.svc.BreedWithAuto(r.Context(), id, req.SireID, paid, who)
		return err
	})
}

func (h *handlers) giveBirth(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	child, err := h.svc.GiveBirth(r.Context(), id, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetKitty(r.Context(), child.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toKittyResponse(info))
}

func (h *handlers) createPromoKitty(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req promoRequest
	if !decode(w, r, &req) {
		return
	}
	kitty, err := h.svc.CreatePromoKitty(r.Context(), req.Genes, domain.Address(req.Owner), who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetKitty(r.Context(), kitty.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toKittyResponse(info))
}
