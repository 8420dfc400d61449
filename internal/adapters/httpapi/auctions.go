package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

func RegisterAuctionRoutes(r chi.Router, h *handlers) {
	r.Route("/auctions/{kind}", func(ar chi.Router) {
		ar.Get("/", h.listAuctions)
		ar.Post("/", h.createAuction)
		ar.Post("/withdraw", h.withdrawAuctionBalance)
		ar.Route("/{kittyID}", func(one chi.Router) {
			one.Get("/", h.getAuction)
			one.Post("/bid", h.bid)
			one.Post("/cancel", h.cancelAuction)
			one.Post("/cancel-when-paused", h.cancelAuctionWhenPaused)
		})
	})
	r.Post("/gen0/auctions", h.createGen0Auction)
	r.Get("/gen0/price", h.gen0Price)
}

type auctionRequest struct {
	TokenID       domain.KittyID `json:"token_id"`
	StartingPrice string         `json:"starting_price"`
	EndingPrice   string         `json:"ending_price"`
	Duration      uint64         `json:"duration"`
}

type bidRequest struct {
	Value string `json:"value"`
	// MatronID is required for siring auctions.
	MatronID domain.KittyID `json:"matron_id,omitempty"`
}

type auctionResponse struct {
	core.AuctionInfo
	Price amountResponse `json:"price"`
}

func toAuctionResponse(info core.AuctionInfo) auctionResponse {
	return auctionResponse{AuctionInfo: info, Price: amount(info.CurrentPrice)}
}

type settlementResponse struct {
	core.Settlement
	Proceeds amountResponse  `json:"proceeds"`
	Matron   *core.KittyInfo `json:"matron,omitempty"`
}

func (h *handlers) listAuctions(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListAuctions(r.Context(), kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]auctionResponse, 0, len(items))
	for _, info := range items {
		out = append(out, toAuctionResponse(info))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getAuction(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	info, err := h.svc.GetAuction(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(info))
}

func (h *handlers) createAuction(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	var body auctionRequest
	if !decode(w, r, &body) {
		return
	}
	req := core.AuctionRequest{TokenID: body.TokenID, Duration: body.Duration}
	var err error
	if req.StartingPrice, err = valueArg("create_auction", body.StartingPrice); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.EndingPrice, err = valueArg("create_auction", body.EndingPrice); err != nil {
		h.fail(w, r, err)
		return
	}
	create := h.svc.CreateSaleAuction
	if kind == domain.AuctionSiring {
		create = h.svc.CreateSiringAuction
	}
	if _, err := create(r.Context(), req, who); err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetAuction(r.Context(), kind, req.TokenID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(info))
}

func (h *handlers) bid(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	var req bidRequest
	if !decode(w, r, &req) {
		return
	}
	paid, err := valueArg("bid", req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if kind == domain.AuctionSale {
		settled, err := h.svc.Bid(r.Context(), id, paid, who)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settlementResponse{Settlement: settled, Proceeds: amount(settled.SellerProceeds())})
		return
	}

	if req.MatronID == 0 {
		badRequest(w, "matron_id is required for siring auctions")
		return
	}
	// Read the asking price before settling; the auction is gone afterwards.
	price, err := h.svc.CurrentAuctionPrice(r.Context(), kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	matron, err := h.svc.BidOnSiringAuction(r.Context(), id, req.MatronID, paid, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetKitty(r.Context(), matron.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse{
		Settlement: core.Settlement{Price: price, Winner: who},
		Proceeds:   amount(price),
		Matron:     &info,
	})
}

func (h *handlers) cancelAuction(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, h.svc.CancelAuction)
}

func (h *handlers) cancelAuctionWhenPaused(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, h.svc.CancelAuctionWhenPaused)
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, kind domain.AuctionKind, id domain.KittyID, caller domain.Address) error) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := kittyParam(w, r, "kittyID")
	if !ok {
		return
	}
	if err := fn(r.Context(), kind, id, who); err != nil {
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

func (h *handlers) withdrawAuctionBalance(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	paid, err := h.svc.WithdrawAuctionBalance(r.Context(), kind, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipient": who, "amount": amount(paid)})
}

type gen0Request struct {
	Genes domain.Genes `json:"genes"`
}

func (h *handlers) createGen0Auction(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req gen0Request
	if !decode(w, r, &req) {
		return
	}
	kitty, _, err := h.svc.CreateGen0Auction(r.Context(), req.Genes, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.svc.GetAuction(r.Context(), domain.AuctionSale, kitty.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(info))
}

func (h *handlers) gen0Price(w http.ResponseWriter, r *http.Request) {
	avg, err := h.svc.AverageGen0SalePrice(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, err := h.svc.NextGen0Price(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]amountResponse{"average": amount(avg), "next": amount(next)})
}
