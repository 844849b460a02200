package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/ibt"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

func (h *handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Transfers.List(r.Context(), orgID(r), model.TransferStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req ibt.NewTransfer
	if !decode(w, r, &req) {
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = userID(r)
	}
	t, err := h.Transfers.Create(r.Context(), orgID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Transfers.Get(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) transferClearingBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.Transfers.ClearingBalance(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"clearing_balance": bal})
}

// transferAction runs one workflow step: submit, approve, ship, receive or
// cancel.
func (h *handler) transferAction(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		org = orgID(r)
		id  = chi.URLParam(r, "id")
		t   model.InterBranchTransfer
		err error
	)
	switch chi.URLParam(r, "action") {
	case "submit":
		t, err = h.Transfers.Submit(ctx, org, id)
	case "approve":
		t, err = h.Transfers.Approve(ctx, org, id, userID(r))
	case "ship":
		t, err = h.Transfers.Ship(ctx, org, id, userID(r))
	case "receive":
		t, err = h.Transfers.Receive(ctx, org, id, userID(r))
	case "cancel":
		t, err = h.Transfers.Cancel(ctx, org, id)
	default:
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown transfer action")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
