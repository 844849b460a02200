package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/accounts"
	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
	"github.com/Mudegi/YourBookSuit-sub007/internal/tax"
)

type taxRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Mode   string          `json:"mode"`
}

func (h *handler) calculateTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := tax.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := tax.Calculate(req.Amount, req.Rate, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type taxLine struct {
	Amount   decimal.Decimal `json:"amount"`
	Category tax.Category    `json:"category"`
	Mode     string          `json:"mode"`
}

type taxSummaryResponse struct {
	Categories []tax.CategoryTotal `json:"categories"`
	Summary    tax.Summary         `json:"summary"`
}

func (h *handler) summarizeTax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []taxLine `json:"lines"`
	}
	if !decode(w, r, &req) {
		return
	}
	lines := make([]tax.Line, len(req.Lines))
	for i, l := range req.Lines {
		mode, err := tax.ParseMode(l.Mode)
		if err != nil {
			writeError(w, r, err)
			return
		}
		lines[i] = tax.Line{Amount: l.Amount, Category: l.Category, Mode: mode}
	}
	cats, sum, err := tax.SummarizeByCategory(lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taxSummaryResponse{Categories: cats, Summary: sum})
}

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	var (
		accts []model.Account
		err   error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		accts, err = h.Accounts.ByType(r.Context(), orgID(r), model.AccountType(t))
	} else {
		accts, err = h.Accounts.List(r.Context(), orgID(r))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accounts.NewAccount
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Accounts.Create(r.Context(), orgID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Accounts.Get(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req accounts.AccountUpdate
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Accounts.Update(r.Context(), orgID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Delete(r.Context(), orgID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Accounts.Deactivate(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type entryRequest struct {
	AccountID    string          `json:"account_id"`
	EntryType    model.EntryType `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	BranchID     *string         `json:"branch_id,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchange_rate,omitempty"`
}

func toEntries(in []entryRequest) []ledger.NewEntry {
	out := make([]ledger.NewEntry, len(in))
	for i, e := range in {
		out[i] = ledger.NewEntry{
			AccountID:    e.AccountID,
			EntryType:    e.EntryType,
			Amount:       e.Amount,
			Description:  e.Description,
			BranchID:     e.BranchID,
			Currency:     e.Currency,
			ExchangeRate: e.ExchangeRate,
		}
	}
	return out
}

type transactionRequest struct {
	Type         model.TransactionType   `json:"type"`
	Date         Date                    `json:"date"`
	Description  string                  `json:"description"`
	Status       model.TransactionStatus `json:"status,omitempty"`
	BranchID     *string                 `json:"branch_id,omitempty"`
	Currency     string                  `json:"currency,omitempty"`
	ExchangeRate decimal.Decimal         `json:"exchange_rate,omitempty"`
	Entries      []entryRequest          `json:"entries"`
}

func (h *handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = model.TypeJournalEntry
	}
	txn, err := h.Poster.CreateTransaction(r.Context(), orgID(r), ledger.NewTransaction{
		Type:         req.Type,
		Date:         req.Date.Time,
		Description:  req.Description,
		Status:       req.Status,
		BranchID:     req.BranchID,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		CreatedBy:    userID(r),
		Entries:      toEntries(req.Entries),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TransactionFilter{
		Status: model.TransactionStatus(q.Get("status")),
		Type:   model.TransactionType(q.Get("type")),
	}
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}
	if s := q.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil || f.Limit < 0 {
			writeError(w, r, errs.Validation("limit", "limit %q must be a non-negative integer", s))
			return
		}
	}
	txns, err := h.Lifecycle.List(r.Context(), orgID(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Lifecycle.Get(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *handler) editTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []entryRequest `json:"entries"`
	}
	if !decode(w, r, &req) {
		return
	}
	txn, err := h.Lifecycle.Edit(r.Context(), orgID(r), chi.URLParam(r, "id"), toEntries(req.Entries))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Lifecycle.Delete(r.Context(), orgID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) postTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Lifecycle.Post(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *handler) voidTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	txn, err := h.Lifecycle.Void(r.Context(), orgID(r), chi.URLParam(r, "id"), userID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *handler) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Lifecycle.Cancel(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (h *handler) bulkPost(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decode(w, r, &req) {
		return
	}
	results, err := h.Lifecycle.BulkPost(r.Context(), orgID(r), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) balanceDrift(w http.ResponseWriter, r *http.Request) {
	h.rebuild(w, r, false)
}

func (h *handler) rebuildBalances(w http.ResponseWriter, r *http.Request) {
	h.rebuild(w, r, true)
}

func (h *handler) rebuild(w http.ResponseWriter, r *http.Request, fix bool) {
	drift, err := h.Poster.Tracker().Rebuild(r.Context(), orgID(r), fix)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if drift == nil {
		drift = []ledger.Drift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fixed": fix, "drift": drift})
}

// importJournal creates DRAFT transactions from a journal CSV body.
func (h *handler) importJournal(w http.ResponseWriter, r *http.Request) {
	txns, err := h.Journal.Import(r.Context(), orgID(r), http.MaxBytesReader(w, r.Body, maxStatementBytes), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txns)
}

func (h *handler) exportJournal(w http.ResponseWriter, r *http.Request) {
	f := store.TransactionFilter{Status: model.TransactionStatus(r.URL.Query().Get("status"))}
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := h.Journal.Export(r.Context(), orgID(r), f, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
