package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/reconcile"
)

// maxStatementBytes bounds an uploaded statement.
const maxStatementBytes = 10 << 20

func (h *handler) createFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		AccountID string `json:"account_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	feed, err := h.Bank.CreateFeed(r.Context(), orgID(r), req.Name, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, feed)
}

// importStatement parses a CSV statement body in the ?format= layout
// (default csv) and stores its lines on the feed.
func (h *handler) importStatement(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	p := h.Parsers.Get(format)
	if p == nil {
		writeJSONError(w, http.StatusBadRequest, "unknown_format",
			"unknown statement format "+format+" (known: "+strings.Join(h.Parsers.Formats(), ", ")+")")
		return
	}
	lines, err := p.Parse(http.MaxBytesReader(w, r.Body, maxStatementBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_statement", err.Error())
		return
	}
	res, err := h.Bank.Import(r.Context(), orgID(r), chi.URLParam(r, "feed"), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type documentRequest struct {
	Kind            model.DocumentKind `json:"kind"`
	Number          string             `json:"number"`
	Counterparty    string             `json:"counterparty"`
	Date            Date               `json:"date"`
	Amount          decimal.Decimal    `json:"amount"`
	Currency        string             `json:"currency,omitempty"`
	ContraAccountID string             `json:"contra_account_id"`
	Inflow          *bool              `json:"inflow,omitempty"`
}

func (h *handler) registerDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := h.Bank.RegisterDocument(r.Context(), orgID(r), reconcile.NewDocument{
		Kind:            req.Kind,
		Number:          req.Number,
		Counterparty:    req.Counterparty,
		Date:            req.Date.Time,
		Amount:          req.Amount,
		Currency:        req.Currency,
		ContraAccountID: req.ContraAccountID,
		Inflow:          req.Inflow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// createRule stores one JSON rule, or a YAML rules file when the body is
// sent as application/yaml.
func (h *handler) createRule(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		specs, err := reconcile.LoadRulesYAML(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		rules, err := h.Bank.Rules().Import(r.Context(), orgID(r), specs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rules)
		return
	}

	var req struct {
		Name      string `json:"name"`
		Pattern   string `json:"pattern,omitempty"`
		Merchant  string `json:"merchant,omitempty"`
		AccountID string `json:"account_id"`
		Priority  int    `json:"priority,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	rule, err := h.Bank.Rules().Add(r.Context(), orgID(r), model.CategorizationRule{
		Name:      req.Name,
		Pattern:   req.Pattern,
		Merchant:  req.Merchant,
		AccountID: req.AccountID,
		Priority:  req.Priority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *handler) listBankTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bts, err := h.Bank.List(r.Context(), orgID(r), q.Get("feed"), model.BankTransactionStatus(q.Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bts)
}

func (h *handler) suggest(w http.ResponseWriter, r *http.Request) {
	cands, err := h.Bank.Suggest(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cands == nil {
		cands = []reconcile.Candidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}

func (h *handler) autoMatch(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bank.AutoMatch(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.DocumentID == "" {
		writeError(w, r, errs.Validation("document", "document_id is required"))
		return
	}
	txn, err := h.Bank.Apply(r.Context(), orgID(r), chi.URLParam(r, "id"), req.DocumentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *handler) ignore(w http.ResponseWriter, r *http.Request) {
	if err := h.Bank.Ignore(r.Context(), orgID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) bulkAutoMatch(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decode(w, r, &req) {
		return
	}
	results, err := h.Bank.BulkAutoMatch(r.Context(), orgID(r), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) startReconciliation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID        string          `json:"account_id"`
		StatementDate    Date            `json:"statement_date"`
		StatementBalance decimal.Decimal `json:"statement_balance"`
	}
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Bank.Start(r.Context(), orgID(r), req.AccountID, req.StatementDate.Time, req.StatementBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) reconciliationSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Bank.Summary(r.Context(), orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handler) clearItems(w http.ResponseWriter, r *http.Request) {
	h.changeCleared(w, r, h.Bank.Clear)
}

func (h *handler) unclearItems(w http.ResponseWriter, r *http.Request) {
	h.changeCleared(w, r, h.Bank.Unclear)
}

func (h *handler) changeCleared(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orgID, recID string, txnIDs []string) (reconcile.Summary, error)) {
	var req idsRequest
	if !decode(w, r, &req) {
		return
	}
	sum, err := fn(r.Context(), orgID(r), chi.URLParam(r, "id"), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handler) finalizeReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Bank.Finalize(r.Context(), orgID(r), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
