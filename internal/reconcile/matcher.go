// Package reconcile matches imported bank transactions to open documents,
// categorizes them by rule and reconciles bank accounts against statements.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

const (
	DefaultAutoApplyThreshold = 85
	DefaultMaxBatch           = 200
)

// Options configures a Service.
type Options struct {
	AutoApplyThreshold int
	MaxBatch           int
	// DateWindowDays drops documents dated further than this from the bank
	// transaction before scoring. Zero keeps every open document.
	DateWindowDays int
	RuleCacheTTL   time.Duration
	Logger         *slog.Logger
}

// Service runs categorization, matching and reconciliation.
type Service struct {
	poster    *ledger.Poster
	store     *store.Store
	rules     *Rules
	threshold int
	maxBatch  int
	window    int
	logger    *slog.Logger
}

// NewService creates a Service posting through p.
func NewService(p *ledger.Poster, opts Options) *Service {
	if opts.AutoApplyThreshold <= 0 {
		opts.AutoApplyThreshold = DefaultAutoApplyThreshold
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		poster:    p,
		store:     p.Store(),
		rules:     NewRules(p.Store(), opts.RuleCacheTTL),
		threshold: opts.AutoApplyThreshold,
		maxBatch:  opts.MaxBatch,
		window:    opts.DateWindowDays,
		logger:    opts.Logger,
	}
}

// Rules returns the rule manager.
func (s *Service) Rules() *Rules { return s.rules }

// CreateFeed connects a statement source to a bank GL account.
func (s *Service) CreateFeed(ctx context.Context, orgID, name, accountID string) (model.BankFeed, error) {
	if name == "" {
		return model.BankFeed{}, errs.Validation("name", "feed name is required")
	}
	if _, err := s.store.GetAccount(ctx, orgID, accountID); err != nil {
		return model.BankFeed{}, err
	}
	f := model.BankFeed{ID: id.New(), OrganizationID: orgID, Name: name, AccountID: accountID}
	if err := s.store.InsertFeed(ctx, &f); err != nil {
		return model.BankFeed{}, err
	}
	return f, nil
}

// NewDocument is an open invoice, bill or payment handed over for matching.
type NewDocument struct {
	Kind            model.DocumentKind
	Number          string
	Counterparty    string
	Date            time.Time
	Amount          decimal.Decimal
	Currency        string
	ContraAccountID string
	// Inflow overrides the direction implied by Kind. Invoices and payments
	// bring money in and bills send it out.
	Inflow *bool
}

// RegisterDocument records an open document.
func (s *Service) RegisterDocument(ctx context.Context, orgID string, in NewDocument) (model.Document, error) {
	var inflow bool
	switch in.Kind {
	case model.DocumentInvoice, model.DocumentPayment:
		inflow = true
	case model.DocumentBill:
	default:
		return model.Document{}, errs.Validation("kind", "unknown document kind %q", in.Kind)
	}
	if in.Inflow != nil {
		inflow = *in.Inflow
	}
	if in.Number == "" {
		return model.Document{}, errs.Validation("number", "document number is required")
	}
	if !in.Amount.IsPositive() {
		return model.Document{}, errs.Validation("amount", "document amount %s must be positive", in.Amount)
	}
	if in.Date.IsZero() {
		return model.Document{}, errs.Validation("date", "document date is required")
	}
	if _, err := s.store.GetAccount(ctx, orgID, in.ContraAccountID); err != nil {
		return model.Document{}, err
	}
	currency := in.Currency
	if currency == "" {
		currency = s.poster.BaseCurrency()
	}
	d := model.Document{
		ID:              id.New(),
		OrganizationID:  orgID,
		Kind:            in.Kind,
		Number:          in.Number,
		Counterparty:    in.Counterparty,
		Date:            in.Date,
		Amount:          in.Amount,
		Currency:        currency,
		ContraAccountID: in.ContraAccountID,
		Status:          model.DocumentOpen,
		Inflow:          inflow,
	}
	if err := s.store.InsertDocument(ctx, &d); err != nil {
		return model.Document{}, err
	}
	return d, nil
}

// ImportResult counts the outcome of a statement import.
type ImportResult struct {
	Imported   []model.BankTransaction `json:"imported"`
	Duplicates int                     `json:"duplicates"`
}

// Import stores statement lines as UNPROCESSED bank transactions. Lines whose
// external id the feed already holds are skipped.
func (s *Service) Import(ctx context.Context, orgID, feedID string, lines []model.StatementLine) (ImportResult, error) {
	var res ImportResult
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetFeed(ctx, orgID, feedID); err != nil {
			return err
		}
		seen := make(map[string]bool)
		for i, l := range lines {
			if l.Date.IsZero() {
				return errs.Validation("date", "line %d: date is required", i+1)
			}
			if l.Amount.IsZero() {
				return errs.Validation("amount", "line %d: amount must not be zero", i+1)
			}
			if l.ExternalID != "" {
				if seen[l.ExternalID] {
					res.Duplicates++
					continue
				}
				seen[l.ExternalID] = true
				exists, err := q.BankTransactionExists(ctx, feedID, l.ExternalID)
				if err != nil {
					return err
				}
				if exists {
					res.Duplicates++
					continue
				}
			}
			bt := model.BankTransaction{
				ID:             id.New(),
				OrganizationID: orgID,
				FeedID:         feedID,
				Date:           l.Date,
				Amount:         l.Amount,
				Description:    l.Description,
				Payee:          l.Payee,
				ReferenceNo:    l.ReferenceNo,
				ExternalID:     l.ExternalID,
				Status:         model.BankUnprocessed,
			}
			if err := q.InsertBankTransaction(ctx, &bt); err != nil {
				return err
			}
			res.Imported = append(res.Imported, bt)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("bank statement imported", "org", orgID, "feed", feedID,
		"imported", len(res.Imported), "duplicates", res.Duplicates)
	return res, nil
}

// Get loads a bank transaction.
func (s *Service) Get(ctx context.Context, orgID, bankTxnID string) (model.BankTransaction, error) {
	return s.store.GetBankTransaction(ctx, orgID, bankTxnID)
}

// List returns a feed's bank transactions, optionally filtered by status.
func (s *Service) List(ctx context.Context, orgID, feedID string, status model.BankTransactionStatus) ([]model.BankTransaction, error) {
	return s.store.ListBankTransactions(ctx, orgID, feedID, status)
}

func (s *Service) unprocessed(ctx context.Context, q *store.Queries, orgID, bankTxnID string) (model.BankTransaction, model.BankFeed, error) {
	bt, err := q.GetBankTransaction(ctx, orgID, bankTxnID)
	if err != nil {
		return model.BankTransaction{}, model.BankFeed{}, err
	}
	if bt.Status != model.BankUnprocessed {
		return model.BankTransaction{}, model.BankFeed{}, errs.Validation("bank_status",
			"bank transaction %s is %s, not UNPROCESSED", bt.ID, bt.Status)
	}
	feed, err := q.GetFeed(ctx, orgID, bt.FeedID)
	if err != nil {
		return model.BankTransaction{}, model.BankFeed{}, err
	}
	return bt, feed, nil
}

// settlementEntries moves |amount| between the bank account and other:
// deposits debit the bank, withdrawals credit it.
func settlementEntries(bt model.BankTransaction, bankAccountID, otherAccountID, desc string) []ledger.NewEntry {
	amt := bt.Amount.Abs()
	bankSide, otherSide := model.EntryDebit, model.EntryCredit
	if bt.Amount.IsNegative() {
		bankSide, otherSide = model.EntryCredit, model.EntryDebit
	}
	return []ledger.NewEntry{
		{AccountID: bankAccountID, EntryType: bankSide, Amount: amt, Description: desc},
		{AccountID: otherAccountID, EntryType: otherSide, Amount: amt, Description: desc},
	}
}

// Categorize books bt against the account of the first matching rule and
// marks it CATEGORIZED. It reports false when no rule matched.
func (s *Service) Categorize(ctx context.Context, orgID, bankTxnID string) (model.CategorizationRule, bool, error) {
	bt, err := s.store.GetBankTransaction(ctx, orgID, bankTxnID)
	if err != nil {
		return model.CategorizationRule{}, false, err
	}
	rule, ok, err := s.rules.Match(ctx, bt)
	if err != nil || !ok {
		return model.CategorizationRule{}, false, err
	}
	txn, err := s.settle(ctx, orgID, bankTxnID, func(ctx context.Context, q *store.Queries, bt model.BankTransaction, feed model.BankFeed) (model.Transaction, store.BankResolution, error) {
		txn, err := s.poster.CreateTransactionTx(ctx, q, orgID, ledger.NewTransaction{
			Type:        model.TypeBankSettlement,
			Date:        bt.Date,
			Description: fmt.Sprintf("%s (rule %s)", bt.Description, rule.Name),
			Status:      model.StatusPosted,
			Metadata: model.Metadata{
				Reference:  bt.ExternalID,
				Settlement: &model.SettlementMeta{BankTransactionID: bt.ID, RuleID: rule.ID},
			},
			Entries: settlementEntries(bt, feed.AccountID, rule.AccountID, bt.Description),
		}, ledger.Privileged())
		if err != nil {
			return model.Transaction{}, store.BankResolution{}, err
		}
		return txn, store.BankResolution{
			Status:                  model.BankCategorized,
			CategoryAccountID:       &rule.AccountID,
			SettlementTransactionID: &txn.ID,
		}, nil
	})
	if err != nil {
		return model.CategorizationRule{}, false, err
	}
	s.logger.Info("bank transaction categorized", "org", orgID, "bank_transaction", bankTxnID,
		"rule", rule.Name, "transaction_id", txn.ID)
	return rule, true, nil
}

type settleFunc func(ctx context.Context, q *store.Queries, bt model.BankTransaction, feed model.BankFeed) (model.Transaction, store.BankResolution, error)

// settle runs fn and the bank transaction's status change in one store
// transaction, then announces the posting.
func (s *Service) settle(ctx context.Context, orgID, bankTxnID string, fn settleFunc) (model.Transaction, error) {
	var txn model.Transaction
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		bt, feed, err := s.unprocessed(ctx, q, orgID, bankTxnID)
		if err != nil {
			return err
		}
		var res store.BankResolution
		if txn, res, err = fn(ctx, q, bt, feed); err != nil {
			return err
		}
		ok, err := q.ResolveBankTransaction(ctx, orgID, bt.ID, res)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Conflict("bank_status", "bank transaction %s was resolved concurrently", bt.ID)
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	s.poster.Notify(ctx, events.TransactionPosted, txn)
	return txn, nil
}

// Suggest returns the open documents that may settle the bank transaction,
// best first.
func (s *Service) Suggest(ctx context.Context, orgID, bankTxnID string) ([]Candidate, error) {
	bt, err := s.store.GetBankTransaction(ctx, orgID, bankTxnID)
	if err != nil {
		return nil, err
	}
	return s.suggest(ctx, bt)
}

func (s *Service) suggest(ctx context.Context, bt model.BankTransaction) ([]Candidate, error) {
	docs, err := s.store.ListOpenDocuments(ctx, bt.OrganizationID, bt.Amount.IsPositive())
	if err != nil {
		return nil, err
	}
	if s.window > 0 {
		kept := docs[:0]
		for _, d := range docs {
			if daysBetween(bt.Date, d.Date) <= s.window {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	cands := Rank(bt, docs)
	for _, c := range cands {
		s.logger.Debug("match candidate", "bank_transaction", bt.ID, "document", c.Number,
			"score", c.Score, "amount", c.Breakdown.Amount, "date", c.Breakdown.Date,
			"tokens", c.Breakdown.Tokens, "reference", c.Breakdown.Reference)
	}
	return cands, nil
}

// Apply settles documentID with the bank transaction: it posts the
// settlement, marks the document SETTLED and the bank transaction MATCHED in
// one store transaction.
func (s *Service) Apply(ctx context.Context, orgID, bankTxnID, documentID string) (model.Transaction, error) {
	txn, err := s.settle(ctx, orgID, bankTxnID, func(ctx context.Context, q *store.Queries, bt model.BankTransaction, feed model.BankFeed) (model.Transaction, store.BankResolution, error) {
		doc, err := q.GetDocument(ctx, orgID, documentID)
		if err != nil {
			return model.Transaction{}, store.BankResolution{}, err
		}
		if doc.Status != model.DocumentOpen {
			return model.Transaction{}, store.BankResolution{}, errs.Validation("document_status",
				"%s %s is already %s", doc.Kind, doc.Number, doc.Status)
		}
		if doc.Inflow != bt.Amount.IsPositive() {
			return model.Transaction{}, store.BankResolution{}, errs.Validation("direction",
				"%s %s cannot settle a %s", doc.Kind, doc.Number, direction(bt.Amount))
		}
		if !money.WithinEpsilon(bt.Amount.Abs(), doc.Amount) {
			return model.Transaction{}, store.BankResolution{}, errs.Validation("amount_mismatch",
				"%s %s is outstanding %s, bank amount is %s", doc.Kind, doc.Number,
				doc.Amount.StringFixed(2), bt.Amount.Abs().StringFixed(2))
		}
		txn, err := s.poster.CreateTransactionTx(ctx, q, orgID, ledger.NewTransaction{
			Type:        model.TypeBankSettlement,
			Date:        bt.Date,
			Description: fmt.Sprintf("Settlement of %s %s", doc.Kind, doc.Number),
			Status:      model.StatusPosted,
			Metadata: model.Metadata{
				Reference:  doc.Number,
				Settlement: &model.SettlementMeta{BankTransactionID: bt.ID, DocumentID: doc.ID},
			},
			Entries: settlementEntries(bt, feed.AccountID, doc.ContraAccountID, bt.Description),
		}, ledger.Privileged())
		if err != nil {
			return model.Transaction{}, store.BankResolution{}, err
		}
		ok, err := q.SettleDocument(ctx, orgID, doc.ID)
		if err != nil {
			return model.Transaction{}, store.BankResolution{}, err
		}
		if !ok {
			return model.Transaction{}, store.BankResolution{}, errs.Conflict("document_status",
				"%s %s was settled concurrently", doc.Kind, doc.Number)
		}
		return txn, store.BankResolution{
			Status:                  model.BankMatched,
			MatchedDocumentID:       &doc.ID,
			SettlementTransactionID: &txn.ID,
		}, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	s.poster.Notify(ctx, events.BankMatched, txn)
	return txn, nil
}

func direction(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "withdrawal"
	}
	return "deposit"
}

// Ignore marks the bank transaction IGNORED without posting anything.
func (s *Service) Ignore(ctx context.Context, orgID, bankTxnID string) error {
	return s.store.InTx(ctx, func(q *store.Queries) error {
		if _, _, err := s.unprocessed(ctx, q, orgID, bankTxnID); err != nil {
			return err
		}
		ok, err := q.ResolveBankTransaction(ctx, orgID, bankTxnID, store.BankResolution{Status: model.BankIgnored})
		if err != nil {
			return err
		}
		if !ok {
			return errs.Conflict("bank_status", "bank transaction %s was resolved concurrently", bankTxnID)
		}
		return nil
	})
}

// Outcome is the result of automatic processing of one bank transaction.
type Outcome struct {
	BankTransactionID string                      `json:"bank_transaction_id"`
	Status            model.BankTransactionStatus `json:"status"`
	RuleID            string                      `json:"rule_id,omitempty"`
	DocumentID        string                      `json:"document_id,omitempty"`
	Score             int                         `json:"score,omitempty"`
	TransactionID     string                      `json:"transaction_id,omitempty"`
	Suggestions       []Candidate                 `json:"suggestions,omitempty"`
}

// AutoMatch runs the rules pass and then, for uncategorized transactions,
// applies the best candidate when its score reaches the threshold and its
// amount matches exactly. Otherwise the transaction stays UNPROCESSED and the
// suggestions are returned for review.
func (s *Service) AutoMatch(ctx context.Context, orgID, bankTxnID string) (Outcome, error) {
	bt, err := s.store.GetBankTransaction(ctx, orgID, bankTxnID)
	if err != nil {
		return Outcome{}, err
	}
	if bt.Status != model.BankUnprocessed {
		return Outcome{}, errs.Validation("bank_status", "bank transaction %s is %s, not UNPROCESSED", bt.ID, bt.Status)
	}
	out := Outcome{BankTransactionID: bt.ID, Status: model.BankUnprocessed}

	rule, ok, err := s.Categorize(ctx, orgID, bt.ID)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		out.Status = model.BankCategorized
		out.RuleID = rule.ID
		return out, nil
	}

	cands, err := s.suggest(ctx, bt)
	if err != nil {
		return Outcome{}, err
	}
	if len(cands) == 0 || cands[0].Score < s.threshold || cands[0].Breakdown.Amount != amountExact {
		out.Suggestions = cands
		return out, nil
	}
	top := cands[0]
	txn, err := s.Apply(ctx, orgID, bt.ID, top.DocumentID)
	if err != nil {
		return Outcome{}, err
	}
	out.Status = model.BankMatched
	out.DocumentID = top.DocumentID
	out.Score = top.Score
	out.TransactionID = txn.ID
	return out, nil
}

// ItemResult is the outcome of one item in a batch.
type ItemResult struct {
	ID      string    `json:"id"`
	OK      bool      `json:"ok"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	Kind    errs.Kind `json:"kind,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BulkAutoMatch runs AutoMatch over up to the configured maximum of bank
// transactions one at a time. Each item commits or fails on its own.
func (s *Service) BulkAutoMatch(ctx context.Context, orgID string, bankTxnIDs []string) ([]ItemResult, error) {
	if len(bankTxnIDs) > s.maxBatch {
		return nil, errs.Validation("batch_size", "at most %d bank transactions per batch, got %d", s.maxBatch, len(bankTxnIDs))
	}
	results := make([]ItemResult, len(bankTxnIDs))
	for i, btID := range bankTxnIDs {
		out, err := s.AutoMatch(ctx, orgID, btID)
		if err != nil {
			results[i] = ItemResult{ID: btID, Kind: errs.KindOf(err), Error: err.Error()}
			continue
		}
		results[i] = ItemResult{ID: btID, OK: true, Outcome: &out}
	}
	return results, nil
}
