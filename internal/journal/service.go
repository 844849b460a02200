// Package journal imports and exports manual journal entries as CSV.
package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// Service turns journal files into DRAFT transactions.
type Service struct {
	poster *ledger.Poster
	logger *slog.Logger
}

// NewService creates a journal Service.
func NewService(poster *ledger.Poster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{poster: poster, logger: logger}
}

// codeMap resolves account codes of one organization.
type codeMap map[string]model.Account

func (m codeMap) Exists(code string) bool {
	_, ok := m[code]
	return ok
}

// ImportError carries every problem found in an import file.
type ImportError struct {
	Problems []ValidationError
}

func (e *ImportError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "journal import failed: " + strings.Join(msgs, "; ")
}

// Unwrap classifies the failure as a validation error.
func (e *ImportError) Unwrap() error {
	return errs.Validation("journal_import", "%d problem(s) in import file", len(e.Problems))
}

// Import validates the whole file and then creates one DRAFT transaction per
// group in a single database transaction. Either every group is created or
// none is. It returns the created transactions in file order.
func (s *Service) Import(ctx context.Context, orgID string, r io.Reader, userID string) ([]model.Transaction, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, errs.Validation("journal_import", "%v", err)
	}
	if len(rows) == 0 {
		return nil, errs.Validation("journal_import", "file has no rows")
	}

	var created []model.Transaction
	err = s.poster.Store().InTx(ctx, func(q *store.Queries) error {
		created = nil
		accts, err := q.ListAccounts(ctx, orgID)
		if err != nil {
			return err
		}
		codes := make(codeMap, len(accts))
		for _, a := range accts {
			codes[a.Code] = a
		}

		if problems := ValidateRows(rows, codes); len(problems) > 0 {
			return &ImportError{Problems: problems}
		}

		groups, order := groupRows(rows)
		for _, g := range order {
			in := toTransaction(g, groups[g], codes, userID)
			txn, err := s.poster.CreateTransactionTx(ctx, q, orgID, in)
			if err != nil {
				return fmt.Errorf("group %s: %w", g, err)
			}
			created = append(created, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("journal imported", "org", orgID, "transactions", len(created), "rows", len(rows))
	return created, nil
}

// ImportFile is Import reading from a file path.
func (s *Service) ImportFile(ctx context.Context, orgID, path, userID string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, orgID, f, userID)
}

func toTransaction(group string, rows []groupedRow, codes codeMap, userID string) ledger.NewTransaction {
	first := rows[0].row
	in := ledger.NewTransaction{
		Type:        model.TypeJournalEntry,
		Date:        first.Date,
		Description: first.Description,
		Status:      model.StatusDraft,
		CreatedBy:   userID,
		Metadata: model.Metadata{
			Kind:      model.MetaJournal,
			Reference: group,
			Journal:   &model.JournalMeta{JournalType: "GENERAL", Source: "csv"},
		},
	}
	// A single-currency group carries its currency on the header; mixed
	// groups stay in base currency with per-entry overrides.
	if sameCurrency(rows) {
		in.Currency, in.ExchangeRate = first.Currency, first.ExchangeRate
	}
	for _, gr := range rows {
		e := ledger.NewEntry{
			AccountID:    codes[gr.row.AccountCode].ID,
			Description:  gr.row.Description,
			Currency:     gr.row.Currency,
			ExchangeRate: gr.row.ExchangeRate,
		}
		if !gr.row.Debit.IsZero() {
			e.EntryType, e.Amount = model.EntryDebit, gr.row.Debit
		} else {
			e.EntryType, e.Amount = model.EntryCredit, gr.row.Credit
		}
		in.Entries = append(in.Entries, e)
	}
	return in
}

func sameCurrency(rows []groupedRow) bool {
	for _, gr := range rows[1:] {
		if gr.row.Currency != rows[0].row.Currency || !gr.row.ExchangeRate.Equal(rows[0].row.ExchangeRate) {
			return false
		}
	}
	return true
}

// Export writes the transactions matching f as journal rows, one group per
// transaction.
func (s *Service) Export(ctx context.Context, orgID string, f store.TransactionFilter, w io.Writer) (int, error) {
	st := s.poster.Store()
	accts, err := st.ListAccounts(ctx, orgID)
	if err != nil {
		return 0, err
	}
	codes := make(map[string]string, len(accts))
	for _, a := range accts {
		codes[a.ID] = a.Code
	}

	headers, err := st.ListTransactions(ctx, orgID, f)
	if err != nil {
		return 0, err
	}
	var rows []Row
	for _, h := range headers {
		txn, err := st.GetTransaction(ctx, orgID, h.ID)
		if err != nil {
			return 0, err
		}
		for _, e := range txn.Entries {
			row := Row{
				Group:        txn.ID,
				Date:         txn.Date,
				AccountCode:  codes[e.AccountID],
				Description:  e.Description,
				Currency:     e.Currency,
				ExchangeRate: e.ExchangeRate,
			}
			if e.EntryType == model.EntryDebit {
				row.Debit = e.Amount
			} else {
				row.Credit = e.Amount
			}
			rows = append(rows, row)
		}
	}
	if err := WriteRows(w, rows); err != nil {
		return 0, err
	}
	return len(headers), nil
}
