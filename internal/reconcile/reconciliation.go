package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// Summary is the state of a reconciliation. A transaction counts as cleared
// when it is cleared on this reconciliation or was locked by an earlier one.
type Summary struct {
	ReconciliationID  string          `json:"reconciliation_id"`
	Status            string          `json:"status"`
	StatementBalance  decimal.Decimal `json:"statement_balance"`
	BookBalance       decimal.Decimal `json:"book_balance"`
	DepositsInTransit decimal.Decimal `json:"deposits_in_transit"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	Difference        decimal.Decimal `json:"difference"`
	Cleared           []string        `json:"cleared"`
	Uncleared         []string        `json:"uncleared"`
}

// Balanced reports whether the difference is within the one-cent tolerance.
func (s Summary) Balanced() bool {
	return money.WithinEpsilon(s.Difference, decimal.Zero)
}

// Start opens a reconciliation of accountID against a statement.
func (s *Service) Start(ctx context.Context, orgID, accountID string, statementDate time.Time, statementBalance decimal.Decimal) (model.BankReconciliation, error) {
	if statementDate.IsZero() {
		return model.BankReconciliation{}, errs.Validation("statement_date", "statement date is required")
	}
	if !money.HasAtMostTwoPlaces(statementBalance) {
		return model.BankReconciliation{}, errs.Validation("precision", "statement balance %s has more than 2 decimal places", statementBalance)
	}
	var rec model.BankReconciliation
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetAccount(ctx, orgID, accountID); err != nil {
			return err
		}
		rec = model.BankReconciliation{
			ID:               id.New(),
			OrganizationID:   orgID,
			AccountID:        accountID,
			StatementDate:    statementDate,
			StatementBalance: statementBalance,
			Status:           model.ReconciliationInProgress,
		}
		sum, err := s.summarize(ctx, q, rec)
		if err != nil {
			return err
		}
		rec.BookBalance = sum.BookBalance
		rec.Difference = sum.Difference
		return q.InsertReconciliation(ctx, &rec)
	})
	if err != nil {
		return model.BankReconciliation{}, err
	}
	return rec, nil
}

// Clear marks transactions as appearing on the statement. Each must be a
// POSTED or VOIDED transaction touching the reconciled account on or before
// the statement date.
func (s *Service) Clear(ctx context.Context, orgID, recID string, txnIDs []string) (Summary, error) {
	return s.changeCleared(ctx, orgID, recID, txnIDs, true)
}

// Unclear removes transactions from the cleared set.
func (s *Service) Unclear(ctx context.Context, orgID, recID string, txnIDs []string) (Summary, error) {
	return s.changeCleared(ctx, orgID, recID, txnIDs, false)
}

func (s *Service) changeCleared(ctx context.Context, orgID, recID string, txnIDs []string, clear bool) (Summary, error) {
	var sum Summary
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		rec, err := s.open(ctx, q, orgID, recID)
		if err != nil {
			return err
		}
		if clear {
			effects, ferr := s.effects(ctx, q, rec)
			if ferr != nil {
				return ferr
			}
			for _, tid := range txnIDs {
				if _, ok := effects[tid]; !ok {
					return errs.Validation("reconciliation_item",
						"transaction %s has no posted entry on this account by %s", tid, rec.StatementDate.Format(time.DateOnly))
				}
			}
			err = q.AddClearedItems(ctx, rec.ID, txnIDs)
		} else {
			err = q.RemoveClearedItems(ctx, rec.ID, txnIDs)
		}
		if err != nil {
			return err
		}
		if rec, err = q.GetReconciliation(ctx, orgID, recID); err != nil {
			return err
		}
		sum, err = s.summarize(ctx, q, rec)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Service) open(ctx context.Context, q *store.Queries, orgID, recID string) (model.BankReconciliation, error) {
	rec, err := q.GetReconciliation(ctx, orgID, recID)
	if err != nil {
		return model.BankReconciliation{}, err
	}
	if rec.Status == model.ReconciliationFinalized {
		return model.BankReconciliation{}, errs.Immutability("reconciliation_finalized",
			"reconciliation %s is finalized", rec.ID)
	}
	return rec, nil
}

// Summary recomputes a reconciliation's figures from the ledger.
func (s *Service) Summary(ctx context.Context, orgID, recID string) (Summary, error) {
	rec, err := s.store.GetReconciliation(ctx, orgID, recID)
	if err != nil {
		return Summary{}, err
	}
	if rec.Status == model.ReconciliationFinalized {
		return Summary{
			ReconciliationID: rec.ID,
			Status:           string(rec.Status),
			StatementBalance: rec.StatementBalance,
			BookBalance:      rec.BookBalance,
			Difference:       rec.Difference,
			Cleared:          rec.ClearedIDs,
		}, nil
	}
	return s.summarize(ctx, s.store.Queries, rec)
}

type effect struct {
	amount decimal.Decimal
	locked bool
}

// effects sums, per transaction, the signed balance effect on the
// reconciled account of everything dated on or before the statement date.
func (s *Service) effects(ctx context.Context, q *store.Queries, rec model.BankReconciliation) (map[string]effect, error) {
	rows, err := q.ListPostedEntries(ctx, rec.OrganizationID, store.EntryFilter{
		AccountID: rec.AccountID,
		Through:   rec.StatementDate,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]effect)
	for _, r := range rows {
		e := out[r.TransactionID]
		e.amount = e.amount.Add(ledger.Effect(model.AccountType(r.AccountType), model.EntryType(r.EntryType), r.AmountInBase))
		e.locked = r.IsLocked
		out[r.TransactionID] = e
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, q *store.Queries, rec model.BankReconciliation) (Summary, error) {
	effects, err := s.effects(ctx, q, rec)
	if err != nil {
		return Summary{}, err
	}
	cleared := make(map[string]bool, len(rec.ClearedIDs))
	for _, tid := range rec.ClearedIDs {
		cleared[tid] = true
	}

	sum := Summary{
		ReconciliationID: rec.ID,
		Status:           string(rec.Status),
		StatementBalance: rec.StatementBalance,
		Cleared:          rec.ClearedIDs,
	}
	for tid, e := range effects {
		sum.BookBalance = sum.BookBalance.Add(e.amount)
		if cleared[tid] || e.locked {
			continue
		}
		sum.Uncleared = append(sum.Uncleared, tid)
		if e.amount.IsPositive() {
			sum.DepositsInTransit = sum.DepositsInTransit.Add(e.amount)
		} else {
			sum.Outstanding = sum.Outstanding.Add(e.amount.Neg())
		}
	}
	sort.Strings(sum.Uncleared)
	sum.Difference = money.Round2(sum.BookBalance.
		Sub(sum.DepositsInTransit).
		Add(sum.Outstanding).
		Sub(sum.StatementBalance))
	return sum, nil
}

// Finalize closes the reconciliation when its difference is within one cent
// and locks every cleared transaction against void. Nothing is locked when
// it fails.
func (s *Service) Finalize(ctx context.Context, orgID, recID, userID string) (model.BankReconciliation, error) {
	var rec model.BankReconciliation
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if rec, err = s.open(ctx, q, orgID, recID); err != nil {
			return err
		}
		sum, err := s.summarize(ctx, q, rec)
		if err != nil {
			return err
		}
		if !sum.Balanced() {
			return errs.Policy("reconciliation_difference",
				"difference %s exceeds 0.01 (book %s, in transit %s, outstanding %s, statement %s)",
				sum.Difference.StringFixed(2), sum.BookBalance.StringFixed(2), sum.DepositsInTransit.StringFixed(2),
				sum.Outstanding.StringFixed(2), sum.StatementBalance.StringFixed(2))
		}
		rec.BookBalance = sum.BookBalance
		rec.Difference = sum.Difference
		rec.FinalizedBy = userID
		ok, err := q.FinalizeReconciliation(ctx, orgID, &rec)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Immutability("reconciliation_finalized", "reconciliation %s is finalized", rec.ID)
		}
		return q.LockTransactions(ctx, orgID, rec.ClearedIDs)
	})
	if err != nil {
		return model.BankReconciliation{}, err
	}
	s.logger.Info("reconciliation finalized", "org", orgID, "reconciliation", rec.ID,
		"account", rec.AccountID, "locked", len(rec.ClearedIDs))
	return rec, nil
}
