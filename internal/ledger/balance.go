package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/money"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// Effect returns the signed change a posting of amountInBase on side makes
// to the balance of an account of type t. Balances grow on the type's normal
// side and shrink on the other.
func Effect(t model.AccountType, side model.EntryType, amountInBase decimal.Decimal) decimal.Decimal {
	if side == t.NormalSide() {
		return amountInBase
	}
	return amountInBase.Neg()
}

// Tracker maintains the cached account balances. It is the only code that
// writes them.
type Tracker struct {
	store  *store.Store
	logger *slog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(st *store.Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: st, logger: logger}
}

// Apply increments the balance of each entry's account by its effect. It must
// run inside the transaction that persists or posts the entries.
func (t *Tracker) Apply(ctx context.Context, q *store.Queries, accounts map[string]model.Account, entries []model.LedgerEntry) error {
	for _, e := range entries {
		acct, ok := accounts[e.AccountID]
		if !ok {
			return fmt.Errorf("applying entry %d: account %s not loaded", e.LineNo, e.AccountID)
		}
		delta := money.ToMinor(Effect(acct.Type, e.EntryType, e.AmountInBase))
		if err := q.IncrementBalance(ctx, acct.ID, delta); err != nil {
			return err
		}
	}
	return nil
}

// Drift is a difference between an account's cached balance and the balance
// recomputed from ledger history.
type Drift struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Cached    decimal.Decimal `json:"cached"`
	Computed  decimal.Decimal `json:"computed"`
}

// Difference returns cached minus computed.
func (d Drift) Difference() decimal.Decimal {
	return d.Cached.Sub(d.Computed)
}

// Rebuild recomputes every account balance of the organization from its
// POSTED and VOIDED transactions and reports accounts whose cache disagrees.
// When fix is true the cached balances are overwritten in the same
// transaction.
func (t *Tracker) Rebuild(ctx context.Context, orgID string, fix bool) ([]Drift, error) {
	var drifts []Drift
	err := t.store.InTx(ctx, func(q *store.Queries) error {
		accounts, err := q.ListAccounts(ctx, orgID)
		if err != nil {
			return err
		}
		entries, err := q.ListPostedEntries(ctx, orgID, store.EntryFilter{})
		if err != nil {
			return err
		}

		computed := make(map[string]decimal.Decimal, len(accounts))
		for _, e := range entries {
			effect := Effect(model.AccountType(e.AccountType), model.EntryType(e.EntryType), e.AmountInBase)
			computed[e.AccountID] = computed[e.AccountID].Add(effect)
		}

		for _, a := range accounts {
			want := money.Round2(computed[a.ID])
			if a.Balance.Equal(want) {
				continue
			}
			drifts = append(drifts, Drift{AccountID: a.ID, Code: a.Code, Cached: a.Balance, Computed: want})
			if fix {
				if err := q.SetBalance(ctx, a.ID, money.ToMinor(want)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rebuilding balances: %w", err)
	}
	for _, d := range drifts {
		t.logger.Warn("balance drift", "org", orgID, "account", d.Code, "cached", d.Cached.StringFixed(2),
			"computed", d.Computed.StringFixed(2), "fixed", fix)
	}
	return drifts, nil
}
