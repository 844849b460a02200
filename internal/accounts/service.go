// Package accounts manages an organization's chart of accounts.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// ChartFile is the chart-of-accounts file name inside a workspace.
const ChartFile = "chart-of-accounts.csv"

// Service maintains the chart of accounts in the store.
type Service struct {
	store  *store.Store
	base   string
	logger *slog.Logger
}

// NewService creates a Service. baseCurrency is used for accounts created
// without a currency.
func NewService(st *store.Store, baseCurrency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, base: baseCurrency, logger: logger}
}

// NewAccount is a request to add an account.
type NewAccount struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Type        model.AccountType `json:"type"`
	ParentID    *string           `json:"parent_id,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Description string            `json:"description,omitempty"`
	// Control accounts are fed by sub-ledgers and reject manual journals.
	Control bool `json:"control,omitempty"`
	System  bool `json:"-"`
}

// Create adds an account. Codes are unique per organization.
func (s *Service) Create(ctx context.Context, orgID string, in NewAccount) (model.Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return model.Account{}, errs.Validation("account", "code and name are required")
	}
	if !in.Type.Valid() {
		return model.Account{}, errs.Validation("account_type", "unknown account type %q", in.Type)
	}
	if in.Currency == "" {
		in.Currency = s.base
	}

	a := model.Account{
		ID:                 id.New(),
		OrganizationID:     orgID,
		Code:               in.Code,
		Name:               in.Name,
		Type:               in.Type,
		ParentID:           in.ParentID,
		Currency:           in.Currency,
		IsSystem:           in.System,
		IsActive:           true,
		AllowManualJournal: !in.Control,
		Description:        in.Description,
	}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		return insert(ctx, q, &a)
	})
	if err != nil {
		return model.Account{}, err
	}
	s.logger.Info("account created", "org", orgID, "code", a.Code, "type", a.Type)
	return a, nil
}

func insert(ctx context.Context, q *store.Queries, a *model.Account) error {
	exists, err := q.AccountCodeExists(ctx, a.OrganizationID, a.Code)
	if err != nil {
		return err
	}
	if exists {
		return errs.Conflict("account_code", "account code %s already exists", a.Code)
	}
	if a.ParentID != nil {
		if _, err := q.GetAccount(ctx, a.OrganizationID, *a.ParentID); err != nil {
			return err
		}
	}
	return q.InsertAccount(ctx, a)
}

// AccountUpdate lists the fields to change; nil fields are left alone.
type AccountUpdate struct {
	Code        *string            `json:"code,omitempty"`
	Name        *string            `json:"name,omitempty"`
	Type        *model.AccountType `json:"type,omitempty"`
	Description *string            `json:"description,omitempty"`
	Control     *bool              `json:"control,omitempty"`
}

// Update changes an account. System accounts keep their code and type, and
// an account with ledger history keeps its type.
func (s *Service) Update(ctx context.Context, orgID, accountID string, u AccountUpdate) (model.Account, error) {
	var a model.Account
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if a, err = q.GetAccount(ctx, orgID, accountID); err != nil {
			return err
		}
		if u.Code != nil && *u.Code != a.Code {
			if a.IsSystem {
				return errs.Immutability("system_account", "cannot change the code of system account %s", a.Code)
			}
			code := strings.TrimSpace(*u.Code)
			if code == "" {
				return errs.Validation("account", "code is required")
			}
			exists, err := q.AccountCodeExists(ctx, orgID, code)
			if err != nil {
				return err
			}
			if exists {
				return errs.Conflict("account_code", "account code %s already exists", code)
			}
			a.Code = code
		}
		if u.Type != nil && *u.Type != a.Type {
			if a.IsSystem {
				return errs.Immutability("system_account", "cannot change the type of system account %s", a.Code)
			}
			if !u.Type.Valid() {
				return errs.Validation("account_type", "unknown account type %q", *u.Type)
			}
			used, err := q.AccountHasEntries(ctx, a.ID)
			if err != nil {
				return err
			}
			if used {
				return errs.Immutability("account_in_use", "account %s has ledger entries; its type cannot change", a.Code)
			}
			a.Type = *u.Type
		}
		if u.Name != nil {
			if strings.TrimSpace(*u.Name) == "" {
				return errs.Validation("account", "name is required")
			}
			a.Name = strings.TrimSpace(*u.Name)
		}
		if u.Description != nil {
			a.Description = *u.Description
		}
		if u.Control != nil {
			a.AllowManualJournal = !*u.Control
		}
		return q.UpdateAccount(ctx, &a)
	})
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Deactivate stops new postings to an account. Existing history and the
// cached balance are kept.
func (s *Service) Deactivate(ctx context.Context, orgID, accountID string) (model.Account, error) {
	return s.setActive(ctx, orgID, accountID, false)
}

// Reactivate reverses Deactivate.
func (s *Service) Reactivate(ctx context.Context, orgID, accountID string) (model.Account, error) {
	return s.setActive(ctx, orgID, accountID, true)
}

func (s *Service) setActive(ctx context.Context, orgID, accountID string, active bool) (model.Account, error) {
	var a model.Account
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if a, err = q.GetAccount(ctx, orgID, accountID); err != nil {
			return err
		}
		if a.IsSystem && !active {
			return errs.Immutability("system_account", "system account %s cannot be deactivated", a.Code)
		}
		a.IsActive = active
		return q.UpdateAccount(ctx, &a)
	})
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Delete removes an account that is not a system account and has neither
// children nor ledger entries.
func (s *Service) Delete(ctx context.Context, orgID, accountID string) error {
	return s.store.InTx(ctx, func(q *store.Queries) error {
		a, err := q.GetAccount(ctx, orgID, accountID)
		if err != nil {
			return err
		}
		if a.IsSystem {
			return errs.Immutability("system_account", "system account %s cannot be deleted", a.Code)
		}
		children, err := q.AccountHasChildren(ctx, a.ID)
		if err != nil {
			return err
		}
		if children {
			return errs.Immutability("has_children", "account %s has child accounts", a.Code)
		}
		used, err := q.AccountHasEntries(ctx, a.ID)
		if err != nil {
			return err
		}
		if used {
			return errs.Immutability("account_in_use", "account %s has ledger entries; deactivate it instead", a.Code)
		}
		return q.DeleteAccount(ctx, orgID, a.ID)
	})
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, orgID, accountID string) (model.Account, error) {
	return s.store.GetAccount(ctx, orgID, accountID)
}

// GetByCode returns an account by code.
func (s *Service) GetByCode(ctx context.Context, orgID, code string) (model.Account, error) {
	return s.store.GetAccountByCode(ctx, orgID, code)
}

// List returns all accounts ordered by code.
func (s *Service) List(ctx context.Context, orgID string) ([]model.Account, error) {
	return s.store.ListAccounts(ctx, orgID)
}

// ByType returns the accounts of the given type.
func (s *Service) ByType(ctx context.Context, orgID string, t model.AccountType) ([]model.Account, error) {
	all, err := s.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Type == t {
			result = append(result, a)
		}
	}
	return result, nil
}

// Seed creates the accounts of a chart in one transaction. Codes that already
// exist are skipped, so seeding twice is harmless. Parents must precede their
// children.
func (s *Service) Seed(ctx context.Context, orgID string, chart []ChartEntry) ([]model.Account, error) {
	var created []model.Account
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		created = nil
		for _, e := range chart {
			if !e.Type.Valid() {
				return errs.Validation("account_type", "account %s: unknown type %q", e.Code, e.Type)
			}
			exists, err := q.AccountCodeExists(ctx, orgID, e.Code)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			a := model.Account{
				ID:                 id.New(),
				OrganizationID:     orgID,
				Code:               e.Code,
				Name:               e.Name,
				Type:               e.Type,
				Currency:           e.Currency,
				IsSystem:           e.IsSystem,
				IsActive:           true,
				AllowManualJournal: e.AllowManualJournal,
				Description:        e.Description,
			}
			if a.Currency == "" {
				a.Currency = s.base
			}
			if e.ParentCode != "" {
				parent, err := q.GetAccountByCode(ctx, orgID, e.ParentCode)
				if err != nil {
					return fmt.Errorf("account %s: parent: %w", e.Code, err)
				}
				a.ParentID = &parent.ID
			}
			if err := insert(ctx, q, &a); err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("chart seeded", "org", orgID, "created", len(created), "entries", len(chart))
	return created, nil
}

// Export returns the organization's chart as entries.
func (s *Service) Export(ctx context.Context, orgID string) ([]ChartEntry, error) {
	all, err := s.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return ChartOf(all), nil
}

// LoadChart reads a chart-of-accounts CSV file.
func LoadChart(path string) ([]ChartEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	chart, err := ReadChart(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return chart, nil
}

// SaveChart writes chart to path, creating its directory.
func SaveChart(path string, chart []ChartEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteChart(f, chart); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
