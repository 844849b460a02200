package reconcile

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// RuleSpec is a categorization rule as written in a rules file. Account is
// an account code.
type RuleSpec struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern,omitempty"`
	Merchant string `yaml:"merchant,omitempty"`
	Account  string `yaml:"account"`
	Priority int    `yaml:"priority,omitempty"`
}

type rulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRulesYAML reads rule specs from a document of the form
//
//	rules:
//	  - name: GitHub
//	    pattern: "github"
//	    account: "6040"
func LoadRulesYAML(r io.Reader) ([]RuleSpec, error) {
	var f rulesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	for i, s := range f.Rules {
		if s.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i+1)
		}
		if s.Account == "" {
			return nil, fmt.Errorf("rule %q: account is required", s.Name)
		}
	}
	return f.Rules, nil
}

type compiledRule struct {
	rule     model.CategorizationRule
	pattern  *regexp.Regexp
	merchant string
}

// matches reports whether every criterion the rule sets holds for bt.
func (c compiledRule) matches(bt model.BankTransaction) bool {
	if c.pattern != nil && !c.pattern.MatchString(bt.Description+" "+bt.Payee) {
		return false
	}
	if c.merchant != "" && Normalize(bt.Payee) != c.merchant {
		return false
	}
	return true
}

func compile(r model.CategorizationRule) (compiledRule, error) {
	c := compiledRule{rule: r, merchant: Normalize(r.Merchant)}
	if r.Pattern != "" {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return compiledRule{}, errs.Validation("pattern", "rule %q: invalid pattern: %v", r.Name, err)
		}
		c.pattern = re
	}
	if c.pattern == nil && c.merchant == "" {
		return compiledRule{}, errs.Validation("rule", "rule %q needs a pattern or a merchant", r.Name)
	}
	return c, nil
}

// Rules manages categorization rules and keeps a compiled copy of each
// organization's active rules in memory.
type Rules struct {
	store *store.Store
	cache *cache.Cache
}

// NewRules creates a rule manager whose compiled sets expire after ttl.
func NewRules(st *store.Store, ttl time.Duration) *Rules {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Rules{store: st, cache: cache.New(ttl, 2*ttl)}
}

// Add validates and stores a rule.
func (r *Rules) Add(ctx context.Context, orgID string, rule model.CategorizationRule) (model.CategorizationRule, error) {
	rule.ID = id.New()
	rule.OrganizationID = orgID
	rule.Active = true
	if rule.Name == "" {
		return model.CategorizationRule{}, errs.Validation("name", "rule name is required")
	}
	if _, err := compile(rule); err != nil {
		return model.CategorizationRule{}, err
	}
	if _, err := r.store.GetAccount(ctx, orgID, rule.AccountID); err != nil {
		return model.CategorizationRule{}, err
	}
	if err := r.store.InsertRule(ctx, &rule); err != nil {
		return model.CategorizationRule{}, err
	}
	r.cache.Delete(orgID)
	return rule, nil
}

// Import stores rule specs, resolving account codes. All rules are stored
// or none.
func (r *Rules) Import(ctx context.Context, orgID string, specs []RuleSpec) ([]model.CategorizationRule, error) {
	out := make([]model.CategorizationRule, 0, len(specs))
	err := r.store.InTx(ctx, func(q *store.Queries) error {
		for _, s := range specs {
			acct, err := q.GetAccountByCode(ctx, orgID, s.Account)
			if err != nil {
				return fmt.Errorf("rule %q: %w", s.Name, err)
			}
			rule := model.CategorizationRule{
				ID:             id.New(),
				OrganizationID: orgID,
				Name:           s.Name,
				Pattern:        s.Pattern,
				Merchant:       s.Merchant,
				AccountID:      acct.ID,
				Priority:       s.Priority,
				Active:         true,
			}
			if _, err := compile(rule); err != nil {
				return err
			}
			if err := q.InsertRule(ctx, &rule); err != nil {
				return err
			}
			out = append(out, rule)
		}
		return nil
	})
	r.cache.Delete(orgID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a rule.
func (r *Rules) Delete(ctx context.Context, orgID, ruleID string) error {
	defer r.cache.Delete(orgID)
	return r.store.DeleteRule(ctx, orgID, ruleID)
}

// List returns the organization's active rules in evaluation order.
func (r *Rules) List(ctx context.Context, orgID string) ([]model.CategorizationRule, error) {
	return r.store.ListRules(ctx, orgID)
}

// Match returns the first rule by priority that matches bt.
func (r *Rules) Match(ctx context.Context, bt model.BankTransaction) (model.CategorizationRule, bool, error) {
	set, err := r.compiled(ctx, bt.OrganizationID)
	if err != nil {
		return model.CategorizationRule{}, false, err
	}
	for _, c := range set {
		if c.matches(bt) {
			return c.rule, true, nil
		}
	}
	return model.CategorizationRule{}, false, nil
}

func (r *Rules) compiled(ctx context.Context, orgID string) ([]compiledRule, error) {
	if v, ok := r.cache.Get(orgID); ok {
		return v.([]compiledRule), nil
	}
	rules, err := r.store.ListRules(ctx, orgID)
	if err != nil {
		return nil, err
	}
	set := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		c, err := compile(rule)
		if err != nil {
			return nil, err
		}
		set = append(set, c)
	}
	r.cache.SetDefault(orgID, set)
	return set, nil
}
