package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudegi/YourBookSuit-sub007/internal/errs"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/id"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

const org = "org-1"

type fixture struct {
	svc      *Service
	poster   *ledger.Poster
	store    *store.Store
	recorder *events.Recorder
	accounts map[string]model.Account
	feed     model.BankFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.OpenTest(t)
	rec := &events.Recorder{}
	p := ledger.NewPoster(st, ledger.Options{BaseCurrency: "UGX", Publisher: rec})
	f := &fixture{
		svc:      NewService(p, Options{MaxBatch: 3}),
		poster:   p,
		store:    st,
		recorder: rec,
		accounts: map[string]model.Account{},
	}
	f.addAccount(t, "1010", model.AccountTypeAsset, true)
	f.addAccount(t, "1100", model.AccountTypeAsset, false)
	f.addAccount(t, "2000", model.AccountTypeLiability, false)
	f.addAccount(t, "3000", model.AccountTypeEquity, true)
	f.addAccount(t, "4000", model.AccountTypeRevenue, true)
	f.addAccount(t, "6000", model.AccountTypeExpense, true)
	f.addAccount(t, "6040", model.AccountTypeExpense, true)

	feed, err := f.svc.CreateFeed(context.Background(), org, "Stanbic current", f.id("1010"))
	require.NoError(t, err)
	f.feed = feed
	return f
}

func (f *fixture) addAccount(t *testing.T, code string, typ model.AccountType, manual bool) {
	t.Helper()
	a := model.Account{
		ID: id.New(), OrganizationID: org, Code: code, Name: "Account " + code, Type: typ,
		Currency: "UGX", IsActive: true, AllowManualJournal: manual,
	}
	require.NoError(t, f.store.InsertAccount(context.Background(), &a))
	f.accounts[code] = a
}

func (f *fixture) id(code string) string {
	return f.accounts[code].ID
}

func (f *fixture) balance(t *testing.T, code string) string {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), org, f.id(code))
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func (f *fixture) importLine(t *testing.T, line model.StatementLine) model.BankTransaction {
	t.Helper()
	if line.ExternalID == "" {
		line.ExternalID = id.New()
	}
	res, err := f.svc.Import(context.Background(), org, f.feed.ID, []model.StatementLine{line})
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	return res.Imported[0]
}

func (f *fixture) invoice(t *testing.T, number, counterparty, amount string, d int) model.Document {
	t.Helper()
	doc, err := f.svc.RegisterDocument(context.Background(), org, NewDocument{
		Kind: model.DocumentInvoice, Number: number, Counterparty: counterparty,
		Date: day(d), Amount: dec(amount), ContraAccountID: f.id("1100"),
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) bill(t *testing.T, number, counterparty, amount string, d int) model.Document {
	t.Helper()
	doc, err := f.svc.RegisterDocument(context.Background(), org, NewDocument{
		Kind: model.DocumentBill, Number: number, Counterparty: counterparty,
		Date: day(d), Amount: dec(amount), ContraAccountID: f.id("2000"),
	})
	require.NoError(t, err)
	return doc
}

func TestImport_SkipsDuplicateExternalIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lines := []model.StatementLine{
		{Date: day(1), Amount: dec("100"), Description: "a", ExternalID: "x1"},
		{Date: day(2), Amount: dec("-40"), Description: "b", ExternalID: "x2"},
		{Date: day(2), Amount: dec("-40"), Description: "b again", ExternalID: "x2"},
	}

	res, err := f.svc.Import(ctx, org, f.feed.ID, lines)
	require.NoError(t, err)
	assert.Len(t, res.Imported, 2)
	assert.Equal(t, 1, res.Duplicates)

	res, err = f.svc.Import(ctx, org, f.feed.ID, lines)
	require.NoError(t, err)
	assert.Empty(t, res.Imported)
	assert.Equal(t, 3, res.Duplicates)

	all, err := f.svc.List(ctx, org, f.feed.ID, model.BankUnprocessed)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImport_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, org, f.feed.ID, []model.StatementLine{{Date: day(1), ExternalID: "z"}})
	assert.Equal(t, "amount", errs.RuleOf(err))

	_, err = f.svc.Import(ctx, org, "missing-feed", []model.StatementLine{{Date: day(1), Amount: dec("1")}})
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestAutoMatch_AppliesConfidentMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.invoice(t, "INV-1042", "Kampala Traders Ltd", "500000", 1)
	bt := f.importLine(t, model.StatementLine{Date: day(3), Amount: dec("500000"),
		Description: "Deposit", Payee: "Kampala Traders Ltd"})

	out, err := f.svc.AutoMatch(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankMatched, out.Status)
	assert.Equal(t, 92, out.Score)
	assert.Equal(t, doc.ID, out.DocumentID)
	require.NotEmpty(t, out.TransactionID)

	got, err := f.svc.Get(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankMatched, got.Status)
	require.NotNil(t, got.MatchedDocumentID)
	assert.Equal(t, doc.ID, *got.MatchedDocumentID)

	settled, err := f.store.GetDocument(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentSettled, settled.Status)

	assert.Equal(t, "500000.00", f.balance(t, "1010"))
	assert.Equal(t, "-500000.00", f.balance(t, "1100"))

	txn, err := f.store.GetTransaction(ctx, org, out.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeBankSettlement, txn.Type)
	assert.Equal(t, model.StatusPosted, txn.Status)
	require.NotNil(t, txn.Metadata.Settlement)
	assert.Equal(t, bt.ID, txn.Metadata.Settlement.BankTransactionID)

	var types []events.Type
	for _, e := range f.recorder.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{events.TransactionPosted, events.BankMatched}, types)
}

func TestAutoMatch_BelowThresholdStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.invoice(t, "INV-1", "Kampala Traders Ltd", "500000", 1)
	bt := f.importLine(t, model.StatementLine{Date: day(3), Amount: dec("497000"), Payee: "Kampala Traders"})

	out, err := f.svc.AutoMatch(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankUnprocessed, out.Status)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, doc.ID, out.Suggestions[0].DocumentID)
	assert.Equal(t, 62, out.Suggestions[0].Score)

	still, err := f.store.GetDocument(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentOpen, still.Status)
	assert.Equal(t, "0.00", f.balance(t, "1010"))
}

func TestAutoMatch_NearAmountNeverAutoApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.invoice(t, "INV-77", "Kampala Traders Ltd", "500000", 1)
	bt := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("495000"),
		Payee: "Kampala Traders Ltd", ReferenceNo: "INV-77"})

	out, err := f.svc.AutoMatch(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankUnprocessed, out.Status)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, 85, out.Suggestions[0].Score)
	assert.Equal(t, amountWithin1, out.Suggestions[0].Breakdown.Amount)

	still, err := f.store.GetDocument(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentOpen, still.Status)
	assert.Equal(t, "0.00", f.balance(t, "1010"))
	assert.Equal(t, "0.00", f.balance(t, "1100"))

	_, err = f.svc.Apply(ctx, org, bt.ID, doc.ID)
	assert.Equal(t, "amount_mismatch", errs.RuleOf(err))
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	got, err := f.svc.Get(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankUnprocessed, got.Status)
	assert.Equal(t, "0.00", f.balance(t, "1100"))
}

func TestSuggest_OnlyMatchingDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invoice(t, "INV-1", "Acme", "250", 1)
	bill := f.bill(t, "BILL-1", "Acme", "250", 1)
	bt := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("-250"), Payee: "ACME"})

	cands, err := f.svc.Suggest(ctx, org, bt.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, bill.ID, cands[0].DocumentID)
	assert.Equal(t, 95, cands[0].Score)
}

func TestAutoMatch_RulesRunFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Rules().Add(ctx, org, model.CategorizationRule{
		Name: "GitHub", Pattern: `github`, AccountID: f.id("6040"), Priority: 10,
	})
	require.NoError(t, err)
	bill := f.bill(t, "BILL-9", "GitHub", "4.00", 3)
	bt := f.importLine(t, model.StatementLine{Date: day(3), Amount: dec("-4.00"),
		Description: "GITHUB *PRO SUBSCRIPTION", Payee: "GITHUB"})

	out, err := f.svc.AutoMatch(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankCategorized, out.Status)
	assert.NotEmpty(t, out.RuleID)
	assert.Empty(t, out.DocumentID)

	assert.Equal(t, "4.00", f.balance(t, "6040"))
	assert.Equal(t, "-4.00", f.balance(t, "1010"))

	open, err := f.store.GetDocument(ctx, org, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentOpen, open.Status)

	got, err := f.svc.Get(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankCategorized, got.Status)
	require.NotNil(t, got.CategoryAccountID)
	assert.Equal(t, f.id("6040"), *got.CategoryAccountID)
}

func TestRules_PriorityAndMerchant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rules := f.svc.Rules()
	_, err := rules.Add(ctx, org, model.CategorizationRule{Name: "broad", Pattern: "subscription", AccountID: f.id("6000"), Priority: 50})
	require.NoError(t, err)
	narrow, err := rules.Add(ctx, org, model.CategorizationRule{Name: "narrow", Merchant: "Git Hub", AccountID: f.id("6040"), Priority: 5})
	require.NoError(t, err)

	bt := model.BankTransaction{OrganizationID: org, Description: "PRO SUBSCRIPTION", Payee: "git-hub"}
	got, ok, err := rules.Match(ctx, bt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, narrow.ID, got.ID)

	bt.Payee = "gitlab"
	got, ok, err = rules.Match(ctx, bt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "broad", got.Name)

	require.NoError(t, rules.Delete(ctx, org, got.ID))
	_, ok, err = rules.Match(ctx, bt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRules_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name string
		rule model.CategorizationRule
		want string
	}{
		{"no name", model.CategorizationRule{Pattern: "x", AccountID: f.id("6000")}, "name"},
		{"no criteria", model.CategorizationRule{Name: "r", AccountID: f.id("6000")}, "rule"},
		{"bad pattern", model.CategorizationRule{Name: "r", Pattern: "(", AccountID: f.id("6000")}, "pattern"},
		{"unknown account", model.CategorizationRule{Name: "r", Pattern: "x", AccountID: "nope"}, "account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Rules().Add(ctx, org, tt.rule)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.RuleOf(err))
		})
	}
}

func TestRules_ImportYAML(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	specs, err := LoadRulesYAML(strings.NewReader(`
rules:
  - name: Cloud
    pattern: "aws|github"
    account: "6040"
    priority: 1
  - name: Landlord
    merchant: "Speke Properties"
    account: "6000"
`))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	stored, err := f.svc.Rules().Import(ctx, org, specs)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, f.id("6040"), stored[0].AccountID)

	listed, err := f.svc.Rules().List(ctx, org)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = f.svc.Rules().Import(ctx, org, []RuleSpec{
		{Name: "ok", Pattern: "x", Account: "6000"},
		{Name: "bad", Pattern: "y", Account: "9999"},
	})
	require.Error(t, err)
	listed, err = f.svc.Rules().List(ctx, org)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestLoadRulesYAML_Errors(t *testing.T) {
	_, err := LoadRulesYAML(strings.NewReader("rules:\n  - pattern: x\n    account: '1'\n"))
	assert.ErrorContains(t, err, "name is required")

	_, err = LoadRulesYAML(strings.NewReader("rules:\n  - name: x\n"))
	assert.ErrorContains(t, err, "account is required")

	_, err = LoadRulesYAML(strings.NewReader("rulez: []\n"))
	assert.Error(t, err)

	specs, err := LoadRulesYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestApply_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoice(t, "INV-1", "Acme", "100", 1)
	bill := f.bill(t, "BILL-1", "Acme", "100", 1)
	deposit := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("100")})
	deposit2 := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("100")})

	_, err := f.svc.Apply(ctx, org, deposit.ID, bill.ID)
	assert.Equal(t, "direction", errs.RuleOf(err))

	_, err = f.svc.Apply(ctx, org, deposit.ID, inv.ID)
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, org, deposit.ID, inv.ID)
	assert.Equal(t, "bank_status", errs.RuleOf(err))

	_, err = f.svc.Apply(ctx, org, deposit2.ID, inv.ID)
	assert.Equal(t, "document_status", errs.RuleOf(err))

	_, err = f.svc.Apply(ctx, org, deposit2.ID, "missing")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	assert.Equal(t, "100.00", f.balance(t, "1010"))
}

func TestApply_WithdrawalSettlesBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.bill(t, "BILL-7", "Speke Properties", "1200", 2)
	bt := f.importLine(t, model.StatementLine{Date: day(2), Amount: dec("-1200"), Payee: "Speke Properties"})

	_, err := f.svc.Apply(ctx, org, bt.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "-1200.00", f.balance(t, "1010"))
	assert.Equal(t, "-1200.00", f.balance(t, "2000"))
}

func TestIgnore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bt := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("5")})

	require.NoError(t, f.svc.Ignore(ctx, org, bt.ID))
	got, err := f.svc.Get(ctx, org, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BankIgnored, got.Status)

	err = f.svc.Ignore(ctx, org, bt.ID)
	assert.Equal(t, "bank_status", errs.RuleOf(err))
	_, err = f.svc.AutoMatch(ctx, org, bt.ID)
	assert.Equal(t, "bank_status", errs.RuleOf(err))
}

func TestBulkAutoMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.invoice(t, "INV-1", "Acme", "100", 1)
	matched := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("100"), Payee: "Acme"})
	pending := f.importLine(t, model.StatementLine{Date: day(1), Amount: dec("7")})

	results, err := f.svc.BulkAutoMatch(ctx, org, []string{matched.ID, "missing", pending.ID})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, model.BankMatched, results[0].Outcome.Status)
	assert.False(t, results[1].OK)
	assert.Equal(t, errs.KindNotFound, results[1].Kind)
	assert.True(t, results[2].OK)
	assert.Equal(t, model.BankUnprocessed, results[2].Outcome.Status)

	_, err = f.svc.BulkAutoMatch(ctx, org, []string{"a", "b", "c", "d"})
	assert.Equal(t, "batch_size", errs.RuleOf(err))
}

func TestRegisterDocument_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name string
		in   NewDocument
		want string
	}{
		{"kind", NewDocument{Kind: "QUOTE", Number: "Q1", Date: day(1), Amount: dec("1"), ContraAccountID: f.id("1100")}, "kind"},
		{"number", NewDocument{Kind: model.DocumentInvoice, Date: day(1), Amount: dec("1"), ContraAccountID: f.id("1100")}, "number"},
		{"amount", NewDocument{Kind: model.DocumentInvoice, Number: "I1", Date: day(1), Amount: dec("0"), ContraAccountID: f.id("1100")}, "amount"},
		{"date", NewDocument{Kind: model.DocumentInvoice, Number: "I1", Amount: dec("1"), ContraAccountID: f.id("1100")}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterDocument(ctx, org, tt.in)
			assert.Equal(t, tt.want, errs.RuleOf(err))
		})
	}
}
