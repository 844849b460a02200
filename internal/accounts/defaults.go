package accounts

import "github.com/Mudegi/YourBookSuit-sub007/internal/model"

// Codes of the system accounts in the default chart.
const (
	CodeCash              = "1000"
	CodeBank              = "1010"
	CodeReceivable        = "1100"
	CodeInventory         = "1200"
	CodeInterBranch       = "1300"
	CodeUndepositedFunds  = "1400"
	CodePayable           = "2000"
	CodeVATPayable        = "2100"
	CodeOwnersCapital     = "3000"
	CodeRetainedEarnings  = "3100"
	CodeSales             = "4000"
	CodeOtherIncome       = "4100"
	CodeCostOfGoodsSold   = "5000"
	CodeOperatingExpenses = "6000"
	CodeBankCharges       = "6030"
)

// DefaultChart returns the default chart of accounts for a template.
func DefaultChart(template string) []ChartEntry {
	switch template {
	case "services":
		return servicesChart()
	default:
		return tradingChart()
	}
}

func tradingChart() []ChartEntry {
	return append(servicesChart(),
		ChartEntry{Code: CodeInventory, Name: "Inventory", Type: model.AccountTypeAsset, IsSystem: true, AllowManualJournal: true, Description: "Stock on hand"},
		ChartEntry{Code: CodeInterBranch, Name: "Inter-Branch Clearing", Type: model.AccountTypeAsset, IsSystem: true, Description: "Goods in transit between branches"},
		ChartEntry{Code: CodeCostOfGoodsSold, Name: "Cost of Goods Sold", Type: model.AccountTypeCostOfSales, IsSystem: true, AllowManualJournal: true},
	)
}

func servicesChart() []ChartEntry {
	return []ChartEntry{
		{Code: CodeCash, Name: "Cash on Hand", Type: model.AccountTypeAsset, IsSystem: true, AllowManualJournal: true},
		{Code: CodeBank, Name: "Bank", Type: model.AccountTypeAsset, IsSystem: true, AllowManualJournal: true, Description: "Primary bank account"},
		{Code: CodeReceivable, Name: "Accounts Receivable", Type: model.AccountTypeAsset, IsSystem: true, Description: "Customer balances, fed by invoices"},
		{Code: CodeUndepositedFunds, Name: "Undeposited Funds", Type: model.AccountTypeAsset, IsSystem: true},
		{Code: CodePayable, Name: "Accounts Payable", Type: model.AccountTypeLiability, IsSystem: true, Description: "Supplier balances, fed by bills"},
		{Code: CodeVATPayable, Name: "VAT Payable", Type: model.AccountTypeLiability, IsSystem: true},
		{Code: CodeOwnersCapital, Name: "Owner's Capital", Type: model.AccountTypeEquity, IsSystem: true, AllowManualJournal: true},
		{Code: CodeRetainedEarnings, Name: "Retained Earnings", Type: model.AccountTypeEquity, IsSystem: true, AllowManualJournal: true},
		{Code: CodeSales, Name: "Sales Revenue", Type: model.AccountTypeRevenue, IsSystem: true, AllowManualJournal: true},
		{Code: CodeOtherIncome, Name: "Other Income", Type: model.AccountTypeRevenue, AllowManualJournal: true},
		{Code: CodeOperatingExpenses, Name: "Operating Expenses", Type: model.AccountTypeExpense, AllowManualJournal: true},
		{Code: "6010", Name: "Rent", Type: model.AccountTypeExpense, ParentCode: CodeOperatingExpenses, AllowManualJournal: true},
		{Code: "6020", Name: "Utilities", Type: model.AccountTypeExpense, ParentCode: CodeOperatingExpenses, AllowManualJournal: true},
		{Code: CodeBankCharges, Name: "Bank Charges", Type: model.AccountTypeExpense, ParentCode: CodeOperatingExpenses, AllowManualJournal: true},
		{Code: "6040", Name: "Salaries & Wages", Type: model.AccountTypeExpense, ParentCode: CodeOperatingExpenses, AllowManualJournal: true},
		{Code: "6050", Name: "Office Supplies", Type: model.AccountTypeExpense, ParentCode: CodeOperatingExpenses, AllowManualJournal: true},
	}
}
