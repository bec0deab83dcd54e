package core

// Operation represents a logical account-state call on an exchange.
type Operation int

// Operation constants. Each exchange protocol supports a subset of them.
const (
	// OpExchangeInfo retrieves exchange metadata such as tradable symbols.
	OpExchangeInfo Operation = iota
	// OpAccount retrieves account information including balances.
	OpAccount
	// OpBalance retrieves balances for one currency.
	OpBalance
	// OpTradeHistory retrieves the caller's executed trades.
	OpTradeHistory
	// OpWallets retrieves wallet balances.
	OpWallets
	// OpMovements retrieves deposits and withdrawals for one currency.
	OpMovements
	// OpDepositHistory retrieves deposits.
	OpDepositHistory
	// OpWithdrawalHistory retrieves withdrawals.
	OpWithdrawalHistory
	// OpAccounts retrieves one page of accounts.
	OpAccounts
	// OpTransactions retrieves one page of transactions for an account.
	OpTransactions
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	names := [...]string{
		"EXCHANGE_INFO",
		"ACCOUNT",
		"BALANCE",
		"TRADE_HISTORY",
		"WALLETS",
		"MOVEMENTS",
		"DEPOSIT_HISTORY",
		"WITHDRAWAL_HISTORY",
		"ACCOUNTS",
		"TRANSACTIONS",
	}
	if o < 0 || int(o) >= len(names) {
		return "UNKNOWN"
	}
	return names[o]
}
