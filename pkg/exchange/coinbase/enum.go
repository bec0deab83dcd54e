package coinbase

import (
	"nakula/internal/codec"
)

// TransactionType categorizes a transaction. Types the exchange introduces
// later decode to TransactionTypeUnknown.
type TransactionType int

const (
	TransactionTypeUnknown TransactionType = iota
	TransactionTypeAdvancedTradeFill
	TransactionTypeBuy
	TransactionTypeClawback
	TransactionTypeDerivativesSettlement
	TransactionTypeEarnPayout
	TransactionTypeFiatDeposit
	TransactionTypeFiatWithdrawal
	TransactionTypeIncentivesRewardsPayout
	TransactionTypeIncentivesSharedClawback
	TransactionTypeIntxDeposit
	TransactionTypeIntxWithdrawal
	TransactionTypeReceive
	TransactionTypeRequest
	TransactionTypeRetailSimpleDust
	TransactionTypeSell
	TransactionTypeSend
	TransactionTypeStakingTransfer
	TransactionTypeSubscriptionRebate
	TransactionTypeSubscription
	TransactionTypeTrade
	TransactionTypeTransfer
	TransactionTypeTx
	TransactionTypeUnstakingTransfer
	TransactionTypeUnsupportedAssetRecovery
	TransactionTypeUnwrapAsset
	TransactionTypeVaultWithdrawal
	TransactionTypeWrapAsset
	TransactionTypeFcmFuturesUsdcSell
	TransactionTypeFcmFuturesUsdcSellAdditionalEncumbermentRollup
)

var transactionTypeNames = []string{
	TransactionTypeUnknown:                                        "unknown",
	TransactionTypeAdvancedTradeFill:                              "advanced_trade_fill",
	TransactionTypeBuy:                                            "buy",
	TransactionTypeClawback:                                       "clawback",
	TransactionTypeDerivativesSettlement:                          "derivatives_settlement",
	TransactionTypeEarnPayout:                                     "earn_payout",
	TransactionTypeFiatDeposit:                                    "fiat_deposit",
	TransactionTypeFiatWithdrawal:                                 "fiat_withdrawal",
	TransactionTypeIncentivesRewardsPayout:                        "incentives_rewards_payout",
	TransactionTypeIncentivesSharedClawback:                       "incentives_shared_clawback",
	TransactionTypeIntxDeposit:                                    "intx_deposit",
	TransactionTypeIntxWithdrawal:                                 "intx_withdrawal",
	TransactionTypeReceive:                                        "receive",
	TransactionTypeRequest:                                        "request",
	TransactionTypeRetailSimpleDust:                               "retail_simple_dust",
	TransactionTypeSell:                                           "sell",
	TransactionTypeSend:                                           "send",
	TransactionTypeStakingTransfer:                                "staking_transfer",
	TransactionTypeSubscriptionRebate:                             "subscription_rebate",
	TransactionTypeSubscription:                                   "subscription",
	TransactionTypeTrade:                                          "trade",
	TransactionTypeTransfer:                                       "transfer",
	TransactionTypeTx:                                             "tx",
	TransactionTypeUnstakingTransfer:                              "unstaking_transfer",
	TransactionTypeUnsupportedAssetRecovery:                       "unsupported_asset_recovery",
	TransactionTypeUnwrapAsset:                                    "unwrap_asset",
	TransactionTypeVaultWithdrawal:                                "vault_withdrawal",
	TransactionTypeWrapAsset:                                      "wrap_asset",
	TransactionTypeFcmFuturesUsdcSell:                             "fcm_futures_usdc_sell",
	TransactionTypeFcmFuturesUsdcSellAdditionalEncumbermentRollup: "fcm_futures_usdc_sell_additional_encumberment_rollup",
}

var transactionTypes = reverse[TransactionType](transactionTypeNames)

func (t TransactionType) String() string {
	if t < 0 || int(t) >= len(transactionTypeNames) {
		return transactionTypeNames[TransactionTypeUnknown]
	}
	return transactionTypeNames[t]
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	code, err := codec.Code(data)
	if err != nil {
		return err
	}
	*t = codec.Lookup(transactionTypes, code, TransactionTypeUnknown)
	return nil
}

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus int

const (
	TransactionStatusUnknown TransactionStatus = iota
	TransactionStatusCanceled
	TransactionStatusCompleted
	TransactionStatusExpired
	TransactionStatusFailed
	TransactionStatusPending
	TransactionStatusWaitingForClearing
	TransactionStatusWaitingForSignature
)

var transactionStatusNames = []string{
	TransactionStatusUnknown:             "unknown",
	TransactionStatusCanceled:            "canceled",
	TransactionStatusCompleted:           "completed",
	TransactionStatusExpired:             "expired",
	TransactionStatusFailed:              "failed",
	TransactionStatusPending:             "pending",
	TransactionStatusWaitingForClearing:  "waiting_for_clearing",
	TransactionStatusWaitingForSignature: "waiting_for_signature",
}

var transactionStatuses = reverse[TransactionStatus](transactionStatusNames)

func (s TransactionStatus) String() string {
	if s < 0 || int(s) >= len(transactionStatusNames) {
		return transactionStatusNames[TransactionStatusUnknown]
	}
	return transactionStatusNames[s]
}

func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	code, err := codec.Code(data)
	if err != nil {
		return err
	}
	*s = codec.Lookup(transactionStatuses, code, TransactionStatusUnknown)
	return nil
}

// reverse indexes names by wire value, skipping the unknown slot.
func reverse[T ~int](names []string) map[string]T {
	m := make(map[string]T, len(names)-1)
	for i, name := range names[1:] {
		m[name] = T(i + 1)
	}
	return m
}
