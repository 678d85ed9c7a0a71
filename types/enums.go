package types

type Currency string

const (
	CurrencyTON  Currency = "TON"
	CurrencyUSDT Currency = "USDT"
)

type TxStatus string

const (
	TxStatusPending        TxStatus = "pending"
	TxStatusAwaitingReview TxStatus = "awaiting_manual_check"
	TxStatusVerified       TxStatus = "verified"
	TxStatusCompleted      TxStatus = "completed"
	TxStatusFailed         TxStatus = "failed"
)

type VerifyMode string

const (
	VerifyModeDelay   VerifyMode = "delay"
	VerifyModeOnChain VerifyMode = "onchain"
	VerifyModeManual  VerifyMode = "manual"
)

func ParseVerifyMode(s string) VerifyMode {
	switch VerifyMode(s) {
	case VerifyModeOnChain:
		return VerifyModeOnChain
	case VerifyModeManual:
		return VerifyModeManual
	default:
		return VerifyModeDelay
	}
}
