package events

import "github.com/tanakasan3/lana-bank-sub001/internal/money"

// Inbound event payloads consumed from upstream bounded contexts, per
// spec.md §6.

type KycVerification string

const (
	KycVerified   KycVerification = "Verified"
	KycUnverified KycVerification = "Unverified"
)

type CustomerKycUpdated struct {
	CustomerID      string          `json:"customerId"`
	KycVerification KycVerification `json:"kycVerification"`
}

type WalletBalanceUpdated struct {
	WalletID   string         `json:"walletId"`
	BalanceSats money.Satoshis `json:"balanceSats"`
}

type PriceUpdated struct {
	Price money.PriceOfOneBTC `json:"price"`
}

type DepositRecorded struct {
	AccountID string         `json:"accountId"`
	Amount    money.UsdCents `json:"amount"`
}

type ApprovalProcessConcluded struct {
	ProcessID string `json:"processId"`
	Approved  bool   `json:"approved"`
}
