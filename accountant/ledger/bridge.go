package ledger

import (
	"context"
	"math/big"
	"time"
)

// BlockchainBridge is the Accountant's only outbound dependency: the
// component that actually talks to the chain. The Accountant never signs
// or broadcasts anything itself (spec.md section 1 Non-goals); it only
// decides what should be paid and asks the bridge to do it.
type BlockchainBridge interface {
	SendPayments(payments []SentPayment) error
	RequestReceipts(fingerprints []PendingPayableFingerprint) error

	// ConsumingWalletBalances reports the current gas and token balances
	// the PaymentAdjuster must fit a payment batch within (spec.md
	// section 4.4 point 3: "the current consuming-wallet balances (gas +
	// token)").
	ConsumingWalletBalances() (ConsumingWalletBalances, error)
}

// ConsumingWalletBalances is the snapshot of wallet resources a payment
// batch must fit within: the service-fee (token) balance and the
// transaction-fee (gas) budget (spec.md section 4.5).
type ConsumingWalletBalances struct {
	// ServiceFeeBalanceWei is the MASQ token balance available to pay
	// creditors with.
	ServiceFeeBalanceWei *big.Int

	// GasBalanceWei is the chain's native gas-currency balance available
	// to pay transaction fees with.
	GasBalanceWei *big.Int

	// GasPriceWei is the current price of one unit of gas.
	GasPriceWei *big.Int

	// GasLimitPerTransaction is the gas a single payment transaction is
	// expected to consume.
	GasLimitPerTransaction uint64
}

// PaymentAdjuster shrinks a qualified-but-unaffordable payment batch down
// to what the wallet can actually cover, against both the service-fee
// and transaction-fee budgets (spec.md section 4.5). Satisfied by
// accountant/adjustment.Adjuster.
type PaymentAdjuster interface {
	AdjustPayments(ctx context.Context, qualified []PayableAccount, balances ConsumingWalletBalances, now time.Time) ([]PayableAccount, error)
}

// ChargeWei computes service_rate + byte_rate*payload_size in wei
// (spec.md section 4.6), shared by all four service-event message types.
func ChargeWei(serviceRateWei, byteRateWei *big.Int, payloadSizeByte uint64) *big.Int {
	byteCharge := new(big.Int).Mul(byteRateWei, new(big.Int).SetUint64(payloadSizeByte))
	return new(big.Int).Add(serviceRateWei, byteCharge)
}
