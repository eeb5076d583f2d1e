package ledger

import (
	"math/big"
	"time"

	"github.com/masq-node/accountant/wallet"
)

// BindMessage carries the earning/consuming wallet pair the Accountant
// should use for the lifetime of this run (spec.md section 4.1); sent
// once, before StartMessage.
type BindMessage struct {
	Addresses wallet.Addresses
}

// StartMessage kicks off the periodic scan cycle. Sent once at daemon
// startup after BindMessage.
type StartMessage struct{}

// ReportRoutingServiceProvided is sent by the neighborhood/routing layer
// each time this node relays a packet for peer, so the Accountant can
// charge them (spec.md section 4.6).
type ReportRoutingServiceProvided struct {
	Peer            wallet.Wallet
	PayloadSizeByte uint64
	ServiceRateWei  *big.Int
	ByteRateWei     *big.Int
	Timestamp       time.Time
}

// ReportRoutingServiceConsumed is sent when this node asked a peer to
// relay a packet on its behalf, recording money owed to them.
type ReportRoutingServiceConsumed struct {
	Peer            wallet.Wallet
	PayloadSizeByte uint64
	ServiceRateWei  *big.Int
	ByteRateWei     *big.Int
	Timestamp       time.Time
}

// ReportExitServiceProvided is sent when this node acted as the exit
// hop delivering a peer's packet to its final destination.
type ReportExitServiceProvided struct {
	Peer            wallet.Wallet
	PayloadSizeByte uint64
	ServiceRateWei  *big.Int
	ByteRateWei     *big.Int
	Timestamp       time.Time
}

// ReportExitServiceConsumed is sent when a peer acted as exit hop for
// this node's packet.
type ReportExitServiceConsumed struct {
	Peer            wallet.Wallet
	PayloadSizeByte uint64
	ServiceRateWei  *big.Int
	ByteRateWei     *big.Int
	Timestamp       time.Time
}

// SentPayments is sent by the blockchain bridge once a payment batch has
// been signed and broadcast, so the Accountant can record pending
// payable fingerprints (spec.md section 4.4).
type SentPayments struct {
	Payments []SentPayment
}

// SentPayment is one transaction within a SentPayments batch.
type SentPayment struct {
	Wallet    wallet.Wallet
	AmountWei *big.Int
	TxHash    string
	Nonce     uint64
	Timestamp time.Time
}

// ReceivedPayments is sent by the blockchain bridge when it observes
// incoming payments on-chain, so the Accountant can credit them against
// receivable balances (spec.md section 4.6).
type ReceivedPayments struct {
	Payments []ReceivedPayment
}

// CancelFailedPendingTransaction is sent by the blockchain bridge when a
// pending payable's receipt comes back Failure (spec.md section 4.4).
// Wallet/AmountWei/TxHash are carried so the second-failure ERROR log of
// seed scenario 6 can name the wallet, amount, and transaction id without
// a DAO round-trip.
type CancelFailedPendingTransaction struct {
	RowID     int64
	Wallet    wallet.Wallet
	AmountWei *big.Int
	TxHash    string
}

// ConfirmPendingTransaction is sent by the blockchain bridge when a
// transaction receipt confirms success.
type ConfirmPendingTransaction struct {
	RowID     int64
	AmountWei *big.Int
}

// RequestTransactionReceipts describes a request to the blockchain
// bridge to poll for receipts on every outstanding fingerprint. The
// pending payable scanner does not send it: it calls
// BlockchainBridge.RequestReceipts directly with the same fingerprints.
type RequestTransactionReceipts struct {
	Fingerprints []PendingPayableFingerprint
}

// UiFinancialsRequest asks for a snapshot of current payable/receivable
// totals and top-N rows (spec.md section 4.6 UI surface). MinAgeSec is
// the maximum age, in seconds, of the payable rows returned; zero means
// no age bound, and the receivable rows are not filtered by age.
// MinAmountWei is the minimum balance for both top-N queries; nil means
// 1 gwei.
type UiFinancialsRequest struct {
	TopN         int
	MinAgeSec    int64
	MinAmountWei *big.Int
}

// UiFinancialsResponse answers a UiFinancialsRequest. Sub-gwei rows are
// never included: AboveDustFloor is enforced at the DAO query layer, and
// the Accountant panics while building the response if that contract is
// violated (spec.md section 3 dust-floor invariant).
type UiFinancialsResponse struct {
	TotalPayableWei    *big.Int
	TotalReceivableWei *big.Int
	TopPayables        []PayableAccount
	TopReceivables     []ReceivableAccount
}

// CrashRequest asks a named actor to panic, if it is configured
// crashable. Used only in integration tests to exercise supervisor
// restart behavior (spec.md section 9).
type CrashRequest struct {
	Actor string
}

// AccountantActorName is the only Actor value CrashRequest recognizes
// for this package; requests naming any other actor are ignored.
const AccountantActorName = "ACCOUNTANT"
