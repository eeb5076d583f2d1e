package adjustment

import (
	"math/big"

	"github.com/masq-node/accountant/accountant/ledger"
)

// Decision is the outcome of SearchForIndispensableAdjustment.
type Decision int

const (
	// DecisionNone means the full requested batch already fits the
	// available balance; no shrinking is necessary.
	DecisionNone Decision = iota

	// DecisionByServiceFee means the batch must be shrunk against the
	// token balance via the weighted recursive algorithm.
	DecisionByServiceFee
)

// noGasCap is returned by SearchForIndispensableAdjustment when the gas
// balance covers every requested transaction and no truncation applies.
const noGasCap = -1

// gasAffordableCount computes floor(gas_balance / (gas_price *
// gas_limit_per_tx)), the number of transactions the gas balance can
// cover (spec.md section 4.5 step 1 of search_for_indispensable_adjustment).
// A zero or missing gas price/limit means no gas budget was supplied at
// all, in which case the gas dimension is not considered.
func gasAffordableCount(balances ledger.ConsumingWalletBalances) (count *big.Int, capApplies bool) {
	if balances.GasPriceWei == nil || balances.GasPriceWei.Sign() <= 0 || balances.GasLimitPerTransaction == 0 {
		return nil, false
	}

	perTxWei := new(big.Int).Mul(balances.GasPriceWei, new(big.Int).SetUint64(balances.GasLimitPerTransaction))
	gasBalance := balances.GasBalanceWei
	if gasBalance == nil {
		gasBalance = new(big.Int)
	}

	return new(big.Int).Div(gasBalance, perTxWei), true
}

// SearchForIndispensableAdjustment decides whether a qualified payment
// batch needs shrinking against the consuming wallet's transaction-fee
// (gas) and service-fee (token) balances (spec.md section 4.5
// search_for_indispensable_adjustment). It returns the decision plus a
// gas-count cap (noGasCap if none applies) that adjust_payments must
// truncate the weight-sorted batch to before running the service-fee
// algorithm.
func SearchForIndispensableAdjustment(qualified []ledger.PayableAccount, balances ledger.ConsumingWalletBalances) (Decision, int, error) {
	if len(qualified) == 0 {
		return DecisionNone, noGasCap, nil
	}

	gasCap := noGasCap
	if affordable, capApplies := gasAffordableCount(balances); capApplies {
		if affordable.Sign() <= 0 {
			return DecisionNone, noGasCap, &Error{Kind: NotEnoughTransactionFeeBalanceForSingleTx}
		}
		if affordable.Cmp(big.NewInt(int64(len(qualified)))) < 0 {
			gasCap = int(affordable.Int64())
		}
	}

	sum := new(big.Int)
	smallest := new(big.Int).Set(qualified[0].BalanceWei)
	for _, acct := range qualified {
		sum.Add(sum, acct.BalanceWei)
		if acct.BalanceWei.Cmp(smallest) < 0 {
			smallest = acct.BalanceWei
		}
	}

	if sum.Cmp(balances.ServiceFeeBalanceWei) <= 0 && gasCap == noGasCap {
		return DecisionNone, noGasCap, nil
	}

	if smallest.Cmp(balances.ServiceFeeBalanceWei) > 0 {
		return DecisionNone, noGasCap, &Error{Kind: NotEnoughServiceFeeBalanceEvenForTheSmallestTransaction}
	}

	return DecisionByServiceFee, gasCap, nil
}
