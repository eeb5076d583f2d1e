package adjustment

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
)

// Adjuster implements ledger.PaymentAdjuster: given a qualified
// payment batch and the consuming wallet's available token balance, it
// returns a possibly-shrunken list whose total fits (spec.md section
// 4.5). Stateless across calls except for the per-call weight/proposal
// scratchpad built and discarded within AdjustPayments.
type Adjuster struct {
	Thresholds   threshold.PaymentThresholds
	Calculators  []CriterionCalculator
	Disqualifier DisqualificationArbiter
}

// NewAdjuster builds an Adjuster with the default criterion set.
func NewAdjuster(t threshold.PaymentThresholds) *Adjuster {
	return &Adjuster{Thresholds: t, Calculators: DefaultCalculators()}
}

// AdjustPayments satisfies ledger.PaymentAdjuster.
func (a *Adjuster) AdjustPayments(_ context.Context, qualified []ledger.PayableAccount, balances ledger.ConsumingWalletBalances, now time.Time) ([]ledger.PayableAccount, error) {
	decision, gasCap, err := SearchForIndispensableAdjustment(qualified, balances)
	if err != nil {
		return nil, err
	}
	if decision == DecisionNone {
		return qualified, nil
	}

	accounts := qualified
	if gasCap != noGasCap {
		sorted := a.sortByWeightDesc(qualified, now)
		if gasCap < len(sorted) {
			accounts = sorted[:gasCap]
		} else {
			accounts = sorted
		}

		sum := new(big.Int)
		for _, acct := range accounts {
			sum.Add(sum, acct.BalanceWei)
		}
		if sum.Cmp(balances.ServiceFeeBalanceWei) <= 0 {
			log.Infof("adjustment: gas balance affords only %d of %d qualified payables, finalizing on that cap", gasCap, len(qualified))
			return accounts, nil
		}
		log.Infof("adjustment: gas balance affords only %d of %d qualified payables, still exceeds token balance, continuing with service-fee adjustment", gasCap, len(qualified))
	}

	return a.adjust(accounts, new(big.Int).Set(balances.ServiceFeeBalanceWei), now)
}

// sortByWeightDesc orders accounts by criterion weight, highest first,
// so a gas-count cap keeps the accounts the algorithm would most prefer
// to pay (spec.md section 4.5 step 1/2).
func (a *Adjuster) sortByWeightDesc(accounts []ledger.PayableAccount, now time.Time) []ledger.PayableAccount {
	sorted := make([]ledger.PayableAccount, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return WeightOf(sorted[i], now, a.Thresholds, a.Calculators).Cmp(WeightOf(sorted[j], now, a.Thresholds, a.Calculators)) > 0
	})
	return sorted
}

type weightedAccount struct {
	acct     ledger.PayableAccount
	weight   *big.Int
	proposed *big.Int
}

// adjust is the recursive core of spec.md section 4.5's adjust_payments:
// weight, propose, check outweighed, check disqualified, and either
// recurse on a smaller set or exhaust the remaining budget.
func (a *Adjuster) adjust(accounts []ledger.PayableAccount, remaining *big.Int, now time.Time) ([]ledger.PayableAccount, error) {
	if len(accounts) == 0 {
		return nil, &Error{Kind: AllAccountsEliminated}
	}

	weighted := a.proposeBatch(accounts, remaining, now)

	outweighed, rest := splitOutweighed(weighted)
	if len(outweighed) > 0 {
		return a.handleOutweighed(outweighed, rest, remaining, now)
	}

	if idx := a.disqualifyOne(rest, now); idx >= 0 {
		log.Infof("adjustment: disqualifying %s, proposed %s wei below minimum acceptable",
			rest[idx].acct.Wallet.Display(), rest[idx].proposed.String())
		next := make([]ledger.PayableAccount, 0, len(rest)-1)
		for i, w := range rest {
			if i != idx {
				next = append(next, w.acct)
			}
		}
		return a.adjust(next, remaining, now)
	}

	return exhaust(rest, remaining), nil
}

// proposeBatch computes weight and a proportional proposed balance for
// every account: proposed = weight * remaining / sum_of_weights
// (spec.md section 4.5 step 3; this Go port uses math/big's exact
// integer division directly instead of the reference's u128::MAX
// multiplier trick, since big.Int has no fixed-width overflow to guard
// against).
func (a *Adjuster) proposeBatch(accounts []ledger.PayableAccount, remaining *big.Int, now time.Time) []weightedAccount {
	weighted := make([]weightedAccount, len(accounts))
	sumWeights := new(big.Int)
	for i, acct := range accounts {
		w := WeightOf(acct, now, a.Thresholds, a.Calculators)
		if w.Sign() <= 0 {
			w = big.NewInt(1)
		}
		weighted[i] = weightedAccount{acct: acct, weight: w}
		sumWeights.Add(sumWeights, w)
	}

	for i := range weighted {
		num := new(big.Int).Mul(weighted[i].weight, remaining)
		weighted[i].proposed = num.Div(num, sumWeights)
	}

	return weighted
}

func splitOutweighed(weighted []weightedAccount) (outweighed, rest []weightedAccount) {
	for _, w := range weighted {
		if w.proposed.Cmp(w.acct.BalanceWei) > 0 {
			outweighed = append(outweighed, w)
		} else {
			rest = append(rest, w)
		}
	}
	return outweighed, rest
}

// handleOutweighed accepts every outweighed account at its full original
// balance, shrinks the remaining budget by that much, and recurses on
// what's left (spec.md section 4.5 step 4).
func (a *Adjuster) handleOutweighed(outweighed, rest []weightedAccount, remaining *big.Int, now time.Time) ([]ledger.PayableAccount, error) {
	newRemaining := new(big.Int).Set(remaining)
	accepted := make([]ledger.PayableAccount, 0, len(outweighed))
	for _, w := range outweighed {
		accepted = append(accepted, w.acct)
		newRemaining.Sub(newRemaining, w.acct.BalanceWei)
	}

	if len(rest) == 0 {
		return accepted, nil
	}

	restAccounts := make([]ledger.PayableAccount, 0, len(rest))
	for _, w := range rest {
		restAccounts = append(restAccounts, w.acct)
	}

	adjustedRest, err := a.adjust(restAccounts, newRemaining, now)
	if err != nil {
		return nil, err
	}
	return append(accepted, adjustedRest...), nil
}

// disqualifyOne returns the index, within weighted, of the account with
// the smallest proposed balance among those falling below their minimum
// acceptable payment, or -1 if none do (spec.md section 4.5 step 5:
// exactly one disqualification per pass, to avoid destabilizing weights).
func (a *Adjuster) disqualifyOne(weighted []weightedAccount, now time.Time) int {
	smallest := -1
	for i, w := range weighted {
		min := a.Disqualifier.MinAcceptableWei(w.acct, now, a.Thresholds)
		if w.proposed.Cmp(min) >= 0 {
			continue
		}
		if smallest == -1 || w.proposed.Cmp(weighted[smallest].proposed) < 0 {
			smallest = i
		}
	}
	return smallest
}

// exhaust tops up each account's proposed balance, in ascending weight
// order, up to its full original balance while budget remains, so the
// last available wei gets spent (spec.md section 4.5 step 6). The
// proposed balances already sum to very nearly `remaining` (integer
// division in proposeBatch can only lose a few wei to truncation); that
// truncation remainder is the only budget left to distribute here.
func exhaust(weighted []weightedAccount, remaining *big.Int) []ledger.PayableAccount {
	sort.Slice(weighted, func(i, j int) bool {
		return weighted[i].weight.Cmp(weighted[j].weight) < 0
	})

	budget := new(big.Int).Set(remaining)
	for _, w := range weighted {
		budget.Sub(budget, w.proposed)
	}
	if budget.Sign() < 0 {
		budget = big.NewInt(0)
	}

	final := make([]ledger.PayableAccount, len(weighted))
	for i, w := range weighted {
		shortfall := new(big.Int).Sub(w.acct.BalanceWei, w.proposed)
		topUp := shortfall
		if topUp.Sign() < 0 {
			topUp = big.NewInt(0)
		}
		if topUp.Cmp(budget) > 0 {
			topUp = new(big.Int).Set(budget)
		}

		paid := new(big.Int).Add(w.proposed, topUp)
		budget.Sub(budget, topUp)

		acct := w.acct
		acct.BalanceWei = paid
		final[i] = acct
	}

	return final
}
