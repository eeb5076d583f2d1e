package scanners

import (
	"fmt"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
)

// ReceivableScanner implements spec.md section 4.4's ReceivableScanner:
// compute new and paid-off delinquencies and update the ban list
// accordingly. Crediting newly observed inbound transfers happens via
// the ordinary ReceivedPayments inbound message (spec.md section 4.6),
// driven by the blockchain bridge pushing, not this scanner pulling —
// a deliberate simplification over the reference's pull-based
// "ask for new transfers since last block" step, since this port's
// BlockchainBridge is an outbound-only interface (see DESIGN.md).
type ReceivableScanner struct {
	baseScanner
	Dao        ledger.ReceivableDao
	BannedDao  ledger.BannedDao
	Thresholds threshold.PaymentThresholds
}

// NewReceivableScanner builds a ReceivableScanner.
func NewReceivableScanner(dao ledger.ReceivableDao, bannedDao ledger.BannedDao, t threshold.PaymentThresholds) *ReceivableScanner {
	return &ReceivableScanner{baseScanner: baseScanner{name: "receivable"}, Dao: dao, BannedDao: bannedDao, Thresholds: t}
}

// Scan bans newly delinquent wallets and unbans paid-off ones.
func (s *ReceivableScanner) Scan(now time.Time) (string, error) {
	s.BeginScan(now)

	newlyDelinquent, err := s.Dao.NewDelinquencies(now, s.Thresholds)
	if err != nil {
		err = fmt.Errorf("listing new delinquencies: %w", err)
		s.FinishScan("", err)
		return "", err
	}
	banned := 0
	for _, acct := range newlyDelinquent {
		if err := s.BannedDao.Ban(acct.Wallet, now); err != nil {
			log.Errorf("receivable: banning %s: %v", acct.Wallet.Display(), err)
			continue
		}
		banned++
	}

	paidOff, err := s.Dao.PaidDelinquencies(s.Thresholds)
	if err != nil {
		err = fmt.Errorf("listing paid delinquencies: %w", err)
		s.FinishScan("", err)
		return "", err
	}
	unbanned := 0
	for _, acct := range paidOff {
		isBanned, err := s.BannedDao.IsBanned(acct.Wallet)
		if err != nil || !isBanned {
			continue
		}
		if err := s.BannedDao.Unban(acct.Wallet); err != nil {
			log.Errorf("receivable: unbanning %s: %v", acct.Wallet.Display(), err)
			continue
		}
		unbanned++
	}

	summary := fmt.Sprintf("%d newly banned, %d unbanned", banned, unbanned)
	s.FinishScan(summary, nil)
	return summary, nil
}
