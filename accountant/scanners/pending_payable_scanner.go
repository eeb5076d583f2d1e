package scanners

import (
	"fmt"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
)

// PendingPayableScanner implements spec.md section 4.4's
// PendingPayableScanner: every tick, it marks fingerprints that have
// aged past MaxPendingInterval as terminally failed, then asks the
// blockchain bridge for receipts on everything still live. Confirm and
// cancel are driven by the bridge's response messages re-entering the
// Accountant's inbox (ConfirmPendingTransaction / CancelFailedPending-
// Transaction), not by this scanner directly — spec.md section 5's
// ordering guarantee depends on those being ordinary inbound messages.
type PendingPayableScanner struct {
	baseScanner
	Dao               ledger.PendingPayableDao
	Bridge            ledger.BlockchainBridge
	MaxPendingInterval time.Duration
}

// NewPendingPayableScanner builds a PendingPayableScanner.
func NewPendingPayableScanner(dao ledger.PendingPayableDao, bridge ledger.BlockchainBridge, maxPendingInterval time.Duration) *PendingPayableScanner {
	return &PendingPayableScanner{
		baseScanner:        baseScanner{name: "pending payable"},
		Dao:                dao,
		Bridge:             bridge,
		MaxPendingInterval: maxPendingInterval,
	}
}

// Scan marks expired fingerprints failed and requests receipts for the
// rest, returning a summary for logging.
func (s *PendingPayableScanner) Scan(now time.Time) (string, error) {
	s.BeginScan(now)

	fingerprints, err := s.Dao.FingerprintsToScan()
	if err != nil {
		err = fmt.Errorf("listing pending payable fingerprints: %w", err)
		s.FinishScan("", err)
		return "", err
	}

	var live []ledger.PendingPayableFingerprint
	expired := 0
	for _, fp := range fingerprints {
		age := time.Duration(fp.AgeSec(now)) * time.Second
		if age > s.MaxPendingInterval {
			if err := s.Dao.MarkFailed(fp.RowID, ledger.ProcessErrorTimedOut); err != nil {
				log.Errorf("pending payable: marking row %d terminally failed: %v", fp.RowID, err)
				continue
			}
			expired++
			continue
		}
		live = append(live, fp)
	}

	summary := fmt.Sprintf("%d live, %d newly expired", len(live), expired)

	if len(live) == 0 || s.Bridge == nil {
		s.FinishScan(summary, nil)
		return summary, nil
	}

	if err := s.Bridge.RequestReceipts(live); err != nil {
		err = fmt.Errorf("requesting transaction receipts: %w", err)
		s.FinishScan(summary, err)
		return "", err
	}

	for _, fp := range live {
		if err := s.Dao.IncrementAttempt(fp.RowID); err != nil {
			log.Errorf("pending payable: incrementing attempt for row %d: %v", fp.RowID, err)
		}
	}

	s.FinishScan(summary, nil)
	return summary, nil
}
