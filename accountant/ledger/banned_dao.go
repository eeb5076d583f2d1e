package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/masq-node/accountant/wallet"
)

// BannedDao tracks wallets currently excluded from routing service for
// delinquent debt (spec.md section 4.7). The ban list is a denylist, not a
// judgment on the account balance itself: a wallet stays banned until
// paid back down below UnbanBelowGwei, even if it never grows further.
type BannedDao interface {
	Ban(w wallet.Wallet, at time.Time) error
	Unban(w wallet.Wallet) error
	IsBanned(w wallet.Wallet) (bool, error)
	AllBanned() ([]wallet.Wallet, error)
}

type sqlBannedDao struct {
	db *sql.DB
}

// NewBannedDao wraps an open database handle.
func NewBannedDao(db *sql.DB) BannedDao {
	return &sqlBannedDao{db: db}
}

// Ban adds w to the ban list, or is a no-op if it's already there.
func (d *sqlBannedDao) Ban(w wallet.Wallet, at time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO banned (wallet_address, banned_at) VALUES (?, ?)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		w.Display(), at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("accountant: banning %s: %w", w.Display(), err)
	}
	return nil
}

// Unban removes w from the ban list, or is a no-op if it wasn't there.
func (d *sqlBannedDao) Unban(w wallet.Wallet) error {
	_, err := d.db.Exec(`DELETE FROM banned WHERE wallet_address = ?`, w.Display())
	if err != nil {
		return fmt.Errorf("accountant: unbanning %s: %w", w.Display(), err)
	}
	return nil
}

// IsBanned reports whether w currently appears on the ban list.
func (d *sqlBannedDao) IsBanned(w wallet.Wallet) (bool, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM banned WHERE wallet_address = ?`, w.Display()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("accountant: checking ban status of %s: %w", w.Display(), err)
	}
	return count > 0, nil
}

// AllBanned returns every currently banned wallet, the neighborhood
// gossip layer's input for excluding peers from route selection
// (spec.md section 4.7 domain-stack note).
func (d *sqlBannedDao) AllBanned() ([]wallet.Wallet, error) {
	rows, err := d.db.Query(`SELECT wallet_address FROM banned`)
	if err != nil {
		return nil, fmt.Errorf("accountant: listing banned wallets: %w", err)
	}
	defer rows.Close()

	var out []wallet.Wallet
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		w, err := wallet.FromHex(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
