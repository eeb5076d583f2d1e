// Package wallet defines the MASQ wallet address type shared by every
// package in the accountant that needs to name a counterparty.
package wallet

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the length in bytes of a MASQ wallet address.
const AddressLength = 20

// Wallet is a 20-byte chain address identifying a node or a peer.
type Wallet struct {
	address [AddressLength]byte
}

// New builds a Wallet from a raw 20-byte address.
func New(address [AddressLength]byte) Wallet {
	return Wallet{address: address}
}

// FromHex parses a "0x"-prefixed or bare hex string into a Wallet.
func FromHex(s string) (Wallet, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet: invalid hex address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return Wallet{}, fmt.Errorf("wallet: address %q must be %d bytes, got %d",
			s, AddressLength, len(raw))
	}
	var w Wallet
	copy(w.address[:], raw)
	return w, nil
}

// Bytes returns the raw 20-byte address.
func (w Wallet) Bytes() [AddressLength]byte {
	return w.address
}

// Display renders the wallet the way log lines and UI responses do:
// a lower-case "0x"-prefixed hex string.
func (w Wallet) Display() string {
	return "0x" + hex.EncodeToString(w.address[:])
}

func (w Wallet) String() string {
	return w.Display()
}

// Equal reports whether two wallets name the same address.
func (w Wallet) Equal(other Wallet) bool {
	return w.address == other.address
}

// IsZero reports whether the wallet is the zero address.
func (w Wallet) IsZero() bool {
	return w.address == [AddressLength]byte{}
}

// Addresses groups the node's own consuming and earning wallets, used to
// decide whether a counterparty in a service event is "ours".
type Addresses struct {
	Consuming Wallet
	Earning   Wallet
}

// IsOurs reports whether w is either of the node's own wallets.
func (a Addresses) IsOurs(w Wallet) bool {
	return w.Equal(a.Consuming) || w.Equal(a.Earning)
}
