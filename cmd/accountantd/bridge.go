package main

import (
	"fmt"
	"math/big"

	"github.com/masq-node/accountant/accountant/ledger"
)

// noopBridge satisfies ledger.BlockchainBridge without talking to any
// chain; it exists so accountantd can run standalone (exercising the
// scan/adjust/ban cycle against a real database) before a real
// blockchain-bridge collaborator is wired in. Actually signing and
// broadcasting transactions is out of scope for this component (spec.md
// section 1) — that responsibility belongs to whatever replaces this
// stub in a full deployment.
type noopBridge struct{}

func newNoopBridge() *noopBridge {
	return &noopBridge{}
}

func (b *noopBridge) SendPayments(payments []ledger.SentPayment) error {
	for _, p := range payments {
		fmt.Printf("accountantd: [noop bridge] would send %s wei to %s\n", p.AmountWei.String(), p.Wallet.Display())
	}
	return nil
}

func (b *noopBridge) RequestReceipts(fingerprints []ledger.PendingPayableFingerprint) error {
	return nil
}

func (b *noopBridge) ConsumingWalletBalances() (ledger.ConsumingWalletBalances, error) {
	return ledger.ConsumingWalletBalances{
		ServiceFeeBalanceWei:   big.NewInt(0),
		GasBalanceWei:          big.NewInt(0),
		GasPriceWei:            big.NewInt(0),
		GasLimitPerTransaction: 0,
	}, nil
}
