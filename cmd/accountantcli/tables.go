package main

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/masq-node/accountant/accountant/ledger"
)

func printPayablesTable(rows []ledger.PayableAccount, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Wallet", "Balance (wei)", "Age", "Pending"})
	for _, r := range rows {
		pending := "-"
		if r.IsPending() {
			pending = "yes"
		}
		t.AppendRow(table.Row{
			r.Wallet.Display(),
			r.BalanceWei.String(),
			now.Sub(r.LastPaidTimestamp).Round(time.Second).String(),
			pending,
		})
	}
	t.SetTitle("Payables")
	t.Render()
}

func printReceivablesTable(rows []ledger.ReceivableAccount, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Wallet", "Balance (wei)", "Age"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Wallet.Display(),
			r.BalanceWei.String(),
			now.Sub(r.LastReceivedTimestamp).Round(time.Second).String(),
		})
	}
	t.SetTitle("Receivables")
	t.Render()
}
