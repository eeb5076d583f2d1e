// Command accountantcli is a read-only operator tool for inspecting an
// accountant daemon's database directly: top payables/receivables,
// totals, and the current ban list. It talks straight to the sqlite or
// Postgres database rather than over RPC, since the UI/RPC gateway
// itself is an external collaborator out of scope for this component
// (see DESIGN.md).
package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/masq-node/accountant/accountant/bigint"
	"github.com/masq-node/accountant/accountant/ledger"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "accountantcli: %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "accountantcli"
	app.Usage = "inspect a MASQ accountant node's payable/receivable ledger"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Value: "./data",
			Usage: "accountant sqlite data directory",
		},
		cli.StringFlag{
			Name:  "postgres-dsn",
			Usage: "Postgres connection string; overrides --datadir when set",
		},
	}
	app.Commands = []cli.Command{
		financialsCommand,
		bannedCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func openDatabase(ctx *cli.Context) (ledger.PayableDao, ledger.ReceivableDao, ledger.BannedDao, error) {
	if dsn := ctx.GlobalString("postgres-dsn"); dsn != "" {
		db, err := bigint.OpenPostgres(dsn)
		if err != nil {
			return nil, nil, nil, err
		}
		return ledger.NewPayableDao(db), ledger.NewReceivableDao(db), ledger.NewBannedDao(db), nil
	}

	db, err := bigint.Open(ctx.GlobalString("datadir"))
	if err != nil {
		return nil, nil, nil, err
	}
	return ledger.NewPayableDao(db), ledger.NewReceivableDao(db), ledger.NewBannedDao(db), nil
}

var oneGwei = big.NewInt(1_000_000_000)

var financialsCommand = cli.Command{
	Name:  "financials",
	Usage: "print top payables/receivables and totals",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "top", Value: 10, Usage: "number of rows per table"},
	},
	Action: func(ctx *cli.Context) error {
		payableDao, receivableDao, _, err := openDatabase(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		topN := ctx.Int("top")

		payables, err := payableDao.TopPayables(topN, oneGwei, 365*24*3600, now)
		if err != nil {
			return err
		}
		receivables, err := receivableDao.TopReceivables(topN, oneGwei, now)
		if err != nil {
			return err
		}
		totalPayable, err := payableDao.TotalPayableWei()
		if err != nil {
			return err
		}
		totalReceivable, err := receivableDao.TotalReceivableWei()
		if err != nil {
			return err
		}

		printPayablesTable(payables, now)
		printReceivablesTable(receivables, now)
		fmt.Printf("\nTotal payable:    %s wei\n", totalPayable.String())
		fmt.Printf("Total receivable: %s wei\n", totalReceivable.String())

		return nil
	},
}

var bannedCommand = cli.Command{
	Name:  "banned",
	Usage: "list currently banned wallets",
	Action: func(ctx *cli.Context) error {
		_, _, bannedDao, err := openDatabase(ctx)
		if err != nil {
			return err
		}

		wallets, err := bannedDao.AllBanned()
		if err != nil {
			return err
		}
		for _, w := range wallets {
			fmt.Println(w.Display())
		}
		return nil
	},
}
