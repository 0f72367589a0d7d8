package main

import (
	"encoding/hex"
	"fmt"

	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/urfave/cli/v2"
)

var getBalanceCommand = cli.Command{
	Action:    getBalance,
	Name:      "balance",
	Usage:     "prints the balance of an account, given as a hex address",
	ArgsUsage: "<address>",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
	},
}

func getBalance(ctx *cli.Context) (err error) {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("expected one address argument, got %d", ctx.Args().Len())
	}
	raw, err := hex.DecodeString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if len(raw) != common.AddressSize {
		return fmt.Errorf("invalid address: expected %d bytes, got %d", common.AddressSize, len(raw))
	}
	var address common.Address
	copy(address[:], raw)

	db, err := open(ctx.String(dbDirectoryFlag.Name))
	if err != nil {
		return err
	}
	defer closeOrReport(db, &err)

	balance, err := db.Balance(address)
	if err != nil {
		return
	}
	fmt.Printf("Balance of %s: %d\n", address, balance)
	return nil
}
