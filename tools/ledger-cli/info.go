package main

import (
	"fmt"
	"log"

	"github.com/Fantom-foundation/Fidelio/ledger"
	"github.com/urfave/cli/v2"
)

var (
	dbDirectoryFlag = cli.StringFlag{
		Name:     "dir",
		Usage:    "the targeted directory",
		Required: true,
	}
)

var getInfoCommand = cli.Command{
	Action: getInfo,
	Name:   "info",
	Usage:  "prints summary information about a ledger DB directory",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
	},
}

// open opens the ledger in the given directory.
func open(dir string) (ledger.Ledger, error) {
	return ledger.Open(ledger.Parameters{Directory: dir})
}

// closeOrReport closes the given ledger, keeping the first error encountered.
func closeOrReport(db ledger.Ledger, err *error) {
	if closeError := db.Close(); closeError != nil {
		if *err == nil {
			*err = closeError
		} else {
			log.Printf("Failure closing DB: %v", closeError)
		}
	}
}

func getInfo(ctx *cli.Context) (err error) {
	dir := ctx.String(dbDirectoryFlag.Name)
	log.Printf("Opening ledger in %v ...", dir)
	db, err := open(dir)
	if err != nil {
		return err
	}
	defer closeOrReport(db, &err)

	height, err := db.StateHeight()
	if err != nil {
		return
	}
	fmt.Printf("State height: %d\n", height)

	total, err := db.TotalBalance()
	if err != nil {
		return
	}
	fmt.Printf("Total balance: %d\n", total)

	accounts, err := db.Accounts()
	if err != nil {
		return
	}
	fmt.Printf("Accounts: %d\n", len(accounts))

	hash, err := db.Hash()
	if err != nil {
		return
	}
	fmt.Printf("State fingerprint: %08x\n", uint32(hash))

	return nil
}
