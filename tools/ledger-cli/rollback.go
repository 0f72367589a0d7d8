package main

import (
	"fmt"
	"log"

	"github.com/urfave/cli/v2"
)

var targetHeightFlag = cli.UintFlag{
	Name:     "height",
	Usage:    "the height to roll back to",
	Required: true,
}

var rollbackCommand = cli.Command{
	Action: rollback,
	Name:   "rollback",
	Usage:  "reverts the ledger to the given height",
	Flags: []cli.Flag{
		&dbDirectoryFlag,
		&targetHeightFlag,
	},
}

func rollback(ctx *cli.Context) (err error) {
	dir := ctx.String(dbDirectoryFlag.Name)
	target := uint32(ctx.Uint(targetHeightFlag.Name))

	db, err := open(dir)
	if err != nil {
		return err
	}
	defer closeOrReport(db, &err)

	before, err := db.StateHeight()
	if err != nil {
		return
	}
	if target > before {
		return fmt.Errorf("cannot roll back to height %d, state is at %d", target, before)
	}
	log.Printf("Rolling back from %d to %d ...", before, target)
	if err = db.RollbackTo(target); err != nil {
		return
	}
	fmt.Printf("State height: %d\n", target)
	return nil
}
