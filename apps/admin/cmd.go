package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	migrator database.Migrator
	childSvc *child.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version, redo, reset, up-to N, down-to N...)")
	fmt.Println("  deletechild -id ID - delete a child with their parents, progress & sessions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	deleteChildCmd := flag.NewFlagSet("deletechild", flag.ContinueOnError)
	deleteChildID := deleteChildCmd.String("id", "", "The child's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "deletechild":
		if err := deleteChildCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteChildID == "" {
			deleteChildCmd.Usage()
			return errHelp
		}
		return cli.deleteChild(*deleteChildID)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	return cli.migrator.Run(context.Background(), args[0], cli.db, args[1:]...)
}

func (cli *commandLine) deleteChild(id string) error {
	ctx := context.Background()
	chld, err := cli.childSvc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = cli.childSvc.Delete(ctx, chld.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s (%s)\n", chld.Name, chld.ID)
	return nil
}
