package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	logsvc "github.com/trezcool/tulia/services/logger"
	"github.com/trezcool/tulia/storage/database"
	sqlxrepos "github.com/trezcool/tulia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:       db.DB,
		migrator: database.NewMigrator(),
		childSvc: child.NewService(
			db,
			sqlxrepos.NewChildRepository(db),
			avatar.NewService(sqlxrepos.NewAvatarRepository(db)),
		),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
