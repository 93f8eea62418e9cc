package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	"github.com/trezcool/bursary/storage/database"
	sqlxrepos "github.com/trezcool/bursary/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errAndDie(database.Ping(ctx, db, 10))

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db.DB,
		sessions:  session.NewService(sqlxrepos.NewTransactor(db), sqlxrepos.NewSessionRepository(db)),
		directory: student.NewDirectory(sqlxrepos.NewStudentRepository(db)),
		validate:  validate,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
