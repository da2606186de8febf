package cmd

import (
	"github.com/catalystcommunity/app-utils-go/errorutils"
	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store/queue_store"
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var migrations = queue_store.Migrations

var MigrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Runs queue store database migrations",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "db-uri",
			Aliases:     []string{"db"},
			Value:       config.QueueDBURL,
			Usage:       "The uri to use to connect to the queue database",
			Destination: &config.QueueDBURL,
			EnvVars:     []string{"QUEUE_DB_URL"},
		},
	},
	Action: func(ctx *cli.Context) error {
		return RunMigrations()
	},
}

// RunMigrations applies the queue store's embedded goose migrations
// directly against QUEUE_DB_URL. It assumes a Postgres target; SQLite
// deployments migrate implicitly on QueueStore.Initialize instead, since
// goose needs a concrete dialect picked up front.
func RunMigrations() error {
	db, err := gorm.Open(postgres.Open(config.QueueDBURL), &gorm.Config{})
	errorutils.LogOnErr(nil, "error opening database connection", err)
	if err != nil {
		return err
	}
	sqldb, err := db.DB()
	errorutils.LogOnErr(nil, "error getting database connection", err)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	logging.Log.Info("running queue store migrations")
	err = goose.Up(sqldb, "migrations")
	errorutils.LogOnErr(nil, "error running migrations", err)
	return err
}
