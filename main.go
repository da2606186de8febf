package main

import (
	"os"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "jobbroker",
		Usage: "Two-sided job brokerage: Worker API, Submit API, and queue migrations",
		Commands: []*cli.Command{
			cmd.ServeWorkerAPICommand,
			cmd.ServeSubmitAPICommand,
			cmd.MigrateCommand,
			cmd.HealthCheckCommand,
			cmd.RunWorkerCommand,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		logging.Log.WithError(err).Fatal("runtime error")
	}
}
