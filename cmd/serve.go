package cmd

import (
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/urfave/cli/v2"
)

var portFlag = &cli.IntFlag{
	Name:        "port",
	Aliases:     []string{"p"},
	Value:       8080,
	Usage:       "Port to expose the HTTP API on",
	EnvVars:     []string{"PORT"},
	Destination: &config.Port,
}

var ServeWorkerAPICommand = &cli.Command{
	Name:  "serve-worker-api",
	Usage: "Run the Worker API (JobQueue, lease protocol, file brokerage, timeout supervisor)",
	Flags: []cli.Flag{portFlag},
	Action: func(ctx *cli.Context) error {
		return ServeWorkerAPI()
	},
}

var ServeSubmitAPICommand = &cli.Command{
	Name:  "serve-submit-api",
	Usage: "Run the Submit API (catalog validation, submission materialization)",
	Flags: []cli.Flag{portFlag},
	Action: func(ctx *cli.Context) error {
		return ServeSubmitAPI()
	},
}
