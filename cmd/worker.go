package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/cloudforge/jobbroker/internal/workerclient"
	"github.com/urfave/cli/v2"
)

// RunWorkerCommand is a reference Worker API client: it probes the host's
// hardware, polls for eligible jobs, and reports status. It never executes
// a job's command — running the workload is an explicit non-goal (§1) — so
// every pulled job is reported "running" and then at once "finished" with a note that no
// execution took place, letting an operator exercise the full lease/report
// cycle end to end without a container runtime.
var RunWorkerCommand = &cli.Command{
	Name:  "run-worker",
	Usage: "Run a reference worker that pulls and reports jobs (does not execute them)",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-api-url",
			Value:   "http://localhost:8080",
			Usage:   "Base URL of the Worker API",
			EnvVars: []string{"WORKER_API_URL"},
		},
		&cli.StringFlag{
			Name:    "bearer-token",
			Usage:   "Worker identity-provider bearer token",
			EnvVars: []string{"WORKER_BEARER_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "environment",
			Value:   "local",
			Usage:   "Environment sent with each pull; the Worker API takes the worker's environment from its token groups instead",
			EnvVars: []string{"WORKER_ENVIRONMENT"},
		},
		&cli.IntFlag{
			Name:    "poll-interval",
			Value:   5,
			Usage:   "Poll interval in seconds",
			EnvVars: []string{"WORKER_POLL_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "limit",
			Value:   1,
			Usage:   "Maximum jobs to pull per poll",
			EnvVars: []string{"WORKER_PULL_LIMIT"},
		},
	},
	Action: func(ctx *cli.Context) error {
		return RunWorker(ctx)
	},
}

func RunWorker(ctx *cli.Context) error {
	client := workerclient.NewClient(ctx.String("worker-api-url"), ctx.String("bearer-token"))
	environment := models.Environment(ctx.String("environment"))
	pollInterval := time.Duration(ctx.Int("poll-interval")) * time.Second
	limit := ctx.Int("limit")

	offer, err := workerclient.ProbeHardware()
	if err != nil {
		return err
	}
	logging.Log.WithField("cpu_cores", offer.CPUCores).WithField("memory", offer.MemoryGB).
		Info("probed hardware offer")

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCtx.Done():
			logging.Log.Info("worker shutting down")
			return nil
		case <-ticker.C:
			pollOnce(sigCtx, client, environment, offer, limit)
		}
	}
}

func pollOnce(ctx context.Context, client *workerclient.Client, environment models.Environment, offer *workerclient.HardwareOffer, limit int) {
	jobs, err := client.PullJobs(ctx, environment, offer, limit)
	if err != nil {
		logging.Log.WithError(err).Warn("failed to pull jobs")
		return
	}
	for jobID, spec := range jobs {
		logging.Log.WithField("job_id", jobID).WithField("cmd", spec.App.Cmd).Info("pulled job")

		if err := client.PutStatus(ctx, jobID, models.StatusRunning, ""); err != nil {
			logging.Log.WithField("job_id", jobID).WithError(err).Warn("failed to report running")
			continue
		}
		if err := client.PutStatus(ctx, jobID, models.StatusFinished, "reference worker: no execution (out of scope)"); err != nil {
			logging.Log.WithField("job_id", jobID).WithError(err).Warn("failed to report finished")
		}
	}
}
