package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/catalystcommunity/app-utils-go/errorutils"
	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/catalog"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/filebroker"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/queue_store"
	"github.com/cloudforge/jobbroker/internal/submitapi"
	"github.com/cloudforge/jobbroker/internal/supervisor"
	"github.com/cloudforge/jobbroker/internal/workerapi"
	"github.com/gammazero/workerpool"
)

// ServeWorkerAPI brings up the JobQueue, the FileBroker, the
// TimeoutSupervisor, and the worker-facing HTTP surface.
func ServeWorkerAPI() error {
	store.AppStore = queue_store.AppQueue

	var broker filebroker.FileBroker
	deferredFuncs := initStores(func() {
		var err error
		broker, err = filebroker.New(context.Background())
		errorutils.PanicOnErr(nil, "error initializing file broker", err)
		logging.Log.WithField("backend", config.ObjectStoreType).Info("file broker initialized")
	})
	for _, deferredFunc := range deferredFuncs {
		defer deferredFunc()
	}

	sup := supervisor.New(store.AppStore)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	handler := workerapi.NewRouter(store.AppStore, broker)

	logging.Log.Infof("starting worker api on port %d", config.Port)
	err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), handler)
	errorutils.LogOnErr(nil, "worker api ListenAndServe exited with: ", err)
	return err
}

// ServeSubmitAPI brings up the catalog and the user-facing HTTP surface.
func ServeSubmitAPI() error {
	cat, err := catalog.Load(config.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logging.Log.WithField("path", config.CatalogPath).Info("catalog loaded")

	tracker := submitapi.NewStatusTracker()
	handler := submitapi.NewRouter(cat, tracker)

	logging.Log.Infof("starting submit api on port %d", config.Port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", config.Port), handler)
	errorutils.LogOnErr(nil, "submit api ListenAndServe exited with: ", err)
	return err
}

// initStores brings the queue store and any extra initializers up
// concurrently, mirroring the teacher's cmd/api.go worker-pool pattern.
func initStores(extra ...func()) []func() {
	pool := workerpool.New(5)
	deferredFunctions := []func(){}

	pool.Submit(func() {
		deferredFunc, err := store.AppStore.Initialize()
		errorutils.PanicOnErr(nil, "error initializing queue store", err)
		if deferredFunc != nil {
			deferredFunctions = append(deferredFunctions, deferredFunc)
		}
		logging.Log.Info("queue store initialized")
	})
	for _, fn := range extra {
		pool.Submit(fn)
	}

	pool.StopWait()
	return deferredFunctions
}
