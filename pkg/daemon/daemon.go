// Package daemon implements the kcal health service: it owns the
// record store and brokers all access to it over a small HTTP API on a
// unix socket. Apps never touch the database; they register, ask for
// permissions, and query or import records through this API.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/config"
	"github.com/kcal-sh/kcal/pkg/events"
	"github.com/kcal-sh/kcal/pkg/store"
)

var (
	conf config.Config
	db   *store.Store
	hub  *events.Hub
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/v1/config", getConfig)
	router.GET("/v1/version", getVersion)
	router.POST("/v1/initialize", initializeApp)
	router.GET("/v1/permissions", listPermissions)
	router.POST("/v1/permissions/request", requestPermissions)
	router.POST("/v1/permissions/grant", grantPermissions)
	router.POST("/v1/permissions/revoke", revokePermissions)
	router.POST("/v1/records/query", queryRecords)
	router.POST("/v1/records/import", importRecords)
	router.GET("/v1/events", streamEvents)

	return router
}

// Run starts the health service and blocks until SIGINT or SIGTERM.
func Run(configPath string, unixSocketPath string, dbPath string, allowNonRoot bool) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	db, err = store.Open(dbPath)
	if err != nil {
		logrus.Fatalf("failed to open record store: %v", err)
	}

	hub = events.NewHub()

	srv := &http.Server{
		Handler: router,
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, chaning permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Seed once at startup so a fresh install has records to serve,
	// then keep sampling on the configured schedule.
	if err := sampleTask(); err != nil {
		logrus.Errorf("initial sample run failed: %v", err)
	}

	sampler := NewScheduler("sampler", sampleTask)
	sampler.OnError = func(data any) {
		logrus.Errorf("sampler: %v", data)
	}
	if err := sampler.Schedule(conf.SampleDataSchedule()); err != nil {
		logrus.Errorf("invalid sample data schedule %q: %v", conf.SampleDataSchedule(), err)
	} else {
		sampler.Start()
	}

	retention := NewScheduler("retention", retentionTask)
	retention.OnError = func(data any) {
		logrus.Errorf("retention: %v", data)
	}
	// The descriptor is always valid, so Schedule cannot fail here.
	_ = retention.Schedule("@daily")
	retention.Start()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("stopping schedulers")
	sampler.Stop()
	retention.Stop()

	logrus.Info("closing event hub")
	hub.Close()

	logrus.Info("closing record store")
	if err := db.Close(); err != nil {
		logrus.Errorf("failed to close record store: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
