package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	server "medidown"
	"medidown/internal/config"
	"medidown/internal/database"
	"medidown/internal/extractor"
	"medidown/internal/handler"
	"medidown/internal/history"
	"medidown/internal/service"
	"medidown/internal/sign"
	"medidown/internal/store"
)

func main() {
	cfgPath := os.Getenv("MEDIDOWN_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("error loading config: %s", err.Error())
	}
	if cfg.SignSecret == "" {
		logrus.Fatal("sign secret is not configured (MEDIDOWN_SIGN_SECRET)")
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		logrus.Fatalf("error creating download directory: %s", err.Error())
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("error opening database: %s", err.Error())
	}
	defer db.Close()

	hist, err := history.NewRepository(db)
	if err != nil {
		logrus.Fatalf("error initializing history: %s", err.Error())
	}

	// Tasks that were in flight when the previous process died can never
	// finish; the in-memory store did not survive.
	if n, err := hist.MarkInterrupted(context.Background()); err != nil {
		logrus.Warnf("error marking interrupted tasks: %s", err.Error())
	} else if n > 0 {
		logrus.Infof("marked %d interrupted tasks as errored", n)
	}

	taskStore := store.New()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go taskStore.RunSweeper(rootCtx, cfg.TaskTTL(), cfg.SweepInterval())

	var ext extractor.Extractor
	switch cfg.Engine {
	case config.EngineAria2:
		ext = extractor.NewAria2(cfg.Aria2RPCUrl, cfg.Aria2Secret, cfg.CancelGrace())
	default:
		ext = extractor.NewYTDLP(cfg.RetryAttempts, cfg.RetryBackoff())
	}
	logrus.Infof("using %s engine", cfg.Engine)

	services := service.NewService(service.Deps{
		Store:     taskStore,
		History:   hist,
		Extractor: ext,
		Options: service.Options{
			DownloadDir:   cfg.DownloadDir,
			CookiesFile:   cfg.CookiesFile,
			MaxConcurrent: cfg.MaxConcurrent,
		},
	})
	signer := sign.New(cfg.SignSecret, cfg.SignTTL())
	handlers := handler.NewHandler(services, signer, hist)

	srv := new(server.Server)
	srv.NewServer(cfg.Port, handlers.InitRoutes())
	go func() {
		if err := srv.Run(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error server init %s", err.Error())
		}
	}()
	logrus.Infof("listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	<-quit
	logrus.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("forced server shutdown: %s", err.Error())
	}
	if err := services.Downloads.Shutdown(ctx); err != nil {
		logrus.Errorf("worker shutdown: %s", err.Error())
	}

	logrus.Info("the server has terminated successfully")
}
