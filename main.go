package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"teslacam/api"
	"teslacam/config"
	"teslacam/database"
	"teslacam/logger"
	"teslacam/mqtt"
	"teslacam/services"
)

func main() {
	configPath := flag.String("config", "", "Path to optional YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithComponent("main")

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to open event index: %v", err)
	}
	defer database.CloseDB()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	library := services.NewLibraryService(cfg.FootagePath, database.DB)
	library.Debounce = cfg.WatchDebounce

	if cfg.MQTT.Broker != "" {
		client := mqtt.NewClient(cfg.MQTT)
		if err := client.Connect(); err != nil {
			log.WithError(err).Warn("MQTT unavailable, load notifications disabled")
		} else {
			defer client.Disconnect()
			library.Publisher = client
			library.NotifyTopic = client.Topic()
		}
	}

	if cfg.Watch {
		if err := library.Start(ctx); err != nil {
			log.WithError(err).Warn("Footage watcher disabled")
		}
	} else {
		go func() {
			if _, err := library.Reload(ctx); err != nil {
				log.WithError(err).Error("Initial load failed")
			}
		}()
	}
	defer library.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(api.RequestLogger(), gin.Recovery(), api.SecurityHeadersMiddleware())
	// Trust no proxies so ClientIP in the request log is accurate.
	if err := r.SetTrustedProxies(nil); err != nil {
		log.WithError(err).Warn("Failed to set trusted proxies")
	}

	api.SetupRoutes(r, &api.Server{
		Library:        library,
		HighlightLimit: cfg.HighlightLimit,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadDir:      cfg.UploadDir,
	})

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Infof("Listening on :%s, footage at %s", cfg.Port, cfg.FootagePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown incomplete")
	}
}
